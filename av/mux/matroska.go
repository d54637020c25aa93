package mux

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/at-wat/ebml-go/mkvcore"
	"github.com/at-wat/ebml-go/webm"
	"github.com/opd-ai/reframe/interfaces"
	"github.com/sirupsen/logrus"
)

const (
	// MIMEType is the container MIME type.
	MIMEType = "video/x-matroska"
	// Extension is the container file extension.
	Extension = ".mkv"

	// VideoTrackNumber and AudioTrackNumber identify the two tracks.
	VideoTrackNumber = 1
	AudioTrackNumber = 2

	// CodecMJPEG and CodecPCM are the Matroska codec IDs of the built-in encoders.
	CodecMJPEG = "V_MJPEG"
	CodecPCM   = "A_PCM/INT/LIT"

	trackTypeVideo = 1
	trackTypeAudio = 2

	// timecodeScale makes block timestamps milliseconds.
	timecodeScale = 1000000
	appName       = "reframe"
)

// Config describes the two tracks.
type Config struct {
	Width      int
	Height     int
	FrameRate  int
	SampleRate uint32
	Channels   uint8
	// VideoCodecID and AudioCodecID default to CodecMJPEG and CodecPCM.
	VideoCodecID string
	AudioCodecID string
}

type videoSettings struct {
	PixelWidth  uint64 `ebml:"PixelWidth"`
	PixelHeight uint64 `ebml:"PixelHeight"`
}

type audioSettings struct {
	SamplingFrequency float64 `ebml:"SamplingFrequency"`
	Channels          uint64  `ebml:"Channels"`
	BitDepth          uint64  `ebml:"BitDepth,omitempty"`
}

// trackEntry mirrors webm.TrackEntry plus BitDepth, which raw PCM requires.
type trackEntry struct {
	Name            string         `ebml:"Name,omitempty"`
	TrackNumber     uint64         `ebml:"TrackNumber"`
	TrackUID        uint64         `ebml:"TrackUID"`
	CodecID         string         `ebml:"CodecID"`
	TrackType       uint64         `ebml:"TrackType"`
	DefaultDuration uint64         `ebml:"DefaultDuration,omitempty"`
	Video           *videoSettings `ebml:"Video,omitempty"`
	Audio           *audioSettings `ebml:"Audio,omitempty"`
}

// MatroskaMuxer buffers encoded units and writes them as one Matroska file.
type MatroskaMuxer struct {
	mu        sync.Mutex
	cfg       Config
	units     []interfaces.EncodedUnit
	videos    int
	audios    int
	finalized bool
}

// NewMatroskaMuxer validates cfg and creates a muxer.
func NewMatroskaMuxer(cfg Config) (*MatroskaMuxer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("%w: video %dx%d@%d", ErrInvalidConfig, cfg.Width, cfg.Height, cfg.FrameRate)
	}
	if cfg.SampleRate == 0 || (cfg.Channels != 1 && cfg.Channels != 2) {
		return nil, fmt.Errorf("%w: audio %dHz/%dch", ErrInvalidConfig, cfg.SampleRate, cfg.Channels)
	}
	if cfg.VideoCodecID == "" {
		cfg.VideoCodecID = CodecMJPEG
	}
	if cfg.AudioCodecID == "" {
		cfg.AudioCodecID = CodecPCM
	}
	return &MatroskaMuxer{cfg: cfg}, nil
}

// WriteUnit buffers a copy of u. Safe for concurrent use.
func (m *MatroskaMuxer) WriteUnit(u interfaces.EncodedUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return ErrFinalized
	}
	switch u.Kind {
	case interfaces.KindVideo:
		m.videos++
	case interfaces.KindAudio:
		m.audios++
	default:
		return fmt.Errorf("unknown unit kind %v", u.Kind)
	}
	data := make([]byte, len(u.Data))
	copy(data, u.Data)
	u.Data = data
	m.units = append(m.units, u)
	return nil
}

// Counts returns the number of buffered video and audio units.
func (m *MatroskaMuxer) Counts() (video, audio int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.videos, m.audios
}

// Finalize writes every buffered unit in timestamp order and returns the container.
// Video precedes audio at equal timestamps. Further writes fail with ErrFinalized.
func (m *MatroskaMuxer) Finalize(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	if m.finalized {
		m.mu.Unlock()
		return nil, ErrFinalized
	}
	m.finalized = true
	units := m.units
	m.units = nil
	videos := m.videos
	m.mu.Unlock()

	if videos == 0 {
		return nil, ErrNoVideo
	}

	sort.SliceStable(units, func(i, j int) bool {
		if units[i].Timestamp != units[j].Timestamp {
			return units[i].Timestamp < units[j].Timestamp
		}
		return units[i].Kind < units[j].Kind
	})

	sink := newMemorySink()
	writers, err := mkvcore.NewSimpleBlockWriter(sink, m.tracks(),
		mkvcore.WithEBMLHeader(&webm.EBMLHeader{
			EBMLVersion:        1,
			EBMLReadVersion:    1,
			EBMLMaxIDLength:    4,
			EBMLMaxSizeLength:  8,
			DocType:            "matroska",
			DocTypeVersion:     4,
			DocTypeReadVersion: 2,
		}),
		mkvcore.WithSegmentInfo(&webm.Info{
			TimecodeScale: timecodeScale,
			MuxingApp:     appName,
			WritingApp:    appName,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create block writer: %w", err)
	}
	video, audio := writers[0], writers[1]

	writeErr := func() error {
		for i, u := range units {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			w := video
			if u.Kind == interfaces.KindAudio {
				w = audio
			}
			if _, err := w.Write(u.Keyframe, u.Timestamp.Milliseconds(), u.Data); err != nil {
				return fmt.Errorf("write %v block at %v: %w", u.Kind, u.Timestamp, err)
			}
		}
		return nil
	}()

	// Closing every track writer flushes the last cluster and closes the sink.
	closeErr := video.Close()
	if err := audio.Close(); closeErr == nil {
		closeErr = err
	}
	if writeErr != nil {
		return nil, writeErr
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close block writer: %w", closeErr)
	}

	select {
	case <-sink.closed:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	data := sink.Bytes()
	logrus.WithFields(logrus.Fields{
		"function": "MatroskaMuxer.Finalize",
		"units":    len(units),
		"videos":   videos,
		"bytes":    len(data),
	}).Info("Container finalized")

	return data, nil
}

func (m *MatroskaMuxer) tracks() []mkvcore.TrackDescription {
	frameDuration := uint64(time.Second / time.Duration(m.cfg.FrameRate))
	return []mkvcore.TrackDescription{
		{
			TrackNumber: VideoTrackNumber,
			TrackEntry: trackEntry{
				Name:            "Video",
				TrackNumber:     VideoTrackNumber,
				TrackUID:        0x5246564944454f31,
				CodecID:         m.cfg.VideoCodecID,
				TrackType:       trackTypeVideo,
				DefaultDuration: frameDuration,
				Video: &videoSettings{
					PixelWidth:  uint64(m.cfg.Width),
					PixelHeight: uint64(m.cfg.Height),
				},
			},
		},
		{
			TrackNumber: AudioTrackNumber,
			TrackEntry: trackEntry{
				Name:        "Audio",
				TrackNumber: AudioTrackNumber,
				TrackUID:    0x52464155444f3031,
				CodecID:     m.cfg.AudioCodecID,
				TrackType:   trackTypeAudio,
				Audio: &audioSettings{
					SamplingFrequency: float64(m.cfg.SampleRate),
					Channels:          uint64(m.cfg.Channels),
					BitDepth:          16,
				},
			},
		},
	}
}

// memorySink is the io.WriteCloser the block writer owns; closed is signalled once
// the writer has flushed everything.
type memorySink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed chan struct{}
	once   sync.Once
}

func newMemorySink() *memorySink {
	return &memorySink{closed: make(chan struct{})}
}

func (s *memorySink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *memorySink) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// Bytes returns a copy of everything written.
func (s *memorySink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	return out
}
