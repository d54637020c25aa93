package real

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/opd-ai/reframe/interfaces"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// audioBufferFrames is the number of sample frames per delivered buffer.
const audioBufferFrames = 1024

// FFmpegSource decodes a media file through ffmpeg subprocesses.
type FFmpegSource struct {
	path   string
	cfg    interfaces.MediaSourceConfig
	binary string
	probe  *ProbeResult
	width  int
	height int

	vmu         sync.Mutex
	video       *pipeProcess
	videoOrigin time.Duration
	framesRead  int64

	amu          sync.Mutex
	audio        *pipeProcess
	audioOrigin  time.Duration
	samplesRead  int64
	audioScratch []byte

	closeMu sync.Mutex
	closed  bool
}

// NewFFmpegSource probes path and prepares a source. No decoder runs until the
// first Seek or read.
func NewFFmpegSource(ctx context.Context, path string, cfg interfaces.MediaSourceConfig) (*FFmpegSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bin, err := resolveBinary("ffmpeg", cfg.FFmpegPath)
	if err != nil {
		return nil, err
	}
	if _, err := resolveBinary("ffprobe", ""); err != nil {
		return nil, err
	}

	probe, err := Probe(path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewFFmpegSource",
			"path":     path,
			"error":    err.Error(),
		}).Error("Probe failed")
		return nil, err
	}

	s := &FFmpegSource{
		path:         path,
		cfg:          cfg,
		binary:       bin,
		probe:        probe,
		width:        cfg.DecodeWidth,
		height:       decodeHeight(probe.Width, probe.Height, cfg.DecodeWidth),
		audioScratch: make([]byte, audioBufferFrames*int(cfg.Channels)*2),
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewFFmpegSource",
		"path":      path,
		"duration":  probe.Duration,
		"source":    fmt.Sprintf("%dx%d", probe.Width, probe.Height),
		"decode":    fmt.Sprintf("%dx%d", s.width, s.height),
		"codec":     probe.Codec,
		"has_audio": probe.HasAudio,
	}).Info("Created ffmpeg media source")

	return s, nil
}

// Duration returns the probed duration.
func (s *FFmpegSource) Duration() time.Duration {
	return s.probe.Duration
}

// Probe returns the probe result.
func (s *FFmpegSource) Probe() ProbeResult {
	return *s.probe
}

// DecodeSize returns the size of delivered frames.
func (s *FFmpegSource) DecodeSize() (int, int) {
	return s.width, s.height
}

func (s *FFmpegSource) isClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closed
}

// Seek restarts both decoders at t.
func (s *FFmpegSource) Seek(ctx context.Context, t time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrSourceClosed
	}
	if t < 0 {
		t = 0
	}

	s.vmu.Lock()
	err := s.restartVideo(t)
	s.vmu.Unlock()
	if err != nil {
		return err
	}

	s.amu.Lock()
	defer s.amu.Unlock()
	return s.restartAudio(t)
}

// restartVideo must be called with s.vmu held.
func (s *FFmpegSource) restartVideo(t time.Duration) error {
	if s.video != nil {
		_ = s.video.stop()
		s.video = nil
	}
	p, err := startPipe(s.videoStream(t), s.binary)
	if err != nil {
		return err
	}
	s.video, s.videoOrigin, s.framesRead = p, t, 0
	return nil
}

// restartAudio must be called with s.amu held.
func (s *FFmpegSource) restartAudio(t time.Duration) error {
	if s.audio != nil {
		_ = s.audio.stop()
		s.audio = nil
	}
	if !s.probe.HasAudio {
		return nil
	}
	p, err := startPipe(s.audioStream(t), s.binary)
	if err != nil {
		return err
	}
	s.audio, s.audioOrigin, s.samplesRead = p, t, 0
	return nil
}

func (s *FFmpegSource) videoStream(t time.Duration) *ffmpeg.Stream {
	return ffmpeg.Input(s.path, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.6f", t.Seconds())}).
		Output("pipe:1", ffmpeg.KwArgs{
			"map":      "0:v:0",
			"vf":       fmt.Sprintf("fps=%d,scale=%d:%d", s.cfg.FrameRate, s.width, s.height),
			"format":   "rawvideo",
			"pix_fmt":  "rgba",
			"loglevel": "error",
		})
}

func (s *FFmpegSource) audioStream(t time.Duration) *ffmpeg.Stream {
	return ffmpeg.Input(s.path, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.6f", t.Seconds())}).
		Output("pipe:1", ffmpeg.KwArgs{
			"map":      "0:a:0",
			"format":   "s16le",
			"acodec":   "pcm_s16le",
			"ar":       s.cfg.SampleRate,
			"ac":       s.cfg.Channels,
			"loglevel": "error",
		})
}

// NextVideoFrame reads one RGBA frame. Frames are stamped origin + n/fps.
func (s *FFmpegSource) NextVideoFrame(ctx context.Context) (*interfaces.VideoFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.isClosed() {
		return nil, ErrSourceClosed
	}

	s.vmu.Lock()
	defer s.vmu.Unlock()

	if s.video == nil {
		if err := s.restartVideo(0); err != nil {
			return nil, err
		}
	}

	stop := s.video.killOnDone(ctx)
	img, err := readFrame(s.video.stdout, s.width, s.height)
	stop()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(err, "read video frame: %s", s.video.stderr.String())
	}

	ts := s.videoOrigin + time.Duration(s.framesRead)*time.Second/time.Duration(s.cfg.FrameRate)
	s.framesRead++
	return &interfaces.VideoFrame{Timestamp: ts, Image: img}, nil
}

// NextAudioBuffer reads up to audioBufferFrames sample frames. Sources without an
// audio stream report io.EOF immediately.
func (s *FFmpegSource) NextAudioBuffer(ctx context.Context) (*interfaces.AudioBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.isClosed() {
		return nil, ErrSourceClosed
	}
	if !s.probe.HasAudio {
		return nil, io.EOF
	}

	s.amu.Lock()
	defer s.amu.Unlock()

	if s.audio == nil {
		if err := s.restartAudio(0); err != nil {
			return nil, err
		}
	}

	stop := s.audio.killOnDone(ctx)
	samples, err := readPCM(s.audio.stdout, s.audioScratch, int(s.cfg.Channels))
	stop()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(err, "read audio: %s", s.audio.stderr.String())
	}

	rate := int64(s.cfg.SampleRate)
	buf := &interfaces.AudioBuffer{
		Timestamp:  s.audioOrigin + time.Duration(s.samplesRead*int64(time.Second)/rate),
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		Samples:    samples,
	}
	s.samplesRead += int64(len(samples) / int(s.cfg.Channels))
	return buf, nil
}

// Close stops both decoders. Safe to call more than once.
func (s *FFmpegSource) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	s.vmu.Lock()
	if s.video != nil {
		_ = s.video.stop()
		s.video = nil
	}
	s.vmu.Unlock()

	s.amu.Lock()
	if s.audio != nil {
		_ = s.audio.stop()
		s.audio = nil
	}
	s.amu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "FFmpegSource.Close",
		"path":     s.path,
	}).Info("ffmpeg media source closed")
	return nil
}

// readFrame reads one packed RGBA frame. A clean end of stream, or a partial
// trailing frame, is io.EOF.
func readFrame(r io.Reader, width, height int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if _, err := io.ReadFull(r, img.Pix); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return img, nil
}

// readPCM reads up to len(scratch) bytes of s16le and returns whole sample frames.
func readPCM(r io.Reader, scratch []byte, channels int) ([]int16, error) {
	frameBytes := channels * 2
	n, err := io.ReadAtLeast(r, scratch, frameBytes)
	if err != nil && n < frameBytes {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}

	// Top up to a frame boundary so channels stay aligned.
	if rem := n % frameBytes; rem != 0 {
		m, err := io.ReadFull(r, scratch[n:n+frameBytes-rem])
		n += m
		if err != nil {
			n -= n % frameBytes
		}
	}

	samples := make([]int16, n/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(scratch[i*2:]))
	}
	return samples, nil
}
