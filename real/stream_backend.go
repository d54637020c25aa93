package real

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/opd-ai/reframe/av"
	"github.com/opd-ai/reframe/av/audio"
	"github.com/opd-ai/reframe/interfaces"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const (
	streamMIME      = "video/x-matroska"
	streamExtension = ".mkv"
)

// StreamBackend encodes through ffmpeg: frames are piped as raw RGBA into libx264
// while audio is spooled as PCM, then both are muxed with AAC audio at finalize.
type StreamBackend struct {
	binaryOverride string

	mu       sync.Mutex
	cfg      av.EncoderConfig
	binary   string
	tempFile string
	encoder  *exec.Cmd
	stdin    io.WriteCloser
	stderr   *lockedBuffer
	frame    *image.RGBA
	pcm      *audio.PCMEncoder
	spool    *pcmSpool
	frames   int64
	waited   bool
	waitErr  error
}

// NewStreamBackend creates a backend that runs ffmpegPath (or ffmpeg from PATH
// when empty).
func NewStreamBackend(ffmpegPath string) *StreamBackend {
	return &StreamBackend{binaryOverride: ffmpegPath}
}

// Name returns "stream".
func (b *StreamBackend) Name() string {
	return "stream"
}

// Open starts the video encoder process.
func (b *StreamBackend) Open(ctx context.Context, cfg av.EncoderConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bin, err := resolveBinary("ffmpeg", b.binaryOverride)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tmp, err := os.CreateTemp("", "reframe-video-*.mkv")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmp.Close()

	spool := newPCMSpool(cfg.SampleRate, int(cfg.Channels))
	pcm, err := audio.NewPCMEncoder(cfg.SampleRate, cfg.Channels, cfg.AudioBitRate, spool.write)
	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(av.ErrEncoder, "audio: %v", err)
	}

	stream := videoEncodeStream(cfg, tmp.Name())
	cmd := stream.Compile(withBinary(bin))
	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "stdin pipe")
	}
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(av.ErrEncoder, "start ffmpeg: %v", err)
	}

	b.cfg, b.binary, b.tempFile = cfg, bin, tmp.Name()
	b.encoder, b.stdin, b.stderr = cmd, stdin, stderr
	b.frame = image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	b.pcm, b.spool = pcm, spool

	logrus.WithFields(logrus.Fields{
		"function": "StreamBackend.Open",
		"binary":   bin,
		"args":     fmt.Sprint(stream.GetArgs()),
	}).Info("Stream backend opened")

	return nil
}

func videoEncodeStream(cfg av.EncoderConfig, output string) *ffmpeg.Stream {
	return ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"framerate": cfg.FrameRate,
	}).Output(output, ffmpeg.KwArgs{
		"c:v":              "libx264",
		"pix_fmt":          "yuv420p",
		"b:v":              cfg.VideoBitRate,
		"r":                cfg.FrameRate,
		"force_key_frames": fmt.Sprintf("expr:gte(t,n_forced*%g)", cfg.KeyframeInterval.Seconds()),
		"format":           "matroska",
		"loglevel":         "error",
	}).OverWriteOutput()
}

func muxStream(videoFile string, cfg av.EncoderConfig) *ffmpeg.Stream {
	v := ffmpeg.Input(videoFile)
	a := ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"format": "s16le",
		"ar":     cfg.SampleRate,
		"ac":     cfg.Channels,
	})
	return ffmpeg.Output([]*ffmpeg.Stream{v.Video(), a.Audio()}, "pipe:1", ffmpeg.KwArgs{
		"c:v":      "copy",
		"c:a":      "aac",
		"b:a":      cfg.AudioBitRate,
		"format":   "matroska",
		"loglevel": "error",
	})
}

// EncodeVideo writes img as one raw frame. The keyframe flag is advisory; cadence
// is fixed by force_key_frames.
func (b *StreamBackend) EncodeVideo(img image.Image, ts time.Duration, keyframe bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stdin == nil {
		return errors.Wrap(av.ErrEncoder, "backend not open")
	}
	if img == nil {
		return errors.Wrap(av.ErrEncoder, "nil frame")
	}

	pix := b.frame.Pix
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect == b.frame.Rect && rgba.Stride == b.frame.Stride {
		pix = rgba.Pix
	} else {
		draw.Draw(b.frame, b.frame.Rect, img, img.Bounds().Min, draw.Src)
	}

	if _, err := b.stdin.Write(pix); err != nil {
		return errors.Wrapf(av.ErrEncoder, "write frame at %v: %v: %s", ts, err, b.stderr.String())
	}
	b.frames++
	return nil
}

// EncodeAudio converts buf to the output layout and spools it at its timestamp.
func (b *StreamBackend) EncodeAudio(buf *interfaces.AudioBuffer) error {
	b.mu.Lock()
	pcm := b.pcm
	b.mu.Unlock()

	if pcm == nil {
		return errors.Wrap(av.ErrEncoder, "backend not open")
	}
	if err := pcm.Encode(buf); err != nil {
		return errors.Wrapf(av.ErrEncoder, "audio: %v", err)
	}
	return nil
}

// Flush closes the frame pipe and waits for the video encoder to finish.
func (b *StreamBackend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finishVideo(ctx)
}

// finishVideo must be called with b.mu held.
func (b *StreamBackend) finishVideo(ctx context.Context) error {
	if b.encoder == nil || b.waited {
		return b.waitErr
	}
	_ = b.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- b.encoder.Wait() }()

	select {
	case err := <-done:
		b.waited = true
		if err != nil {
			b.waitErr = errors.Wrapf(av.ErrEncoder, "ffmpeg: %v: %s", err, b.stderr.String())
		}
	case <-ctx.Done():
		_ = b.encoder.Process.Kill()
		<-done
		b.waited = true
		b.waitErr = ctx.Err()
	}
	return b.waitErr
}

// Finalize muxes the encoded video with the spooled audio and returns the file.
func (b *StreamBackend) Finalize(ctx context.Context) (*av.Container, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.encoder == nil {
		return nil, errors.Wrap(av.ErrMux, "backend not open")
	}
	if err := b.finishVideo(ctx); err != nil {
		return nil, err
	}

	videoDuration := time.Duration(b.frames) * time.Second / time.Duration(b.cfg.FrameRate)
	pcm := b.spool.bytes(videoDuration)

	var out bytes.Buffer
	stderr := &lockedBuffer{}
	cmd := muxStream(b.tempFile, b.cfg).Compile(withBinary(b.binary))
	cmd.Stdin = bytes.NewReader(pcm)
	cmd.Stdout = &out
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(av.ErrMux, "start ffmpeg: %v", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = cmd.Process.Kill() })
	err := cmd.Wait()
	stop()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, errors.Wrapf(av.ErrMux, "ffmpeg: %v: %s", err, stderr.String())
	}

	logrus.WithFields(logrus.Fields{
		"function":     "StreamBackend.Finalize",
		"frames":       b.frames,
		"audio_bytes":  len(pcm),
		"output_bytes": out.Len(),
	}).Info("Stream backend finalized")

	return &av.Container{Data: out.Bytes(), MIME: streamMIME, Extension: streamExtension}, nil
}

// Close stops any running process and removes the temp file.
func (b *StreamBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.encoder != nil && !b.waited {
		_ = b.stdin.Close()
		_ = b.encoder.Process.Kill()
		_ = b.encoder.Wait()
		b.waited = true
	}
	if b.pcm != nil {
		b.pcm.Close()
	}
	if b.tempFile != "" {
		os.Remove(b.tempFile)
		b.tempFile = ""
	}
	b.encoder, b.stdin, b.pcm = nil, nil, nil
	return nil
}

// pcmSpool lays encoded s16le units out on the output timeline, padding gaps with
// silence and dropping overlap.
type pcmSpool struct {
	mu         sync.Mutex
	sampleRate int64
	frameBytes int
	data       []byte
	padded     int64
}

func newPCMSpool(sampleRate uint32, channels int) *pcmSpool {
	return &pcmSpool{sampleRate: int64(sampleRate), frameBytes: channels * 2}
}

// write is the PCM encoder's output callback.
func (s *pcmSpool) write(u interfaces.EncodedUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := int64(u.Timestamp) * s.sampleRate / int64(time.Second)
	have := int64(len(s.data) / s.frameBytes)
	data := u.Data

	switch {
	case at > have:
		gap := (at - have) * int64(s.frameBytes)
		s.data = append(s.data, make([]byte, gap)...)
		s.padded += at - have
	case at < have:
		skip := (have - at) * int64(s.frameBytes)
		if skip >= int64(len(data)) {
			return nil
		}
		data = data[skip:]
	}
	s.data = append(s.data, data...)
	return nil
}

// bytes returns the spool padded with silence or truncated to exactly d.
func (s *pcmSpool) bytes(d time.Duration) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := int(int64(d)*s.sampleRate/int64(time.Second)) * s.frameBytes
	switch {
	case len(s.data) < want:
		s.padded += int64((want - len(s.data)) / s.frameBytes)
		s.data = append(s.data, make([]byte, want-len(s.data))...)
	case len(s.data) > want:
		s.data = s.data[:want]
	}
	return s.data
}
