package testing

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"
	"time"

	"github.com/opd-ai/reframe/interfaces"
	"github.com/sirupsen/logrus"
)

// ErrSourceClosed is returned by every call after Close.
var ErrSourceClosed = errors.New("simulated source closed")

// SimulatedSourceConfig describes the synthesized media.
type SimulatedSourceConfig struct {
	Duration   time.Duration
	Width      int
	Height     int
	FrameRate  int
	SampleRate uint32
	Channels   uint8

	// BufferFrames is the sample frames per audio buffer (default 1024).
	BufferFrames int
	// ToneHz is the sine frequency (default 440).
	ToneHz float64
	// Amplitude is the peak sample value (default 8000).
	Amplitude int16
	// FrameDelay blocks each NextVideoFrame call to mimic real-time playback.
	FrameDelay time.Duration
}

// DefaultSimulatedSourceConfig returns a small 10 second stereo source.
func DefaultSimulatedSourceConfig() SimulatedSourceConfig {
	return SimulatedSourceConfig{
		Duration:     10 * time.Second,
		Width:        96,
		Height:       54,
		FrameRate:    30,
		SampleRate:   48000,
		Channels:     2,
		BufferFrames: 1024,
		ToneHz:       440,
		Amplitude:    8000,
	}
}

func (c *SimulatedSourceConfig) applyDefaults() {
	if c.BufferFrames <= 0 {
		c.BufferFrames = 1024
	}
	if c.ToneHz <= 0 {
		c.ToneHz = 440
	}
	if c.Amplitude == 0 {
		c.Amplitude = 8000
	}
}

func (c *SimulatedSourceConfig) validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive: %v", c.Duration)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", interfaces.ErrInvalidSourceSize, c.Width, c.Height)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: got %d", interfaces.ErrInvalidFrameRate, c.FrameRate)
	}
	if c.SampleRate == 0 {
		return interfaces.ErrInvalidSampleRate
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("%w: got %d", interfaces.ErrInvalidChannels, c.Channels)
	}
	return nil
}

// SimulatedMediaSource implements interfaces.MediaSource with synthesized content.
type SimulatedMediaSource struct {
	cfg SimulatedSourceConfig

	mu          sync.Mutex
	frameIndex  int64
	sampleIndex int64
	seekLog     []time.Duration
	frames      int
	buffers     int
	closes      int
	closed      bool
	videoErr    error
	audioErr    error
}

// NewSimulatedMediaSource creates a source positioned at zero.
func NewSimulatedMediaSource(cfg SimulatedSourceConfig) (*SimulatedMediaSource, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function":    "NewSimulatedMediaSource",
		"duration":    cfg.Duration,
		"size":        fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"frame_rate":  cfg.FrameRate,
		"sample_rate": cfg.SampleRate,
	}).Info("Creating simulated media source for testing")

	return &SimulatedMediaSource{cfg: cfg}, nil
}

// Duration returns the configured duration.
func (s *SimulatedMediaSource) Duration() time.Duration {
	return s.cfg.Duration
}

// Seek moves both cursors to the last frame and buffer boundary at or before t.
func (s *SimulatedMediaSource) Seek(ctx context.Context, t time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t < 0 {
		t = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSourceClosed
	}

	s.frameIndex = int64(t) * int64(s.cfg.FrameRate) / int64(time.Second)
	samples := int64(t) * int64(s.cfg.SampleRate) / int64(time.Second)
	s.sampleIndex = samples - samples%int64(s.cfg.BufferFrames)
	s.seekLog = append(s.seekLog, t)

	logrus.WithFields(logrus.Fields{
		"function":     "SimulatedMediaSource.Seek",
		"target":       t,
		"frame_index":  s.frameIndex,
		"sample_index": s.sampleIndex,
	}).Debug("Simulated seek")

	return nil
}

// NextVideoFrame synthesizes the frame under the video cursor.
func (s *SimulatedMediaSource) NextVideoFrame(ctx context.Context) (*interfaces.VideoFrame, error) {
	if s.cfg.FrameDelay > 0 {
		timer := time.NewTimer(s.cfg.FrameDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}
	if s.videoErr != nil {
		return nil, s.videoErr
	}

	ts := FrameTime(s.frameIndex, s.cfg.FrameRate)
	if ts >= s.cfg.Duration {
		return nil, io.EOF
	}

	frame := &interfaces.VideoFrame{
		Timestamp: ts,
		Image:     RenderFrame(s.frameIndex, s.cfg.Width, s.cfg.Height),
	}
	s.frameIndex++
	s.frames++
	return frame, nil
}

// NextAudioBuffer synthesizes the buffer under the audio cursor. The final buffer is
// shortened to end at Duration.
func (s *SimulatedMediaSource) NextAudioBuffer(ctx context.Context) (*interfaces.AudioBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}
	if s.audioErr != nil {
		return nil, s.audioErr
	}

	rate := int64(s.cfg.SampleRate)
	total := int64(s.cfg.Duration) * rate / int64(time.Second)
	if s.sampleIndex >= total {
		return nil, io.EOF
	}

	frames := int64(s.cfg.BufferFrames)
	if s.sampleIndex+frames > total {
		frames = total - s.sampleIndex
	}

	channels := int(s.cfg.Channels)
	samples := make([]int16, int(frames)*channels)
	for i := int64(0); i < frames; i++ {
		v := ToneSample(s.sampleIndex+i, s.cfg.SampleRate, s.cfg.ToneHz, s.cfg.Amplitude)
		for c := 0; c < channels; c++ {
			samples[int(i)*channels+c] = v
		}
	}

	buf := &interfaces.AudioBuffer{
		Timestamp:  time.Duration(s.sampleIndex * int64(time.Second) / rate),
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		Samples:    samples,
	}
	s.sampleIndex += frames
	s.buffers++
	return buf, nil
}

// Close marks the source closed. Repeated calls are counted but harmless.
func (s *SimulatedMediaSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes++
	s.closed = true

	logrus.WithFields(logrus.Fields{
		"function": "SimulatedMediaSource.Close",
		"frames":   s.frames,
		"buffers":  s.buffers,
		"seeks":    len(s.seekLog),
	}).Info("Simulated media source closed")

	return nil
}

// InjectVideoError makes every later NextVideoFrame call fail with err.
func (s *SimulatedMediaSource) InjectVideoError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoErr = err
}

// InjectAudioError makes every later NextAudioBuffer call fail with err.
func (s *SimulatedMediaSource) InjectAudioError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioErr = err
}

// SeekLog returns a copy of every seek target in call order.
func (s *SimulatedMediaSource) SeekLog() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := make([]time.Duration, len(s.seekLog))
	copy(log, s.seekLog)
	return log
}

// SimulationStats summarizes source activity.
type SimulationStats struct {
	FramesDelivered  int
	BuffersDelivered int
	Seeks            int
	CloseCalls       int
}

// GetStats returns delivery counters.
func (s *SimulatedMediaSource) GetStats() SimulationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SimulationStats{
		FramesDelivered:  s.frames,
		BuffersDelivered: s.buffers,
		Seeks:            len(s.seekLog),
		CloseCalls:       s.closes,
	}
}

// FrameTime returns the presentation time of frame n.
func FrameTime(n int64, fps int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(fps)
}

// RenderFrame draws synthetic frame n: red encodes n mod 256, green and blue form a
// horizontal and vertical gradient.
func RenderFrame(n int64, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	r := uint8(n % 256)
	for y := 0; y < height; y++ {
		b := uint8(y * 255 / max(height-1, 1))
		for x := 0; x < width; x++ {
			g := uint8(x * 255 / max(width-1, 1))
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// ToneSample returns sample index i of a sine at hz.
func ToneSample(i int64, rate uint32, hz float64, amplitude int16) int16 {
	phase := 2 * math.Pi * hz * float64(i) / float64(rate)
	return int16(math.Round(float64(amplitude) * math.Sin(phase)))
}
