package interfaces

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// MediaSource is a decoded, seekable source of video frames and audio buffers.
//
// Frames and buffers are delivered in non-decreasing timestamp order after each Seek.
// Both Next methods return io.EOF once the stream is exhausted and must honor ctx
// cancellation while blocked.
type MediaSource interface {
	// Duration returns the total source duration.
	Duration() time.Duration

	// Seek positions both streams at or before t.
	Seek(ctx context.Context, t time.Duration) error

	// NextVideoFrame returns the next decoded frame.
	NextVideoFrame(ctx context.Context) (*VideoFrame, error)

	// NextAudioBuffer returns the next block of interleaved PCM samples.
	NextAudioBuffer(ctx context.Context) (*AudioBuffer, error)

	// Close releases decoder resources.
	Close() error
}

// VideoFrame is one decoded picture stamped with its source presentation time.
type VideoFrame struct {
	Timestamp time.Duration
	Image     image.Image
}

// AudioBuffer holds interleaved signed 16-bit PCM samples stamped with the source
// time of the first sample.
type AudioBuffer struct {
	Timestamp  time.Duration
	SampleRate uint32
	Channels   uint8
	Samples    []int16
}

// Frames returns the number of sample frames (samples per channel).
func (b *AudioBuffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / int(b.Channels)
}

// Duration returns the playback length of the buffer.
func (b *AudioBuffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(int64(b.Frames()) * int64(time.Second) / int64(b.SampleRate))
}

// End returns the source time just past the last sample.
func (b *AudioBuffer) End() time.Duration {
	return b.Timestamp + b.Duration()
}

// Clone returns a deep copy so the receiver may be mutated without affecting the source.
func (b *AudioBuffer) Clone() *AudioBuffer {
	samples := make([]int16, len(b.Samples))
	copy(samples, b.Samples)
	return &AudioBuffer{
		Timestamp:  b.Timestamp,
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
		Samples:    samples,
	}
}

// MediaKind identifies the track an encoded unit belongs to.
type MediaKind uint8

const (
	// KindVideo marks encoded picture data.
	KindVideo MediaKind = iota
	// KindAudio marks encoded audio data.
	KindAudio
)

// String returns the human-readable kind name.
func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// EncodedUnit is one compressed chunk stamped on the output clock.
type EncodedUnit struct {
	Kind      MediaKind
	Timestamp time.Duration
	Duration  time.Duration
	Keyframe  bool
	Data      []byte
}

var (
	// ErrInvalidFrameRate indicates a non-positive decode frame rate.
	ErrInvalidFrameRate = errors.New("frame rate must be positive")
	// ErrInvalidSourceSize indicates a non-positive decode width.
	ErrInvalidSourceSize = errors.New("decode width must be positive and even")
	// ErrInvalidSampleRate indicates a non-positive audio sample rate.
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidChannels indicates an unsupported channel count.
	ErrInvalidChannels = errors.New("channel count must be 1 or 2")
)

// MediaSourceConfig holds settings shared by MediaSource implementations.
type MediaSourceConfig struct {
	// UseSimulation selects the deterministic in-memory source instead of a real decoder.
	UseSimulation bool

	// FrameRate is the decode frame rate.
	FrameRate int

	// DecodeWidth is the width frames are scaled to while decoding.
	DecodeWidth int

	// SampleRate and Channels describe the decoded PCM layout.
	SampleRate uint32
	Channels   uint8

	// FFmpegPath overrides the ffmpeg binary looked up on PATH.
	FFmpegPath string
}

// Validate checks that the config describes a usable decode layout.
func (c *MediaSourceConfig) Validate() error {
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidFrameRate, c.FrameRate)
	}
	if c.DecodeWidth <= 0 || c.DecodeWidth%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSourceSize, c.DecodeWidth)
	}
	if c.SampleRate == 0 {
		return ErrInvalidSampleRate
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidChannels, c.Channels)
	}
	return nil
}
