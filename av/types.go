package av

import (
	"fmt"
	"time"

	"github.com/opd-ai/reframe/limits"
)

// EncoderState is a stage of the encode/mux lifecycle.
type EncoderState uint32

const (
	// StateIdle means no backend has been opened
	StateIdle EncoderState = iota
	// StateConfiguring means the backend is being opened
	StateConfiguring
	// StateEncoding means units are being accepted
	StateEncoding
	// StateFlushing means pending encoder output is being drained
	StateFlushing
	// StateFinalized means the container has been produced
	StateFinalized
	// StateErrored means the run failed and output was discarded
	StateErrored
)

// String returns the state name.
func (s EncoderState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConfiguring:
		return "Configuring"
	case StateEncoding:
		return "Encoding"
	case StateFlushing:
		return "Flushing"
	case StateFinalized:
		return "Finalized"
	case StateErrored:
		return "Errored"
	default:
		return fmt.Sprintf("EncoderState(%d)", uint32(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s EncoderState) Terminal() bool {
	return s == StateFinalized || s == StateErrored
}

// EncoderConfig describes the output tracks a backend must produce.
type EncoderConfig struct {
	Width            int
	Height           int
	FrameRate        int
	VideoBitRate     uint32
	KeyframeInterval time.Duration
	SampleRate       uint32
	Channels         uint8
	AudioBitRate     uint32
}

// DefaultEncoderConfig returns the standard vertical output profile.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfigFor(limits.OutputWidth, limits.OutputHeight, limits.FrameRate)
}

// EncoderConfigFor builds a config for the given geometry, choosing the bitrate tier
// from the pixel count.
func EncoderConfigFor(width, height, frameRate int) EncoderConfig {
	return EncoderConfig{
		Width:            width,
		Height:           height,
		FrameRate:        frameRate,
		VideoBitRate:     limits.VideoBitRateFor(width, height),
		KeyframeInterval: limits.KeyframeInterval,
		SampleRate:       limits.AudioSampleRate,
		Channels:         limits.AudioChannels,
		AudioBitRate:     limits.AudioBitRate,
	}
}

// Validate checks the config for values no backend can honor.
func (c EncoderConfig) Validate() error {
	if err := limits.ValidateDimensions(c.Width, c.Height); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoderConfig, err)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: frame rate %d", ErrInvalidEncoderConfig, c.FrameRate)
	}
	if c.KeyframeInterval <= 0 {
		return fmt.Errorf("%w: keyframe interval %v", ErrInvalidEncoderConfig, c.KeyframeInterval)
	}
	if c.SampleRate == 0 {
		return fmt.Errorf("%w: sample rate 0", ErrInvalidEncoderConfig)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("%w: %d channels", ErrInvalidEncoderConfig, c.Channels)
	}
	return nil
}

// KeyframeEvery returns the keyframe cadence in video ticks.
func (c EncoderConfig) KeyframeEvery() int64 {
	n := int64(c.KeyframeInterval) * int64(c.FrameRate) / int64(time.Second)
	if n < 1 {
		return 1
	}
	return n
}

// Container is a finished output artifact.
type Container struct {
	Data      []byte
	MIME      string
	Extension string
}

// TimeProvider abstracts time for deterministic testing.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider uses the wall clock.
type DefaultTimeProvider struct{}

// Now returns time.Now().
func (DefaultTimeProvider) Now() time.Time {
	return time.Now()
}
