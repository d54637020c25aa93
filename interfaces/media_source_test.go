package interfaces

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestMediaSourceConfigValidate tests the Validate method of MediaSourceConfig.
func TestMediaSourceConfigValidate(t *testing.T) {
	valid := MediaSourceConfig{FrameRate: 30, DecodeWidth: 1080, SampleRate: 48000, Channels: 2}

	tests := []struct {
		name    string
		mutate  func(c *MediaSourceConfig)
		wantErr error
	}{
		{name: "valid", mutate: func(c *MediaSourceConfig) {}, wantErr: nil},
		{name: "valid mono simulation", mutate: func(c *MediaSourceConfig) { c.Channels = 1; c.UseSimulation = true }, wantErr: nil},
		{name: "zero frame rate", mutate: func(c *MediaSourceConfig) { c.FrameRate = 0 }, wantErr: ErrInvalidFrameRate},
		{name: "odd width", mutate: func(c *MediaSourceConfig) { c.DecodeWidth = 1081 }, wantErr: ErrInvalidSourceSize},
		{name: "negative width", mutate: func(c *MediaSourceConfig) { c.DecodeWidth = -2 }, wantErr: ErrInvalidSourceSize},
		{name: "zero sample rate", mutate: func(c *MediaSourceConfig) { c.SampleRate = 0 }, wantErr: ErrInvalidSampleRate},
		{name: "six channels", mutate: func(c *MediaSourceConfig) { c.Channels = 6 }, wantErr: ErrInvalidChannels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAudioBufferTiming(t *testing.T) {
	buf := &AudioBuffer{
		Timestamp:  2 * time.Second,
		SampleRate: 48000,
		Channels:   2,
		Samples:    make([]int16, 48000), // 24000 frames
	}

	assert.Equal(t, 24000, buf.Frames())
	assert.Equal(t, 500*time.Millisecond, buf.Duration())
	assert.Equal(t, 2500*time.Millisecond, buf.End())

	empty := &AudioBuffer{}
	assert.Equal(t, 0, empty.Frames())
	assert.Equal(t, time.Duration(0), empty.Duration())
}

func TestAudioBufferCloneIsDeep(t *testing.T) {
	buf := &AudioBuffer{SampleRate: 8000, Channels: 1, Samples: []int16{1, 2, 3}}
	clone := buf.Clone()
	clone.Samples[0] = 99

	assert.Equal(t, int16(1), buf.Samples[0])
	assert.Equal(t, buf.SampleRate, clone.SampleRate)
}

func TestMediaKindString(t *testing.T) {
	assert.Equal(t, "video", KindVideo.String())
	assert.Equal(t, "audio", KindAudio.String())
	assert.Equal(t, "unknown", MediaKind(9).String())
}
