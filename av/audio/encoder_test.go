package audio

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/opd-ai/reframe/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(units *[]interfaces.EncodedUnit) OutputFunc {
	return func(u interfaces.EncodedUnit) error {
		*units = append(*units, u)
		return nil
	}
}

func TestNewPCMEncoderValidation(t *testing.T) {
	var units []interfaces.EncodedUnit
	_, err := NewPCMEncoder(0, 2, 128000, collect(&units))
	assert.Error(t, err)
	_, err = NewPCMEncoder(48000, 3, 128000, collect(&units))
	assert.Error(t, err)
	_, err = NewPCMEncoder(48000, 2, 128000, nil)
	assert.Error(t, err)
}

func TestPCMEncoderLittleEndian(t *testing.T) {
	var units []interfaces.EncodedUnit
	enc, err := NewPCMEncoder(48000, 2, 128000, collect(&units))
	require.NoError(t, err)

	buf := &interfaces.AudioBuffer{
		Timestamp:  250 * time.Millisecond,
		SampleRate: 48000,
		Channels:   2,
		Samples:    []int16{1, -2, 300, -32768},
	}
	require.NoError(t, enc.Encode(buf))
	require.Len(t, units, 1)

	u := units[0]
	assert.Equal(t, interfaces.KindAudio, u.Kind)
	assert.True(t, u.Keyframe)
	assert.Equal(t, 250*time.Millisecond, u.Timestamp)
	require.Len(t, u.Data, 8)
	assert.Equal(t, int16(-2), int16(binary.LittleEndian.Uint16(u.Data[2:])))
	assert.Equal(t, int16(-32768), int16(binary.LittleEndian.Uint16(u.Data[6:])))
}

func TestPCMEncoderRemixAndResample(t *testing.T) {
	var units []interfaces.EncodedUnit
	enc, err := NewPCMEncoder(48000, 2, 128000, collect(&units))
	require.NoError(t, err)

	mono := &interfaces.AudioBuffer{SampleRate: 8000, Channels: 1, Samples: make([]int16, 800)}
	require.NoError(t, enc.Encode(mono))
	require.Len(t, units, 1)
	frames := len(units[0].Data) / 4
	assert.InDelta(t, 4800, frames, 1)
	assert.InDelta(t, float64(100*time.Millisecond), float64(units[0].Duration), float64(time.Millisecond))

	assert.Equal(t, []int16{200, -5}, remix([]int16{100, 300, -10, 0}, 2, 1))
	assert.Equal(t, []int16{7, 7, 8, 8}, remix([]int16{7, 8}, 1, 2))
}

func TestPCMEncoderClosed(t *testing.T) {
	var units []interfaces.EncodedUnit
	enc, err := NewPCMEncoder(48000, 2, 128000, collect(&units))
	require.NoError(t, err)

	require.NoError(t, enc.Encode(&interfaces.AudioBuffer{SampleRate: 48000, Channels: 2}))
	assert.Empty(t, units, "empty buffers produce no units")

	require.NoError(t, enc.Close())
	err = enc.Encode(&interfaces.AudioBuffer{SampleRate: 48000, Channels: 2, Samples: []int16{1, 1}})
	assert.Error(t, err)
}
