package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/reframe/interfaces"
	"github.com/sirupsen/logrus"
)

// Encoder turns retimed PCM buffers into encoded units.
type Encoder interface {
	// Encode converts one buffer and delivers the result to the output callback
	Encode(buf *interfaces.AudioBuffer) error
	// Flush delivers any pending output
	Flush() error
	// Close releases encoder resources
	Close() error
}

// OutputFunc receives encoded units as soon as they are produced.
type OutputFunc func(unit interfaces.EncodedUnit) error

// PCMEncoder produces signed 16-bit little-endian interleaved PCM at a fixed rate and
// channel count, converting layout and rate as needed.
type PCMEncoder struct {
	mu         sync.Mutex
	sampleRate uint32
	channels   uint8
	bitRate    uint32
	output     OutputFunc
	resampler  *Resampler
	inputRate  uint32
	closed     bool
}

// NewPCMEncoder creates an encoder targeting sampleRate and channels (1 or 2).
// bitRate is advisory; PCM size is fixed by the layout.
func NewPCMEncoder(sampleRate uint32, channels uint8, bitRate uint32, output OutputFunc) (*PCMEncoder, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (must be 1 or 2)", channels)
	}
	if output == nil {
		return nil, fmt.Errorf("output callback is required")
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewPCMEncoder",
		"sample_rate": sampleRate,
		"channels":    channels,
		"bit_rate":    bitRate,
	}).Info("Creating PCM encoder")

	return &PCMEncoder{
		sampleRate: sampleRate,
		channels:   channels,
		bitRate:    bitRate,
		output:     output,
	}, nil
}

// Encode converts buf to the target layout and emits one keyframe unit.
func (e *PCMEncoder) Encode(buf *interfaces.AudioBuffer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("encoder closed")
	}
	if buf.Frames() == 0 {
		return nil
	}

	samples := remix(buf.Samples, int(buf.Channels), int(e.channels))
	if buf.SampleRate != e.sampleRate {
		r, err := e.resamplerFor(buf.SampleRate)
		if err != nil {
			return err
		}
		if samples, err = r.Resample(samples); err != nil {
			return fmt.Errorf("resample: %w", err)
		}
	}

	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(sample))
	}

	frames := len(samples) / int(e.channels)
	unit := interfaces.EncodedUnit{
		Kind:      interfaces.KindAudio,
		Timestamp: buf.Timestamp,
		Duration:  time.Duration(int64(frames) * int64(time.Second) / int64(e.sampleRate)),
		Keyframe:  true,
		Data:      data,
	}

	logrus.WithFields(logrus.Fields{
		"function":  "PCMEncoder.Encode",
		"timestamp": unit.Timestamp,
		"frames":    frames,
		"bytes":     len(data),
	}).Debug("Encoded audio buffer")

	return e.output(unit)
}

func (e *PCMEncoder) resamplerFor(rate uint32) (*Resampler, error) {
	if e.resampler != nil && e.inputRate == rate {
		return e.resampler, nil
	}
	r, err := NewResampler(ResamplerConfig{
		InputRate:  rate,
		OutputRate: e.sampleRate,
		Channels:   int(e.channels),
	})
	if err != nil {
		return nil, err
	}
	e.resampler, e.inputRate = r, rate
	return r, nil
}

// remix converts interleaved samples between mono and stereo.
func remix(samples []int16, from, to int) []int16 {
	if from == to {
		return samples
	}
	frames := len(samples) / from
	out := make([]int16, frames*to)
	switch {
	case from == 1 && to == 2:
		for i := 0; i < frames; i++ {
			out[2*i] = samples[i]
			out[2*i+1] = samples[i]
		}
	case from == 2 && to == 1:
		for i := 0; i < frames; i++ {
			out[i] = int16((int32(samples[2*i]) + int32(samples[2*i+1])) / 2)
		}
	}
	return out
}

// SampleRate returns the output sample rate.
func (e *PCMEncoder) SampleRate() uint32 {
	return e.sampleRate
}

// Channels returns the output channel count.
func (e *PCMEncoder) Channels() uint8 {
	return e.channels
}

// Flush is a no-op; PCM has no lookahead.
func (e *PCMEncoder) Flush() error {
	return nil
}

// Close marks the encoder closed. Subsequent Encode calls fail.
func (e *PCMEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	logrus.WithFields(logrus.Fields{
		"function": "PCMEncoder.Close",
	}).Debug("PCM encoder closed")
	return nil
}
