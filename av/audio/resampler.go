package audio

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Resampler converts interleaved PCM between sample rates by linear interpolation.
//
// The resampler is stateful: the last frame of each block and the fractional read
// position carry over so consecutive blocks join without clicks. Output lags input by
// one frame. Call Reset at a discontinuity.
type Resampler struct {
	inputRate  uint32
	outputRate uint32
	channels   int
	lastFrame  []int16
	position   float64
}

// ResamplerConfig holds configuration for creating a resampler.
type ResamplerConfig struct {
	InputRate  uint32 // Input sample rate in Hz
	OutputRate uint32 // Output sample rate in Hz
	Channels   int    // Number of audio channels (1=mono, 2=stereo)
}

// NewResampler validates config and creates a resampler.
func NewResampler(config ResamplerConfig) (*Resampler, error) {
	if config.InputRate == 0 || config.OutputRate == 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewResampler",
			"input_rate":  config.InputRate,
			"output_rate": config.OutputRate,
			"error":       "invalid sample rates",
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("invalid sample rates: input=%d, output=%d", config.InputRate, config.OutputRate)
	}

	if config.Channels < 1 || config.Channels > 2 {
		logrus.WithFields(logrus.Fields{
			"function": "NewResampler",
			"channels": config.Channels,
			"error":    "unsupported channel count",
		}).Error("Channel count validation failed")
		return nil, fmt.Errorf("unsupported channel count: %d (must be 1 or 2)", config.Channels)
	}

	return &Resampler{
		inputRate:  config.InputRate,
		outputRate: config.OutputRate,
		channels:   config.Channels,
		lastFrame:  make([]int16, config.Channels),
	}, nil
}

func validateResamplerInput(input []int16, channels int) error {
	if len(input) == 0 {
		return fmt.Errorf("empty input samples")
	}
	if len(input)%channels != 0 {
		return fmt.Errorf("input samples (%d) not aligned to channel count (%d)", len(input), channels)
	}
	return nil
}

// Resample converts one block. Output length tracks input*outputRate/inputRate over
// consecutive calls; any single block may be one frame longer or shorter.
func (r *Resampler) Resample(input []int16) ([]int16, error) {
	if err := validateResamplerInput(input, r.channels); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Resample",
			"error":    err.Error(),
		}).Error("Input validation failed")
		return nil, err
	}

	if r.inputRate == r.outputRate {
		result := make([]int16, len(input))
		copy(result, input)
		return result, nil
	}

	ratio := float64(r.inputRate) / float64(r.outputRate)
	inputFrames := len(input) / r.channels
	output := make([]int16, 0, int(float64(inputFrames)/ratio+2)*r.channels)

	// Position p interpolates between frame floor(p)-1 and floor(p); frame -1 is the
	// last frame of the previous block.
	for r.position < float64(inputFrames) {
		index := int(r.position)
		frac := r.position - float64(index)
		for ch := 0; ch < r.channels; ch++ {
			prev := r.frameSample(input, index-1, ch)
			next := input[index*r.channels+ch]
			output = append(output, int16(float64(prev)*(1-frac)+float64(next)*frac))
		}
		r.position += ratio
	}

	r.position -= float64(inputFrames)
	copy(r.lastFrame, input[len(input)-r.channels:])

	logrus.WithFields(logrus.Fields{
		"function":      "Resample",
		"input_frames":  inputFrames,
		"output_frames": len(output) / r.channels,
		"ratio":         ratio,
	}).Debug("Resampled block")

	return output, nil
}

func (r *Resampler) frameSample(input []int16, index, ch int) int16 {
	if index < 0 {
		return r.lastFrame[ch]
	}
	return input[index*r.channels+ch]
}

// GetInputRate returns the configured input sample rate.
func (r *Resampler) GetInputRate() uint32 {
	return r.inputRate
}

// GetOutputRate returns the configured output sample rate.
func (r *Resampler) GetOutputRate() uint32 {
	return r.outputRate
}

// GetChannels returns the configured number of channels.
func (r *Resampler) GetChannels() int {
	return r.channels
}

// CalculateOutputSize estimates the output size for a given input size.
func (r *Resampler) CalculateOutputSize(inputSize int) int {
	if r.inputRate == r.outputRate {
		return inputSize
	}
	ratio := float64(r.outputRate) / float64(r.inputRate)
	return int(float64(inputSize)*ratio + 0.5)
}

// Reset clears interpolation history.
func (r *Resampler) Reset() {
	r.position = 0
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// Close releases resampler resources.
func (r *Resampler) Close() error {
	return nil
}
