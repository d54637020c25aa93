package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

// AudioEffect processes interleaved PCM samples in place or into a new slice.
type AudioEffect interface {
	// Process applies the effect and returns the resulting samples
	Process(samples []int16) ([]int16, error)

	// GetName returns a human-readable name for the effect
	GetName() string

	// Close releases any resources used by the effect
	Close() error
}

// GainEffect applies a linear gain in [0, 1].
//
// Values outside the range are clamped with a warning; amplification is not supported
// because the output chain has no limiter.
type GainEffect struct {
	gain float64
}

// NewGainEffect creates a gain stage, clamping gain into [0, 1].
func NewGainEffect(gain float64) *GainEffect {
	clamped := math.Max(0, math.Min(1, gain))
	if clamped != gain {
		logrus.WithFields(logrus.Fields{
			"function": "NewGainEffect",
			"gain":     gain,
			"clamped":  clamped,
		}).Warn("Gain out of range, clamping")
	}
	return &GainEffect{gain: clamped}
}

// Process multiplies each sample by the gain. Unity gain is a no-op.
func (g *GainEffect) Process(samples []int16) ([]int16, error) {
	if g.gain == 1.0 || len(samples) == 0 {
		return samples, nil
	}
	for i, sample := range samples {
		samples[i] = int16(math.Round(float64(sample) * g.gain))
	}
	return samples, nil
}

// GetName returns the effect name for debugging and logging.
func (g *GainEffect) GetName() string {
	return fmt.Sprintf("Gain(%.2f)", g.gain)
}

// GetGain returns the effective (clamped) gain.
func (g *GainEffect) GetGain() float64 {
	return g.gain
}

// Close is a no-op.
func (g *GainEffect) Close() error {
	return nil
}

// TempoEffect changes playback speed by resampling: sampleRate*speed input frames
// become sampleRate output frames.
type TempoEffect struct {
	speed     float64
	resampler *Resampler
}

// NewTempoEffect creates a tempo stage for the given layout.
func NewTempoEffect(speed float64, sampleRate uint32, channels int) (*TempoEffect, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("speed must be positive: %f", speed)
	}
	inputRate := uint32(math.Round(float64(sampleRate) * speed))
	r, err := NewResampler(ResamplerConfig{
		InputRate:  inputRate,
		OutputRate: sampleRate,
		Channels:   channels,
	})
	if err != nil {
		return nil, fmt.Errorf("tempo resampler: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewTempoEffect",
		"speed":       speed,
		"sample_rate": sampleRate,
		"channels":    channels,
	}).Debug("Created tempo stage")

	return &TempoEffect{speed: speed, resampler: r}, nil
}

// Process resamples the block; unity speed passes samples through untouched.
func (t *TempoEffect) Process(samples []int16) ([]int16, error) {
	if t.speed == 1.0 || len(samples) == 0 {
		return samples, nil
	}
	return t.resampler.Resample(samples)
}

// Reset clears interpolation history at a discontinuity.
func (t *TempoEffect) Reset() {
	t.resampler.Reset()
}

// GetName returns the effect name for debugging and logging.
func (t *TempoEffect) GetName() string {
	return fmt.Sprintf("Tempo(%.2fx)", t.speed)
}

// Close releases the underlying resampler.
func (t *TempoEffect) Close() error {
	return t.resampler.Close()
}

// EffectChain applies effects sequentially. Processing stops at the first error.
type EffectChain struct {
	mu      sync.Mutex
	effects []AudioEffect
}

// NewEffectChain creates an empty chain.
func NewEffectChain() *EffectChain {
	return &EffectChain{effects: make([]AudioEffect, 0)}
}

// AddEffect appends an effect to the end of the chain.
func (e *EffectChain) AddEffect(effect AudioEffect) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":     "EffectChain.AddEffect",
		"effect_name":  effect.GetName(),
		"new_position": len(e.effects),
	}).Debug("Adding effect to audio chain")

	e.effects = append(e.effects, effect)
}

// Process runs samples through every effect in order.
func (e *EffectChain) Process(samples []int16) ([]int16, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := samples
	for i, effect := range e.effects {
		processed, err := effect.Process(current)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":     "EffectChain.Process",
				"effect_index": i,
				"effect_name":  effect.GetName(),
				"error":        err.Error(),
			}).Error("Effect processing failed")
			return nil, fmt.Errorf("effect %d (%s) failed: %w", i, effect.GetName(), err)
		}
		current = processed
	}
	return current, nil
}

// GetEffectNames returns the names of all effects in order.
func (e *EffectChain) GetEffectNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, len(e.effects))
	for i, effect := range e.effects {
		names[i] = effect.GetName()
	}
	return names
}

// Close closes every effect and empties the chain, returning the last error seen.
func (e *EffectChain) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var lastErr error
	for _, effect := range e.effects {
		if err := effect.Close(); err != nil {
			lastErr = err
		}
	}
	e.effects = e.effects[:0]
	return lastErr
}
