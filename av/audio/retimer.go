package audio

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/opd-ai/reframe/interfaces"
	"github.com/opd-ai/reframe/timeline"
	"github.com/sirupsen/logrus"
)

// ErrNoSegment is returned when Process is called before BeginSegment.
var ErrNoSegment = errors.New("retimer has no active segment")

// Verdict tells the audio loop what happened to a buffer.
type Verdict int

const (
	// VerdictEmit means the returned buffer should be encoded.
	VerdictEmit Verdict = iota
	// VerdictSkip means the buffer ended before the segment started.
	VerdictSkip
	// VerdictSegmentDone means the buffer starts at or after the segment end; the
	// segment is closed and the caller should stop reading.
	VerdictSegmentDone
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictEmit:
		return "emit"
	case VerdictSkip:
		return "skip"
	case VerdictSegmentDone:
		return "segment_done"
	default:
		return "unknown"
	}
}

// RetimerConfig configures the gain and tempo stages.
type RetimerConfig struct {
	Volume float64
	Speed  float64
}

// Retimer clips source buffers to the active segment, runs them through a gain then
// tempo effect chain, and re-stamps them on the output clock.
type Retimer struct {
	speed float64
	gain  *GainEffect

	// chain is rebuilt whenever the source sample rate or channel layout changes.
	chain        *EffectChain
	tempo        *TempoEffect
	chainRate    uint32
	chainLayout  uint8
	seg          timeline.Segment
	clock        *timeline.Clock
	active       bool
	emittedUntil time.Duration
}

// NewRetimer creates a retimer. Volume is clamped to [0, 1]; speed must be a positive
// finite number.
func NewRetimer(cfg RetimerConfig) (*Retimer, error) {
	if !(cfg.Speed > 0) || math.IsInf(cfg.Speed, 0) {
		return nil, fmt.Errorf("speed must be positive: %f", cfg.Speed)
	}
	return &Retimer{
		speed: cfg.Speed,
		gain:  NewGainEffect(cfg.Volume),
	}, nil
}

// BeginSegment activates seg. The clock must already reflect all previous segments.
func (r *Retimer) BeginSegment(seg timeline.Segment, clock *timeline.Clock) {
	r.seg = seg
	r.clock = clock
	r.active = true
	r.emittedUntil = seg.Start
	if r.tempo != nil {
		r.tempo.Reset()
	}

	logrus.WithFields(logrus.Fields{
		"function": "Retimer.BeginSegment",
		"gain":     r.gain.GetGain(),
		"segment":  seg.String(),
		"clock":    clock.Now(),
	}).Debug("Audio segment opened")
}

// Process retimes one source buffer. The input is never mutated.
func (r *Retimer) Process(buf *interfaces.AudioBuffer) (*interfaces.AudioBuffer, Verdict, error) {
	if !r.active {
		return nil, VerdictSkip, ErrNoSegment
	}
	if buf.Timestamp >= r.seg.End {
		r.active = false
		return nil, VerdictSegmentDone, nil
	}
	if buf.End() <= r.seg.Start || buf.End() <= r.emittedUntil || buf.Frames() == 0 {
		return nil, VerdictSkip, nil
	}

	clip := r.clip(buf)
	if clip.Frames() == 0 {
		return nil, VerdictSkip, nil
	}
	r.emittedUntil = clip.End()

	chain, err := r.chainFor(clip.SampleRate, clip.Channels)
	if err != nil {
		return nil, VerdictSkip, err
	}
	samples, err := chain.Process(clip.Samples)
	if err != nil {
		return nil, VerdictSkip, err
	}

	out := &interfaces.AudioBuffer{
		Timestamp:  r.clock.ToOutput(r.seg, clip.Timestamp),
		SampleRate: clip.SampleRate,
		Channels:   clip.Channels,
		Samples:    samples,
	}

	logrus.WithFields(logrus.Fields{
		"function":      "Retimer.Process",
		"source_ts":     buf.Timestamp,
		"output_ts":     out.Timestamp,
		"input_frames":  buf.Frames(),
		"output_frames": out.Frames(),
	}).Debug("Retimed audio buffer")

	return out, VerdictEmit, nil
}

// clip copies the part of buf inside [max(seg.Start, emittedUntil), seg.End).
func (r *Retimer) clip(buf *interfaces.AudioBuffer) *interfaces.AudioBuffer {
	channels := int(buf.Channels)
	frames := buf.Frames()
	rate := int64(buf.SampleRate)

	first := 0
	if lead := r.emittedUntil - buf.Timestamp; lead > 0 {
		first = int((int64(lead)*rate + int64(time.Second) - 1) / int64(time.Second))
	}
	last := frames
	if tail := r.seg.End - buf.Timestamp; tail < buf.Duration() {
		last = int((int64(tail)*rate + int64(time.Second) - 1) / int64(time.Second))
	}
	if first > frames {
		first = frames
	}
	if last < first {
		last = first
	}

	samples := make([]int16, (last-first)*channels)
	copy(samples, buf.Samples[first*channels:last*channels])
	return &interfaces.AudioBuffer{
		Timestamp:  buf.Timestamp + time.Duration(int64(first)*int64(time.Second)/rate),
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
		Samples:    samples,
	}
}

// chainFor returns the gain/tempo chain for a buffer layout, building a fresh one
// when the layout differs from the previous buffer's.
func (r *Retimer) chainFor(rate uint32, channels uint8) (*EffectChain, error) {
	if r.chain != nil && r.chainRate == rate && r.chainLayout == channels {
		return r.chain, nil
	}
	tempo, err := NewTempoEffect(r.speed, rate, int(channels))
	if err != nil {
		return nil, err
	}
	if r.chain != nil {
		if err := r.chain.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Retimer.chainFor",
				"error":    err.Error(),
			}).Warn("Closing previous audio chain failed")
		}
	}

	chain := NewEffectChain()
	chain.AddEffect(r.gain)
	chain.AddEffect(tempo)
	r.chain, r.tempo, r.chainRate, r.chainLayout = chain, tempo, rate, channels

	logrus.WithFields(logrus.Fields{
		"function":    "Retimer.chainFor",
		"sample_rate": rate,
		"channels":    channels,
		"effects":     chain.GetEffectNames(),
	}).Debug("Built audio effect chain")

	return chain, nil
}

// Stages returns the names of the active effect stages, empty before the first buffer.
func (r *Retimer) Stages() []string {
	if r.chain == nil {
		return nil
	}
	return r.chain.GetEffectNames()
}

// Close releases the effect chain.
func (r *Retimer) Close() error {
	if r.chain == nil {
		return nil
	}
	err := r.chain.Close()
	r.chain, r.tempo = nil, nil
	return err
}
