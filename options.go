package reframe

import (
	"time"

	"github.com/opd-ai/reframe/av"
	"github.com/opd-ai/reframe/limits"
)

// ProgressFunc receives a percentage in [0, 100]. Values are non-decreasing
// within a run and the last call of a successful run reports 100.
type ProgressFunc func(percent float64)

// Option customizes a single Render call.
type Option func(*options)

type options struct {
	backend   av.EncoderBackend
	seed      int64
	seeded    bool
	width     int
	height    int
	frameRate int
	timeSrc   av.TimeProvider
}

func defaultOptions() *options {
	return &options{
		width:     limits.OutputWidth,
		height:    limits.OutputHeight,
		frameRate: limits.FrameRate,
	}
}

// WithBackend selects the encoder backend. The default is av.NewChunkBackend().
// Render closes the backend when the run ends.
func WithBackend(backend av.EncoderBackend) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithSeed fixes the film grain pattern and its per-frame offsets. Without it
// each run draws a fresh seed.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithOutputSize overrides the output raster, 1080x1920 by default.
func WithOutputSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithFrameRate overrides the constant output frame rate.
func WithFrameRate(fps int) Option {
	return func(o *options) {
		o.frameRate = fps
	}
}

// WithTimeProvider replaces the clock used for encode latency metrics.
func WithTimeProvider(tp av.TimeProvider) Option {
	return func(o *options) {
		o.timeSrc = tp
	}
}

func (o *options) resolveSeed() int64 {
	if o.seeded {
		return o.seed
	}
	return time.Now().UnixNano()
}
