package reframe

import (
	"context"
	"errors"
	"fmt"

	"github.com/opd-ai/reframe/av"
	"github.com/opd-ai/reframe/av/video"
	"github.com/opd-ai/reframe/config"
	"github.com/opd-ai/reframe/interfaces"
	"github.com/opd-ai/reframe/limits"
	"github.com/opd-ai/reframe/progress"
	"github.com/opd-ai/reframe/timeline"
)

// Sentinels re-exported so callers need not import the component packages.
var (
	ErrInvalidRange           = timeline.ErrInvalidRange
	ErrInvalidConfig          = config.ErrInvalidConfig
	ErrUnsupportedEnvironment = av.ErrUnsupportedEnvironment
	ErrSurfaceUnavailable     = video.ErrSurfaceUnavailable
	ErrEncoder                = av.ErrEncoder
	ErrMux                    = av.ErrMux
	ErrCancelled              = progress.ErrCancelled
)

// ErrNilSource is returned when Render is called without a media source.
var ErrNilSource = errors.New("media source cannot be nil")

// ErrorKind tells the caller what kind of action a failure calls for.
type ErrorKind int

const (
	// KindInternal is an encoder, muxer, surface or decoder failure.
	KindInternal ErrorKind = iota
	// KindInput means the configuration or the source is unusable as given.
	KindInput
	// KindCapability means the runtime lacks a required encode capability.
	KindCapability
	// KindCancelled means the run was aborted.
	KindCancelled
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindCapability:
		return "capability"
	case KindInternal:
		return "internal"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// RenderError is the only error type Render returns.
type RenderError struct {
	Kind ErrorKind
	// Op names the pipeline step that failed, e.g. "plan" or "segment 2".
	Op  string
	Err error
}

// Error implements error.
func (e *RenderError) Error() string {
	return fmt.Sprintf("reframe: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is matches another *RenderError of the same Kind, so
// errors.Is(err, &RenderError{Kind: KindInput}) selects input failures.
func (e *RenderError) Is(target error) bool {
	t, ok := target.(*RenderError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// newRenderError classifies err and wraps it. A *RenderError is returned unchanged.
func newRenderError(op string, err error) *RenderError {
	var rerr *RenderError
	if errors.As(err, &rerr) {
		return rerr
	}

	kind := classify(err)
	if kind == KindCancelled && !errors.Is(err, ErrCancelled) {
		err = fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return &RenderError{Kind: kind, Op: op, Err: err}
}

// newCancelledError records cause as the reason a run was aborted.
func newCancelledError(op string, cause error) *RenderError {
	if cause == nil {
		cause = ErrCancelled
	}
	if !errors.Is(cause, ErrCancelled) {
		cause = fmt.Errorf("%w: %w", ErrCancelled, cause)
	}
	return &RenderError{Kind: KindCancelled, Op: op, Err: cause}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrUnsupportedEnvironment):
		return KindCapability
	case errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrNilSource),
		errors.Is(err, config.ErrInvalidColor),
		errors.Is(err, limits.ErrOutOfRange),
		errors.Is(err, limits.ErrInvalidDimensions),
		errors.Is(err, av.ErrInvalidEncoderConfig),
		errors.Is(err, interfaces.ErrInvalidFrameRate):
		return KindInput
	default:
		return KindInternal
	}
}
