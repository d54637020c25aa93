package av

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/opd-ai/reframe/interfaces"
	"github.com/sirupsen/logrus"
)

// Controller owns the encode/mux lifecycle of one run.
//
// All methods are safe for concurrent use. Video and audio submissions are serialized
// under one mutex; within a kind, timestamps must be non-decreasing.
type Controller struct {
	mu      sync.Mutex
	backend EncoderBackend
	cfg     EncoderConfig
	state   EncoderState
	err     error

	keyframeEvery int64
	videoTicks    int64
	haveVideo     bool
	haveAudio     bool
	lastVideoTS   time.Duration
	lastAudioTS   time.Duration

	metrics       *EncodeMetrics
	timeProvider  TimeProvider
	stateCallback func(from, to EncoderState)

	releaseOnce sync.Once
	releaseErr  error
}

// NewController validates cfg and binds backend. Nothing is opened until Configure.
func NewController(backend EncoderBackend, cfg EncoderConfig) (*Controller, error) {
	if backend == nil {
		return nil, errors.New("encoder backend cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewController",
			"error":    err.Error(),
		}).Error("Encoder config validation failed")
		return nil, err
	}

	return &Controller{
		backend:       backend,
		cfg:           cfg,
		state:         StateIdle,
		keyframeEvery: cfg.KeyframeEvery(),
		metrics:       NewEncodeMetrics(),
		timeProvider:  DefaultTimeProvider{},
	}, nil
}

// SetTimeProvider replaces the clock used for encode latency metrics.
func (c *Controller) SetTimeProvider(tp TimeProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	c.timeProvider = tp
}

// OnStateChange registers a callback invoked on every transition. It runs with the
// controller lock held and must not call back into the controller.
func (c *Controller) OnStateChange(fn func(from, to EncoderState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateCallback = fn
}

// State returns the current lifecycle state.
func (c *Controller) State() EncoderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that moved the controller to Errored, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Config returns the encoder configuration.
func (c *Controller) Config() EncoderConfig {
	return c.cfg
}

// Metrics returns a snapshot of encode statistics.
func (c *Controller) Metrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// setState must be called with c.mu held.
func (c *Controller) setState(to EncoderState) {
	from := c.state
	c.state = to

	logrus.WithFields(logrus.Fields{
		"function": "Controller.setState",
		"backend":  c.backend.Name(),
		"from":     from.String(),
		"to":       to.String(),
	}).Debug("Encoder state transition")

	if c.stateCallback != nil {
		c.stateCallback(from, to)
	}
}

// fail must be called with c.mu held. It records err, moves to Errored and releases
// the backend.
func (c *Controller) fail(op string, err error) error {
	if c.state.Terminal() {
		return err
	}
	c.err = err
	c.setState(StateErrored)

	logrus.WithFields(logrus.Fields{
		"function": op,
		"backend":  c.backend.Name(),
		"error":    err.Error(),
	}).Error("Encode pipeline failed")

	c.release()
	return err
}

// Configure opens the backend and enters Encoding.
func (c *Controller) Configure(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("%w: configure in state %s", ErrInvalidTransition, c.state)
	}
	c.setState(StateConfiguring)

	if err := c.backend.Open(ctx, c.cfg); err != nil {
		return c.fail("Controller.Configure", wrapDefault(err, ErrEncoder))
	}

	c.setState(StateEncoding)

	logrus.WithFields(logrus.Fields{
		"function":       "Controller.Configure",
		"backend":        c.backend.Name(),
		"width":          c.cfg.Width,
		"height":         c.cfg.Height,
		"frame_rate":     c.cfg.FrameRate,
		"keyframe_every": c.keyframeEvery,
	}).Info("Encoder configured")

	return nil
}

// SubmitVideo encodes one composited frame stamped at output time ts. Keyframes are
// forced every KeyframeEvery ticks starting with the first frame. img may be reused by
// the caller once SubmitVideo returns.
func (c *Controller) SubmitVideo(img image.Image, ts time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateEncoding {
		return c.rejection("video")
	}
	if c.haveVideo && ts < c.lastVideoTS {
		return c.fail("Controller.SubmitVideo", fmt.Errorf("%w: %w: video %v after %v",
			ErrEncoder, ErrTimestampRegression, ts, c.lastVideoTS))
	}

	keyframe := c.videoTicks%c.keyframeEvery == 0
	start := c.timeProvider.Now()
	if err := c.backend.EncodeVideo(img, ts, keyframe); err != nil {
		return c.fail("Controller.SubmitVideo", wrapDefault(err, ErrEncoder))
	}

	c.metrics.recordVideo(ts, keyframe, c.timeProvider.Now().Sub(start))
	c.videoTicks++
	c.haveVideo = true
	c.lastVideoTS = ts
	return nil
}

// SubmitAudio encodes one retimed audio buffer.
func (c *Controller) SubmitAudio(buf *interfaces.AudioBuffer) error {
	if buf == nil {
		return fmt.Errorf("%w: nil audio buffer", ErrEncoder)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateEncoding {
		return c.rejection("audio")
	}
	if c.haveAudio && buf.Timestamp < c.lastAudioTS {
		return c.fail("Controller.SubmitAudio", fmt.Errorf("%w: %w: audio %v after %v",
			ErrEncoder, ErrTimestampRegression, buf.Timestamp, c.lastAudioTS))
	}

	if err := c.backend.EncodeAudio(buf); err != nil {
		return c.fail("Controller.SubmitAudio", wrapDefault(err, ErrEncoder))
	}

	c.metrics.recordAudio(buf.Timestamp, buf.Frames())
	c.haveAudio = true
	c.lastAudioTS = buf.Timestamp
	return nil
}

// rejection must be called with c.mu held.
func (c *Controller) rejection(kind string) error {
	if c.state == StateErrored && c.err != nil {
		return c.err
	}
	return fmt.Errorf("%w: submit %s in state %s", ErrInvalidTransition, kind, c.state)
}

// Finish flushes the backend, finalizes the container and releases resources.
func (c *Controller) Finish(ctx context.Context) (*Container, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateEncoding {
		if c.state == StateErrored && c.err != nil {
			return nil, c.err
		}
		return nil, fmt.Errorf("%w: finish in state %s", ErrInvalidTransition, c.state)
	}
	c.setState(StateFlushing)

	if err := c.backend.Flush(ctx); err != nil {
		return nil, c.fail("Controller.Finish", c.classify(ctx, err, ErrEncoder))
	}

	container, err := c.backend.Finalize(ctx)
	if err != nil {
		return nil, c.fail("Controller.Finish", c.classify(ctx, err, ErrMux))
	}

	c.setState(StateFinalized)
	c.release()

	snap := c.metrics.Snapshot()
	logrus.WithFields(logrus.Fields{
		"function":      "Controller.Finish",
		"backend":       c.backend.Name(),
		"video_frames":  snap.VideoFrames,
		"keyframes":     snap.Keyframes,
		"audio_buffers": snap.AudioBuffers,
		"bytes":         len(container.Data),
		"mime":          container.MIME,
	}).Info("Container finalized")

	return container, nil
}

// Cancel stops accepting units, flushes pending encoder output, discards the
// container and releases resources. cause is recorded as the terminal error; nil
// means context.Canceled. Cancel on a terminal controller is a no-op.
func (c *Controller) Cancel(cause error) {
	if cause == nil {
		cause = context.Canceled
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return
	}
	if c.state == StateEncoding {
		c.setState(StateFlushing)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := c.backend.Flush(ctx); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Controller.Cancel",
				"error":    err.Error(),
			}).Warn("Flush during cancellation failed")
		}
		cancel()
	}

	logrus.WithFields(logrus.Fields{
		"function": "Controller.Cancel",
		"backend":  c.backend.Name(),
		"cause":    cause.Error(),
	}).Info("Encoding cancelled")

	c.err = cause
	c.setState(StateErrored)
	c.release()
}

// Release closes the backend. It is idempotent and safe from any state; a run that
// is still Encoding is cancelled first.
func (c *Controller) Release() error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if !state.Terminal() && state != StateIdle {
		c.Cancel(nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.release()
}

// release must be called with c.mu held.
func (c *Controller) release() error {
	c.releaseOnce.Do(func() {
		c.releaseErr = c.backend.Close()
		logrus.WithFields(logrus.Fields{
			"function": "Controller.release",
			"backend":  c.backend.Name(),
		}).Debug("Encoder backend released")
	})
	return c.releaseErr
}

func (c *Controller) classify(ctx context.Context, err, sentinel error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	return wrapDefault(err, sentinel)
}

// wrapDefault tags err with sentinel unless it already carries an encode or mux tag.
func wrapDefault(err, sentinel error) error {
	if errors.Is(err, ErrEncoder) || errors.Is(err, ErrMux) || errors.Is(err, ErrUnsupportedEnvironment) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
