package progress

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrCancelled is the default cancellation cause.
var ErrCancelled = errors.New("render cancelled")

type releaser struct {
	name string
	fn   func() error
}

// Controller owns a run's cancellation flag and release registry.
type Controller struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	mu        sync.Mutex
	releasers []releaser
	released  bool
	once      sync.Once
	err       error
}

// NewController derives the run context from parent. Cancelling parent cancels
// the run.
func NewController(parent context.Context) *Controller {
	ctx, cancel := context.WithCancelCause(parent)
	return &Controller{ctx: ctx, cancel: cancel}
}

// Context returns the run context every suspension point should watch.
func (c *Controller) Context() context.Context {
	return c.ctx
}

// Cancel sets the flag. The first cause wins; nil means ErrCancelled.
func (c *Controller) Cancel(cause error) {
	if cause == nil {
		cause = ErrCancelled
	}
	c.cancel(cause)
}

// Cancelled reports whether the flag is set.
func (c *Controller) Cancelled() bool {
	return c.ctx.Err() != nil
}

// Cause returns why the run was cancelled, or nil.
func (c *Controller) Cause() error {
	return context.Cause(c.ctx)
}

// OnRelease registers fn to run at Release. Callbacks run in reverse registration
// order. Registering after Release runs fn immediately.
func (c *Controller) OnRelease(name string, fn func() error) {
	c.mu.Lock()
	if !c.released {
		c.releasers = append(c.releasers, releaser{name: name, fn: fn})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := fn(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Controller.OnRelease",
			"resource": name,
			"error":    err.Error(),
		}).Warn("Late release failed")
	}
}

// Released reports whether Release has run.
func (c *Controller) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// Release runs every registered callback exactly once and cancels the context.
// Subsequent calls return the first result.
func (c *Controller) Release() error {
	c.once.Do(func() {
		c.mu.Lock()
		rs := c.releasers
		c.releasers = nil
		c.released = true
		c.mu.Unlock()

		var errs []error
		for i := len(rs) - 1; i >= 0; i-- {
			if err := rs[i].fn(); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Controller.Release",
					"resource": rs[i].name,
					"error":    err.Error(),
				}).Warn("Resource release failed")
				errs = append(errs, err)
			}
		}
		c.err = errors.Join(errs...)
		c.cancel(context.Canceled)

		logrus.WithFields(logrus.Fields{
			"function":  "Controller.Release",
			"resources": len(rs),
		}).Debug("Run resources released")
	})
	return c.err
}
