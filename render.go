package reframe

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/reframe/av"
	"github.com/opd-ai/reframe/av/audio"
	"github.com/opd-ai/reframe/av/video"
	"github.com/opd-ai/reframe/config"
	"github.com/opd-ai/reframe/interfaces"
	"github.com/opd-ai/reframe/progress"
	"github.com/opd-ai/reframe/timeline"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

// run holds the per-call pipeline state.
type run struct {
	id   uuid.UUID
	src  interfaces.MediaSource
	cfg  *config.TransformConfig
	opts *options
	plan *timeline.Plan

	ctrl       *progress.Controller
	enc        *av.Controller
	compositor *video.Compositor
	retimer    *audio.Retimer
	clock      *timeline.Clock
	tracker    *progress.Tracker

	// nextTick is the index of the next output frame on the constant-rate grid.
	nextTick int64
}

// Render transforms src into an encoded container.
//
// overlay is the optional cover image. A nil cfg renders with config.Default().
// onProgress may be nil. Render owns src and the encoder backend: both are closed
// exactly once before it returns, whichever way the run ends. Cancelling ctx aborts
// the run within one frame interval.
func Render(ctx context.Context, src interfaces.MediaSource, overlay image.Image, cfg *config.TransformConfig, onProgress ProgressFunc, opts ...Option) (*Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if src == nil {
		return nil, newRenderError("open", ErrNilSource)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	r := &run{
		id:   uuid.New(),
		src:  src,
		opts: o,
		ctrl: progress.NewController(ctx),
	}
	r.ctrl.OnRelease("source", src.Close)
	defer r.release()

	logrus.WithFields(logrus.Fields{
		"function": "Render",
		"run_id":   r.id.String(),
		"width":    o.width,
		"height":   o.height,
		"fps":      o.frameRate,
	}).Info("Starting render")

	if err := r.prepare(cfg, overlay, onProgress); err != nil {
		return nil, err
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	if err := r.renderSegments(); err != nil {
		return nil, err
	}
	return r.finish()
}

// prepare validates everything that can be checked without opening an encoder.
func (r *run) prepare(cfg *config.TransformConfig, overlay image.Image, onProgress ProgressFunc) error {
	if err := cfg.Validate(); err != nil {
		return r.fail("validate", err)
	}
	r.cfg = cfg.Normalize()

	plan, err := timeline.BuildPlan(r.src.Duration(), r.cfg.TrimStartDuration(), r.cfg.TrimEndDuration(), r.cfg.ShuffleSegments)
	if err != nil {
		return r.fail("plan", err)
	}
	r.plan = plan

	encCfg := av.EncoderConfigFor(r.opts.width, r.opts.height, r.opts.frameRate)
	if err := encCfg.Validate(); err != nil {
		return r.fail("configure", err)
	}

	backend := r.opts.backend
	if backend == nil {
		backend = av.NewChunkBackend()
	}
	enc, err := av.NewController(backend, encCfg)
	if err != nil {
		return r.fail("configure", err)
	}
	if r.opts.timeSrc != nil {
		enc.SetTimeProvider(r.opts.timeSrc)
	}
	r.enc = enc
	r.ctrl.OnRelease("encoder", enc.Release)

	r.compositor, err = video.NewCompositor(video.CompositorConfig{
		Width:     encCfg.Width,
		Height:    encCfg.Height,
		Transform: r.cfg,
		Overlay:   overlay,
		Seed:      r.opts.resolveSeed(),
	})
	if err != nil {
		return r.fail("compositor", err)
	}

	r.retimer, err = audio.NewRetimer(audio.RetimerConfig{Volume: r.cfg.Volume, Speed: r.cfg.Speed})
	if err != nil {
		return r.fail("retimer", fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}
	r.ctrl.OnRelease("retimer", r.retimer.Close)

	r.clock = timeline.NewClock(r.cfg.Speed)
	r.tracker = progress.NewTracker(len(plan.Segments), progress.Func(onProgress))
	return nil
}

// open transitions the encoder to Encoding.
func (r *run) open() error {
	if err := r.enc.Configure(r.ctrl.Context()); err != nil {
		return r.abort("configure", err)
	}
	return nil
}

func (r *run) renderSegments() error {
	ctx := r.ctrl.Context()
	for i, seg := range r.plan.Segments {
		op := fmt.Sprintf("segment %d", i)
		if ctx.Err() != nil {
			return r.abort(op, ctx.Err())
		}

		r.tracker.BeginSegment(i, seg)
		if err := r.src.Seek(ctx, seg.Start); err != nil {
			return r.abort(op, fmt.Errorf("seek to %v: %w", seg.Start, err))
		}
		r.retimer.BeginSegment(seg, r.clock)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return r.videoLoop(gctx, seg) })
		g.Go(func() error { return r.audioLoop(gctx) })
		if err := g.Wait(); err != nil {
			return r.abort(op, err)
		}

		now := r.clock.Advance(seg)
		logrus.WithFields(logrus.Fields{
			"function": "Render",
			"run_id":   r.id.String(),
			"segment":  seg.String(),
			"index":    i,
			"clock":    now,
		}).Debug("Segment complete")
	}
	return nil
}

// tickTime returns the output timestamp of frame n on the constant-rate grid.
func (r *run) tickTime(n int64) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(r.opts.frameRate)
}

// videoLoop emits every output tick inside the segment. Each tick shows the latest
// decoded frame whose source time is at or before the tick's source time.
func (r *run) videoLoop(ctx context.Context, seg timeline.Segment) error {
	outStart := r.clock.Now()
	outEnd := r.clock.SegmentEnd(seg)
	speed := r.clock.Speed()

	var held, ahead *interfaces.VideoFrame
	eof := false

	for ; ; r.nextTick++ {
		ts := r.tickTime(r.nextTick)
		if ts >= outEnd {
			return nil
		}
		if ts < outStart {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		cursor := seg.Start + time.Duration(float64(ts-outStart)*speed)
		for !eof {
			if ahead == nil {
				f, err := r.src.NextVideoFrame(ctx)
				if errors.Is(err, io.EOF) {
					eof = true
					break
				}
				if err != nil {
					return fmt.Errorf("read video frame: %w", err)
				}
				ahead = f
			}
			if held != nil && ahead.Timestamp > cursor {
				break
			}
			held, ahead = ahead, nil
		}
		if held == nil {
			return nil
		}

		img, err := r.compositor.Compose(held.Image)
		if err != nil {
			return err
		}
		if err := r.enc.SubmitVideo(img, ts); err != nil {
			return err
		}
		r.tracker.Observe(cursor)
	}
}

// audioLoop retimes buffers until the segment closes or the source runs dry.
func (r *run) audioLoop(ctx context.Context) error {
	for {
		buf, err := r.src.NextAudioBuffer(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read audio buffer: %w", err)
		}

		out, verdict, err := r.retimer.Process(buf)
		if err != nil {
			return fmt.Errorf("%w: retime: %v", ErrEncoder, err)
		}
		switch verdict {
		case audio.VerdictSegmentDone:
			return nil
		case audio.VerdictSkip:
			continue
		}
		if err := r.enc.SubmitAudio(out); err != nil {
			return err
		}
	}
}

func (r *run) finish() (*Result, error) {
	container, err := r.enc.Finish(r.ctrl.Context())
	if err != nil {
		return nil, r.abort("finalize", err)
	}
	r.tracker.Complete()

	snap := r.enc.Metrics()
	result := &Result{
		Container:   container.Data,
		MIME:        container.MIME,
		Extension:   container.Extension,
		Digest:      blake2b.Sum256(container.Data),
		RunID:       r.id,
		Duration:    r.clock.Now(),
		VideoFrames: snap.VideoFrames,
		Keyframes:   snap.Keyframes,
		AudioUnits:  snap.AudioBuffers,
		Plan:        r.plan,
	}

	logrus.WithFields(logrus.Fields{
		"function":     "Render",
		"run_id":       r.id.String(),
		"duration":     result.Duration,
		"video_frames": result.VideoFrames,
		"audio_units":  result.AudioUnits,
		"bytes":        len(result.Container),
		"digest":       result.DigestHex()[:16],
	}).Info("Render complete")

	return result, nil
}

// fail reports an error raised before the encoder opened.
func (r *run) fail(op string, err error) error {
	rerr := newRenderError(op, err)
	logrus.WithFields(logrus.Fields{
		"function": "Render",
		"run_id":   r.id.String(),
		"op":       op,
		"kind":     rerr.Kind.String(),
		"error":    err.Error(),
	}).Error("Render rejected")
	return rerr
}

// abort stops the encoder, discarding partial output. A cancelled run context takes
// precedence over whatever error the cancellation surfaced as.
func (r *run) abort(op string, err error) error {
	var rerr *RenderError
	if r.ctrl.Cancelled() {
		rerr = newCancelledError(op, r.ctrl.Cause())
	} else {
		rerr = newRenderError(op, err)
	}
	if r.enc != nil {
		r.enc.Cancel(rerr.Err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Render",
		"run_id":   r.id.String(),
		"op":       op,
		"kind":     rerr.Kind.String(),
		"error":    rerr.Err.Error(),
	}).Error("Render failed")
	return rerr
}

func (r *run) release() {
	if err := r.ctrl.Release(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Render",
			"run_id":   r.id.String(),
			"error":    err.Error(),
		}).Warn("Releasing run resources failed")
	}
}
