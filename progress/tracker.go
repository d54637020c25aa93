package progress

import (
	"math"
	"sync"
	"time"

	"github.com/opd-ai/reframe/timeline"
)

// Func receives a percentage in [0, 100].
type Func func(percent float64)

// MaxInProgress is the ceiling reported before Complete.
const MaxInProgress = 99.0

// Tracker maps segment position and cursor to a non-decreasing percentage.
type Tracker struct {
	mu       sync.Mutex
	segments int
	index    int
	segment  timeline.Segment
	last     float64
	reported bool
	complete bool
	fn       Func
}

// NewTracker creates a tracker for a plan of n segments. fn may be nil.
func NewTracker(n int, fn Func) *Tracker {
	if n < 1 {
		n = 1
	}
	return &Tracker{segments: n, fn: fn}
}

// BeginSegment moves the tracker to segment index spanning seg.
func (t *Tracker) BeginSegment(index int, seg timeline.Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = index
	t.segment = seg
	t.update(0)
}

// Observe records the source-time cursor inside the active segment and returns the
// current percentage.
func (t *Tracker) Observe(cursor time.Duration) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var frac float64
	if d := t.segment.Duration(); d > 0 {
		frac = float64(cursor-t.segment.Start) / float64(d)
	}
	t.update(frac)
	return t.last
}

// update must be called with t.mu held.
func (t *Tracker) update(frac float64) {
	if t.complete {
		return
	}
	frac = math.Max(0, math.Min(1, frac))
	p := (float64(t.index) + frac) * 100 / float64(t.segments)
	p = math.Min(p, MaxInProgress)

	if p < t.last || (p == t.last && t.reported) {
		return
	}
	t.last = p
	t.reported = true
	if t.fn != nil {
		t.fn(p)
	}
}

// Complete reports 100. Later observations are ignored.
func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.complete {
		return
	}
	t.complete = true
	t.last = 100
	if t.fn != nil {
		t.fn(100)
	}
}

// Percent returns the last reported percentage.
func (t *Tracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
