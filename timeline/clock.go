package timeline

import (
	"sync"
	"time"
)

// Clock is the output timeline reference: a monotonically increasing microsecond counter
// advanced by the emitted duration of each completed segment.
type Clock struct {
	mu     sync.RWMutex
	micros int64
	speed  float64
}

// NewClock creates a clock at zero for the given tempo multiplier.
// A non-positive speed is treated as 1.0.
func NewClock(speed float64) *Clock {
	if speed <= 0 {
		speed = 1.0
	}
	return &Clock{speed: speed}
}

// Now returns the current output timestamp.
func (c *Clock) Now() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.micros) * time.Microsecond
}

// Micros returns the current output timestamp in microseconds.
func (c *Clock) Micros() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.micros
}

// Speed returns the tempo multiplier.
func (c *Clock) Speed() float64 {
	return c.speed
}

// EmittedDuration is the output-time length of seg after the tempo change,
// rounded to whole microseconds.
func (c *Clock) EmittedDuration(seg Segment) time.Duration {
	return scale(seg.Duration(), c.speed)
}

// ToOutput maps a source timestamp inside seg to output time:
// now + (sourceTs - seg.Start) / speed.
func (c *Clock) ToOutput(seg Segment, sourceTs time.Duration) time.Duration {
	return c.Now() + scale(sourceTs-seg.Start, c.speed)
}

// SegmentEnd returns the output timestamp at which seg finishes.
func (c *Clock) SegmentEnd(seg Segment) time.Duration {
	return c.Now() + c.EmittedDuration(seg)
}

// Advance moves the clock forward by seg's emitted duration and returns the new value.
func (c *Clock) Advance(seg Segment) time.Duration {
	d := c.EmittedDuration(seg)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.micros += d.Microseconds()
	return time.Duration(c.micros) * time.Microsecond
}

func scale(d time.Duration, speed float64) time.Duration {
	us := float64(d.Microseconds()) / speed
	if us < 0 {
		return -time.Duration(-us+0.5) * time.Microsecond
	}
	return time.Duration(us+0.5) * time.Microsecond
}
