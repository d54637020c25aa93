package timeline

import (
	"fmt"
	"time"

	"github.com/opd-ai/reframe/limits"
	"github.com/sirupsen/logrus"
)

// Segment is a contiguous sub-range [Start, End) of the source timeline.
type Segment struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the source-time length of the segment.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// Contains reports whether ts falls inside [Start, End).
func (s Segment) Contains(ts time.Duration) bool {
	return ts >= s.Start && ts < s.End
}

// String returns a compact representation, e.g. "[3.000s,6.000s)".
func (s Segment) String() string {
	return fmt.Sprintf("[%.3fs,%.3fs)", s.Start.Seconds(), s.End.Seconds())
}

// Plan is the immutable output of the planner for one run.
type Plan struct {
	TrimStart    time.Duration
	EffectiveEnd time.Duration
	Shuffled     bool
	// Segments are listed in output order.
	Segments []Segment
}

// SourceDuration returns the total source time covered by the plan.
func (p *Plan) SourceDuration() time.Duration {
	return p.EffectiveEnd - p.TrimStart
}

// BuildPlan computes the trim window and the segment list.
//
// trimEnd of zero (or any value at or beyond the usable end) selects the natural end of
// the source minus limits.EndSafetyMargin. The function fails with ErrInvalidRange when the
// source is shorter than limits.MinSourceDuration or the clamped window is empty.
func BuildPlan(sourceDuration, trimStart, trimEnd time.Duration, shuffle bool) (*Plan, error) {
	logrus.WithFields(logrus.Fields{
		"function":        "BuildPlan",
		"source_duration": sourceDuration,
		"trim_start":      trimStart,
		"trim_end":        trimEnd,
		"shuffle":         shuffle,
	}).Debug("Planning timeline")

	if sourceDuration < limits.MinSourceDuration {
		return nil, fmt.Errorf("%w: source duration %v below minimum %v",
			ErrInvalidRange, sourceDuration, limits.MinSourceDuration)
	}

	usableEnd := sourceDuration - limits.EndSafetyMargin
	effectiveEnd := usableEnd
	if trimEnd > 0 && trimEnd < usableEnd {
		effectiveEnd = trimEnd
	}

	if trimStart < 0 {
		return nil, fmt.Errorf("%w: trim start %v is negative", ErrInvalidRange, trimStart)
	}
	if trimStart >= effectiveEnd {
		return nil, fmt.Errorf("%w: trim start %v not before end %v", ErrInvalidRange, trimStart, effectiveEnd)
	}

	plan := &Plan{
		TrimStart:    trimStart,
		EffectiveEnd: effectiveEnd,
		Shuffled:     shuffle,
	}
	if shuffle {
		plan.Segments = swapPairs(chunk(trimStart, effectiveEnd, limits.SegmentLength))
	} else {
		plan.Segments = []Segment{{Start: trimStart, End: effectiveEnd}}
	}

	logrus.WithFields(logrus.Fields{
		"function":      "BuildPlan",
		"effective_end": effectiveEnd,
		"segments":      len(plan.Segments),
	}).Info("Timeline planned")

	return plan, nil
}

// chunk partitions [start, end) into pieces of length n; the last piece may be shorter.
func chunk(start, end, n time.Duration) []Segment {
	segments := make([]Segment, 0, int((end-start)/n)+1)
	for s := start; s < end; s += n {
		e := s + n
		if e > end {
			e = end
		}
		segments = append(segments, Segment{Start: s, End: e})
	}
	return segments
}

// swapPairs exchanges segments 2k and 2k+1; an odd trailing segment stays in place.
func swapPairs(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	for i := 0; i+1 < len(out); i += 2 {
		out[i], out[i+1] = out[i+1], out[i]
	}
	return out
}
