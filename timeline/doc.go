// Package timeline plans which ranges of the source timeline are rendered, and in which
// order, and owns the output clock that maps source time onto output time.
//
// # Planning
//
// BuildPlan clamps the trim window to the usable part of the source and splits it into
// segments:
//
//	plan, err := timeline.BuildPlan(10*time.Second, 0, 0, false)
//	// plan.Segments == [{0s 9.8s}]
//
// With shuffling enabled the window is cut into limits.SegmentLength chunks and each
// adjacent pair is swapped, so the output order differs from the content order while the
// covered ranges stay identical:
//
//	plan, _ := timeline.BuildPlan(10*time.Second, 0, 9*time.Second, true)
//	// plan.Segments == [{3s 6s} {0s 3s} {6s 9s}]
//
// # Output Clock
//
// Clock advances by each segment's emitted duration once that segment is complete. Video
// and audio producers convert source timestamps with Clock.ToOutput so that reordered
// segments line up end to end in the output.
package timeline
