// Package limits provides centralized geometry, timing and range constants together with
// validation helpers for the reframe render pipeline.
//
// # Output Geometry
//
// The compositor renders into a fixed vertical raster:
//
//   - OutputWidth x OutputHeight (1080x1920): the default composited frame size.
//   - FrameRate (30 fps): every output tick lands on i/FrameRate seconds.
//   - KeyframeInterval (2s): the encoder forces a keyframe every FrameRate*2 ticks.
//
// # Timeline Limits
//
//   - SegmentLength (3s): nominal chunk length for segment shuffling.
//   - EndSafetyMargin (200ms): removed from the natural end of the source.
//   - MinSourceDuration (500ms): shorter sources are rejected by the planner.
//
// # Validation Functions
//
// Range checks return errors wrapping ErrOutOfRange or ErrInvalidDimensions:
//
//	if err := limits.ValidateZoom(cfg.ZoomLevel); err != nil {
//	    // errors.Is(err, limits.ErrOutOfRange) == true
//	}
//
// Values the pipeline tolerates by clamping (volume, film grain) have Clamp helpers
// instead of validators.
//
// # Bitrate Tiers
//
// VideoBitRateFor picks HighVideoBitRate above 1280x720 pixels and StandardVideoBitRate
// otherwise.
package limits
