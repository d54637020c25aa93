// Package testing provides a deterministic in-memory media source for exercising the
// render pipeline without a real decoder.
//
// # Simulation vs Real Implementation
//
// The reframe module supports two media source modes:
//
//   - Simulation (this package): frames and audio are synthesized from their
//     timestamps, so every run with the same config yields identical samples. Seeks
//     and deliveries are logged for verification. Used for unit and integration tests.
//
//   - Real (real package): frames and audio are decoded from a file by an ffmpeg
//     process. Used for production rendering.
//
// Both implementations conform to interfaces.MediaSource, and the factory package
// picks between them.
//
// # Usage
//
//	src, err := testing.NewSimulatedMediaSource(testing.SimulatedSourceConfig{
//	    Duration:   10 * time.Second,
//	    Width:      108,
//	    Height:     192,
//	    FrameRate:  30,
//	    SampleRate: 48000,
//	    Channels:   2,
//	})
//	defer src.Close()
//
//	_ = src.Seek(ctx, 3*time.Second)
//	frame, err := src.NextVideoFrame(ctx)
//
//	// Verify seeks
//	if got := src.SeekLog(); len(got) != 1 {
//	    t.Error("expected one seek")
//	}
//
// # Content
//
// Frame n is a gradient whose red channel encodes n modulo 256, so tests can recover
// which source frame was composited. Audio is a sine tone whose phase depends only on
// the absolute sample index, so buffers are identical regardless of seek history.
//
// # Thread Safety
//
// All methods on SimulatedMediaSource are safe for concurrent use. The video and audio
// cursors are independent, as with a real demuxer.
package testing
