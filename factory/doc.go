// Package factory selects the collaborators a render run needs: the media
// source that decodes input and the encoder backend that produces the
// container.
//
// The factory abstracts the choice between the ffmpeg-backed source and the
// deterministic simulated source, and between the pure Go chunk backend and
// the ffmpeg stream backend, so callers never name concrete types.
//
// # Configuration
//
// Defaults can be overridden with environment variables. Invalid or out of
// range values are logged and ignored:
//   - REFRAME_USE_SIMULATION: "true" or "false" to use the simulated source
//   - REFRAME_FFMPEG_PATH: path of the ffmpeg binary
//   - REFRAME_FRAME_RATE: decode frame rate in [MinFrameRate, MaxFrameRate]
//   - REFRAME_DECODE_WIDTH: even decode width in [MinDecodeWidth, MaxDecodeWidth]
//   - REFRAME_BACKEND: "chunk" or "stream"
//
// # Usage
//
//	f := factory.NewMediaFactory()
//	src, err := f.CreateMediaSource(ctx, "input.mp4")
//	if err != nil {
//	    return err
//	}
//	backend, err := f.CreateBackend()
//
// # Testing Support
//
// CreateSimulationForTesting returns a simulated source tuned with
// TestConfigOption values:
//
//	src, _ := f.CreateSimulationForTesting(factory.WithSourceDuration(4 * time.Second))
package factory
