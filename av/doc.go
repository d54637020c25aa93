// Package av drives the encode/mux stage of a render run.
//
// A [Controller] owns one [EncoderBackend] for the lifetime of a run and moves it through
// a fixed state machine:
//
//	Idle → Configuring → Encoding → Flushing → Finalized
//
// with Errored reachable from every non-terminal state. Video frames and audio buffers
// may be submitted from separate goroutines; the controller serializes them, forces a
// keyframe every [EncoderConfig.KeyframeInterval] of output time and rejects timestamp
// regressions within a media kind.
//
// # Backends
//
// Two interchangeable backends exist. [ChunkBackend] encodes every frame explicitly
// (MJPEG via av/video, PCM via av/audio) and packs the units with av/mux; it is the
// default because it alone controls keyframe placement exactly. A stream-capture
// backend that pipes raw media through ffmpeg lives in the real package.
//
// # Usage
//
//	ctrl, err := av.NewController(av.NewChunkBackend(), av.DefaultEncoderConfig())
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Release()
//	if err := ctrl.Configure(ctx); err != nil {
//	    return err
//	}
//	_ = ctrl.SubmitVideo(frame, ts)
//	_ = ctrl.SubmitAudio(buf)
//	container, err := ctrl.Finish(ctx)
//
// # Errors
//
// Backend failures while encoding wrap [ErrEncoder]; failures while packing or
// finalizing wrap [ErrMux]. Both are terminal: partial output is discarded and the
// backend is closed exactly once.
package av
