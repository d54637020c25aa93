// Package interfaces defines the collaborator contracts shared by the reframe
// pipeline: the decoded media source it reads from and the frame, buffer and
// encoded-unit types that flow between the compositor, the audio retimer and the
// encode/mux controller.
//
// # Core Interfaces
//
// [MediaSource] abstracts the decoder. The pipeline seeks once per segment and then
// pulls frames and buffers until their timestamps pass the segment end:
//
//	if err := src.Seek(ctx, seg.Start); err != nil {
//	    return err
//	}
//	for {
//	    frame, err := src.NextVideoFrame(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	}
//
// # Implementation Selection
//
// The factory package creates implementations based on [MediaSourceConfig]:
//   - UseSimulation=true: SimulatedMediaSource from the testing package
//   - UseSimulation=false: FFmpegSource from the real package
//
// # Thread Safety
//
// NextVideoFrame and NextAudioBuffer are called from separate goroutines and must be
// safe to interleave. Seek is never called concurrently with either.
package interfaces
