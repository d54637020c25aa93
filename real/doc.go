// Package real provides the production collaborators of the render pipeline, both
// backed by an external ffmpeg binary driven through github.com/u2takey/ffmpeg-go.
//
// # Media source
//
// FFmpegSource implements interfaces.MediaSource. Each Seek restarts two decoder
// processes at the target: one emitting raw RGBA frames at the configured frame rate
// and decode width, one emitting interleaved s16le PCM. Timestamps are derived from
// the seek origin plus the count of frames or samples read, so they are exact
// multiples of the frame and sample period.
//
//	src, err := real.NewFFmpegSource(ctx, "input.mp4", cfg)
//	if err != nil {
//	    return err // wraps av.ErrUnsupportedEnvironment when ffmpeg is missing
//	}
//	defer src.Close()
//
// # Stream backend
//
// StreamBackend implements av.EncoderBackend by piping composited frames into an
// H.264 encoder and muxing the spooled audio as AAC at finalize. Keyframes follow
// the configured interval via ffmpeg's force_key_frames expression rather than the
// per-frame flag, so exact keyframe placement is only available from av.ChunkBackend.
//
// # Environment
//
// Both collaborators check for ffmpeg (and ffprobe for the source) before starting
// any process and fail with av.ErrUnsupportedEnvironment when they are absent, before
// any encoder is opened.
package real
