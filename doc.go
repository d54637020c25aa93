// Package reframe transforms a source video into a re-encoded output with a
// chain of visual transforms, optional segment shuffling, trimming, a tempo
// change and an audio track kept in sync with the video.
//
// # Getting Started
//
// Open a media source, load a configuration and render:
//
//	f := factory.NewMediaFactory()
//	src, err := f.CreateMediaSource(ctx, "input.mp4")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg, err := config.Load("transform.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := reframe.Render(ctx, src, nil, cfg, func(p float64) {
//	    fmt.Printf("\r%.0f%%", p)
//	})
//	if err != nil {
//	    var rerr *reframe.RenderError
//	    if errors.As(err, &rerr) && rerr.Kind == reframe.KindInput {
//	        // fix the input and retry
//	    }
//	    log.Fatal(err)
//	}
//	os.WriteFile("out"+result.Extension, result.Container, 0o644)
//
// Render takes ownership of the source and closes it on every path.
//
// # Pipeline
//
// The trim window and segment list come from timeline.BuildPlan. Segments are
// processed strictly in order; for each one the source is seeked to the
// segment start and two goroutines run until the segment end:
//
//   - the video loop samples decoded frames onto a constant frame-rate grid,
//     composites each tick with video.Compositor and submits it to the
//     encoder controller
//   - the audio loop clips, gains, tempo-shifts and re-stamps decoded buffers
//     with audio.Retimer and submits them to the same controller
//
// The output clock advances by the segment's emitted duration only after both
// loops finish. The av.Controller then flushes and finalizes the container.
//
// # Errors
//
// Every failure is a *RenderError whose Kind tells the caller whether to fix
// the input, fix the runtime, or report an internal failure. errors.Is works
// through it against the re-exported sentinels.
//
// # Determinism
//
// With shuffling disabled and WithSeed set, two runs over the same input yield
// identical composited frames and therefore identical container digests when
// the chunk backend is used.
package reframe
