// Package video implements the frame compositor and video encoder of the reframe
// pipeline.
//
// # Compositing
//
// A [Compositor] owns one fixed-size RGBA [Surface] and redraws it for every output
// frame tick:
//
//	1. fill black
//	2. source frame, width-filled, scaled by (1+zoom) about the center, optionally
//	   mirrored, color filter applied to the source only
//	3. motion blur veil (30% black)
//	4. film grain tile, overlay blend, random per-frame offset
//	5. vignette mask
//	6. cover image (full canvas or top band)
//	7. caption text
//
// Color filters are explicit per-pixel color matrices matching the CSS filter
// functions (brightness, contrast, saturate, sepia, hue-rotate), chained per preset
// by [NewFilterChain].
//
// Grain offsets are drawn from a seeded RNG so two runs with the same seed produce
// identical rasters.
//
// # Encoding
//
// [MJPEGEncoder] compresses each raster independently as JPEG at a quality derived
// from the bitrate tier and delivers units through a callback:
//
//	enc, _ := video.NewMJPEGEncoder(video.Resolution{Width: 1080, Height: 1920}, 30,
//	    video.GetBitrateForResolution(res), func(u interfaces.EncodedUnit) error {
//	        return muxer.WriteUnit(u)
//	    })
//	raster, _ := compositor.Compose(frame.Image)
//	_ = enc.Encode(raster, ts, keyframe)
package video
