package video

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/opd-ai/reframe/config"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// splitImage is red on the left half and blue on the right half.
func splitImage(w, h int) *image.RGBA {
	img := solidImage(w, h, color.RGBA{R: 255, A: 255})
	draw.Draw(img, image.Rect(w/2, 0, w, h), image.NewUniform(color.RGBA{B: 255, A: 255}), image.Point{}, draw.Src)
	return img
}

// plainConfig disables every layer except the source draw.
func plainConfig() *config.TransformConfig {
	cfg := config.Default()
	cfg.ZoomLevel = 0
	cfg.ColorFilter = config.FilterNone
	cfg.FilmGrain = 0
	cfg.Vignette = false
	cfg.MotionBlur = false
	cfg.MaintainAspectRatio = false
	cfg.TextOverlay.Enabled = false
	return cfg
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}
