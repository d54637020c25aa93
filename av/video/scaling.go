package video

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Placement is where a source raster lands on the canvas: an affine transform from
// source to canvas coordinates and the clipped destination rectangle it covers.
type Placement struct {
	Transform f64.Aff3
	Dest      image.Rectangle
}

// PlaceSource computes the source placement on canvas.
//
// The source is width-filled; its height follows the source aspect ratio when
// maintainAspect is set, otherwise it fills the canvas height. The result is then
// scaled by (1+zoom) about the canvas center and optionally mirrored horizontally.
func PlaceSource(canvas image.Rectangle, src image.Rectangle, zoom float64, maintainAspect, mirror bool) Placement {
	cw, ch := float64(canvas.Dx()), float64(canvas.Dy())
	sw, sh := float64(src.Dx()), float64(src.Dy())

	baseW := cw
	baseH := ch
	if maintainAspect && sw > 0 {
		baseH = cw * sh / sw
	}
	scale := 1 + zoom
	drawW, drawH := baseW*scale, baseH*scale
	left := float64(canvas.Min.X) + (cw-drawW)/2
	top := float64(canvas.Min.Y) + (ch-drawH)/2

	sx, sy := drawW/sw, drawH/sh
	tx := left - sx*float64(src.Min.X)
	if mirror {
		sx = -sx
		tx = left + drawW + drawW/sw*float64(src.Min.X)
	}
	ty := top - sy*float64(src.Min.Y)

	dest := image.Rect(
		int(math.Floor(left)), int(math.Floor(top)),
		int(math.Ceil(left+drawW)), int(math.Ceil(top+drawH)),
	).Intersect(canvas)

	return Placement{
		Transform: f64.Aff3{sx, 0, tx, 0, sy, ty},
		Dest:      dest,
	}
}

// Scaler resamples rasters with a fixed interpolator.
type Scaler struct {
	interp draw.Interpolator
}

// NewScaler creates a scaler using bilinear interpolation, fast enough for per-frame use.
func NewScaler() *Scaler {
	return &Scaler{interp: draw.ApproxBiLinear}
}

// NewHighQualityScaler creates a Catmull-Rom scaler for one-off resizes.
func NewHighQualityScaler() *Scaler {
	return &Scaler{interp: draw.CatmullRom}
}

// Transform draws src into dst through p.Transform using op.
func (s *Scaler) Transform(dst draw.Image, src image.Image, p Placement, op draw.Op) {
	s.interp.Transform(dst, p.Transform, src, src.Bounds(), op, nil)
}

// Scale resizes src into a new width×height RGBA raster.
func (s *Scaler) Scale(src image.Image, width, height int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	s.interp.Scale(out, out.Rect, src, src.Bounds(), draw.Src, nil)
	return out
}

// IsScalingRequired reports whether the source and target sizes differ.
func (s *Scaler) IsScalingRequired(src, dst image.Rectangle) bool {
	return src.Dx() != dst.Dx() || src.Dy() != dst.Dy()
}
