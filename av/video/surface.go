package video

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/opd-ai/reframe/limits"
)

// Surface is the fixed-size RGBA raster every output frame is composited onto.
// It is mutated in place; callers that retain a frame must copy it.
type Surface struct {
	img *image.RGBA
}

// NewSurface allocates a width×height surface.
func NewSurface(width, height int) (*Surface, error) {
	if err := limits.ValidateDimensions(width, height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}, nil
}

// Image returns the backing raster.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// Bounds returns the surface rectangle.
func (s *Surface) Bounds() image.Rectangle {
	return s.img.Rect
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int {
	return s.img.Rect.Dx()
}

// Height returns the surface height in pixels.
func (s *Surface) Height() int {
	return s.img.Rect.Dy()
}

// Fill paints the whole surface with c.
func (s *Surface) Fill(c color.Color) {
	draw.Draw(s.img, s.img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
}

// Snapshot returns a copy of the current contents.
func (s *Surface) Snapshot() *image.RGBA {
	out := image.NewRGBA(s.img.Rect)
	copy(out.Pix, s.img.Pix)
	return out
}
