package video

import (
	"image"
	"image/color"
	"math"
)

const (
	vignetteInner   = 0.4
	vignetteOuter   = 0.8
	vignetteOpacity = 0.6
)

// Vignette is a precomputed radial darkening mask: transparent inside 0.4·max(W,H)
// from the center, ramping linearly to 60% black at 0.8·max(W,H) and beyond.
// The paint color defaults to black and can be retinted by a color filter.
type Vignette struct {
	rect image.Rectangle
	tint [3]uint32
	// keep[i] is 255 minus the black coverage of pixel i.
	keep []uint8
}

// NewVignette precomputes the mask for a raster of the given bounds.
func NewVignette(r image.Rectangle) *Vignette {
	w, h := r.Dx(), r.Dy()
	maxDim := math.Max(float64(w), float64(h))
	inner, outer := vignetteInner*maxDim, vignetteOuter*maxDim
	cx, cy := float64(w)/2, float64(h)/2

	v := &Vignette{rect: r, keep: make([]uint8, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			t := (d - inner) / (outer - inner)
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			v.keep[y*w+x] = 255 - uint8(math.Round(t*vignetteOpacity*255))
		}
	}
	return v
}

// SetTint changes the color the mask paints with. Alpha is ignored.
func (v *Vignette) SetTint(c color.RGBA) {
	v.tint = [3]uint32{uint32(c.R), uint32(c.G), uint32(c.B)}
}

// Alpha returns the black coverage (0..255) at canvas pixel (x, y).
func (v *Vignette) Alpha(x, y int) uint8 {
	if !(image.Point{x, y}.In(v.rect)) {
		return 0
	}
	return 255 - v.keep[(y-v.rect.Min.Y)*v.rect.Dx()+(x-v.rect.Min.X)]
}

// Apply paints the mask over img in place. img must have the bounds the mask was built for.
func (v *Vignette) Apply(img *image.RGBA) {
	r := img.Rect.Intersect(v.rect)
	w := v.rect.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		m := (y-v.rect.Min.Y)*w + (r.Min.X - v.rect.Min.X)
		for x := r.Min.X; x < r.Max.X; x, i, m = x+1, i+4, m+1 {
			k := uint32(v.keep[m])
			if k == 255 {
				continue
			}
			px := img.Pix[i : i+4 : i+4]
			cover := 255 - k
			px[0] = uint8((uint32(px[0])*k + v.tint[0]*cover + 127) / 255)
			px[1] = uint8((uint32(px[1])*k + v.tint[1]*cover + 127) / 255)
			px[2] = uint8((uint32(px[2])*k + v.tint[2]*cover + 127) / 255)
			// black Over keeps alpha at least at the mask coverage
			a := uint32(px[3])*k/255 + (255 - k)
			px[3] = uint8(a)
		}
	}
}
