package video

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/opd-ai/reframe/config"
)

// Effect is a color transform applied in place to a region of an RGBA raster.
type Effect interface {
	// Apply processes the pixels of img inside r
	Apply(img *image.RGBA, r image.Rectangle) error
	// GetName returns the effect name for identification
	GetName() string
}

// EffectChain manages multiple effects applied in sequence.
type EffectChain struct {
	effects []Effect
}

// NewEffectChain creates a new effect processing chain.
func NewEffectChain() *EffectChain {
	return &EffectChain{
		effects: make([]Effect, 0),
	}
}

// AddEffect adds an effect to the processing chain.
func (ec *EffectChain) AddEffect(effect Effect) {
	ec.effects = append(ec.effects, effect)
}

// Apply processes the region through all effects in the chain.
func (ec *EffectChain) Apply(img *image.RGBA, r image.Rectangle) error {
	if img == nil {
		return ErrNilFrame
	}
	r = r.Intersect(img.Rect)
	for i, effect := range ec.effects {
		if err := effect.Apply(img, r); err != nil {
			return fmt.Errorf("effect %d (%s) failed: %w", i, effect.GetName(), err)
		}
	}
	return nil
}

// GetEffectCount returns the number of effects in the chain.
func (ec *EffectChain) GetEffectCount() int {
	return len(ec.effects)
}

// GetEffectNames returns the effect names in order.
func (ec *EffectChain) GetEffectNames() []string {
	names := make([]string, len(ec.effects))
	for i, e := range ec.effects {
		names[i] = e.GetName()
	}
	return names
}

// TransformColor runs one opaque color through the chain. Layers painted with a flat
// color (blur veil, vignette tint, grain texels) are filtered this way instead of per
// pixel.
func (ec *EffectChain) TransformColor(c color.RGBA) (color.RGBA, error) {
	px := image.NewRGBA(image.Rect(0, 0, 1, 1))
	px.SetRGBA(0, 0, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
	if err := ec.Apply(px, px.Rect); err != nil {
		return c, err
	}
	out := px.RGBAAt(0, 0)
	out.A = c.A
	return out, nil
}

// Clear removes all effects from the chain.
func (ec *EffectChain) Clear() {
	ec.effects = ec.effects[:0]
}

// NewFilterChain builds the effect chain for a color filter preset.
// FilterNone and unknown presets produce an empty chain.
func NewFilterChain(filter config.ColorFilter) *EffectChain {
	chain := NewEffectChain()
	switch filter {
	case config.FilterBright:
		chain.AddEffect(NewBrightnessEffect(1.1))
		chain.AddEffect(NewSaturateEffect(1.15))
	case config.FilterWarm:
		chain.AddEffect(NewSepiaEffect(0.15))
		chain.AddEffect(NewContrastEffect(1.05))
		chain.AddEffect(NewSaturateEffect(1.1))
	case config.FilterCool:
		chain.AddEffect(NewHueRotateEffect(10))
		chain.AddEffect(NewContrastEffect(0.95))
		chain.AddEffect(NewSaturateEffect(0.9))
	case config.FilterContrast:
		chain.AddEffect(NewContrastEffect(1.3))
		chain.AddEffect(NewSaturateEffect(1.2))
	case config.FilterVintage:
		chain.AddEffect(NewSepiaEffect(0.4))
		chain.AddEffect(NewContrastEffect(1.1))
		chain.AddEffect(NewBrightnessEffect(0.9))
	}
	return chain
}

// ColorMatrix maps straight-alpha RGB in [0,1]: out = M[:, :3]·rgb + M[:, 3].
type ColorMatrix [3][4]float64

// MatrixEffect applies a ColorMatrix and clamps the result, as the CSS filter
// functions do between each step.
type MatrixEffect struct {
	name   string
	matrix ColorMatrix
	lut    [3][3][256]float64
	offset [3]float64
}

func newMatrixEffect(name string, m ColorMatrix) *MatrixEffect {
	e := &MatrixEffect{name: name, matrix: m}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			for v := 0; v < 256; v++ {
				e.lut[row][col][v] = m[row][col] * float64(v)
			}
		}
		e.offset[row] = m[row][3] * 255
	}
	return e
}

// NewBrightnessEffect scales every channel by factor.
func NewBrightnessEffect(factor float64) *MatrixEffect {
	return newMatrixEffect(fmt.Sprintf("Brightness(%.2f)", factor), ColorMatrix{
		{factor, 0, 0, 0},
		{0, factor, 0, 0},
		{0, 0, factor, 0},
	})
}

// NewContrastEffect scales every channel about mid-gray.
func NewContrastEffect(factor float64) *MatrixEffect {
	off := 0.5 - 0.5*factor
	return newMatrixEffect(fmt.Sprintf("Contrast(%.2f)", factor), ColorMatrix{
		{factor, 0, 0, off},
		{0, factor, 0, off},
		{0, 0, factor, off},
	})
}

// NewSaturateEffect scales chroma; 0 is grayscale, 1 is identity.
func NewSaturateEffect(s float64) *MatrixEffect {
	return newMatrixEffect(fmt.Sprintf("Saturate(%.2f)", s), ColorMatrix{
		{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s, 0},
		{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s, 0},
		{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s, 0},
	})
}

// NewSepiaEffect blends toward sepia by amount in [0,1].
func NewSepiaEffect(amount float64) *MatrixEffect {
	a := math.Max(0, math.Min(1, amount))
	inv := 1 - a
	return newMatrixEffect(fmt.Sprintf("Sepia(%.2f)", a), ColorMatrix{
		{0.393 + 0.607*inv, 0.769 - 0.769*inv, 0.189 - 0.189*inv, 0},
		{0.349 - 0.349*inv, 0.686 + 0.314*inv, 0.168 - 0.168*inv, 0},
		{0.272 - 0.272*inv, 0.534 - 0.534*inv, 0.131 + 0.869*inv, 0},
	})
}

// NewHueRotateEffect rotates hue by degrees.
func NewHueRotateEffect(degrees float64) *MatrixEffect {
	rad := degrees * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return newMatrixEffect(fmt.Sprintf("HueRotate(%.0f)", degrees), ColorMatrix{
		{0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928, 0},
		{0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283, 0},
		{0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072, 0},
	})
}

// Matrix returns the effect's color matrix.
func (e *MatrixEffect) Matrix() ColorMatrix {
	return e.matrix
}

// GetName returns the effect name.
func (e *MatrixEffect) GetName() string {
	return e.name
}

// Apply transforms the pixels in r. Fully transparent pixels are skipped; partially
// transparent pixels are un-premultiplied around the transform.
func (e *MatrixEffect) Apply(img *image.RGBA, r image.Rectangle) error {
	if img == nil {
		return ErrNilFrame
	}
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, i = x+1, i+4 {
			px := img.Pix[i : i+4 : i+4]
			a := px[3]
			if a == 0 {
				continue
			}
			rr, gg, bb := px[0], px[1], px[2]
			if a != 255 {
				rr, gg, bb = unpremul(rr, a), unpremul(gg, a), unpremul(bb, a)
			}
			for ch := 0; ch < 3; ch++ {
				v := e.lut[ch][0][rr] + e.lut[ch][1][gg] + e.lut[ch][2][bb] + e.offset[ch]
				out := clampByte(v)
				if a != 255 {
					out = uint8((uint32(out)*uint32(a) + 127) / 255)
				}
				px[ch] = out
			}
		}
	}
	return nil
}

func unpremul(v, a uint8) uint8 {
	u := (uint32(v)*255 + uint32(a)/2) / uint32(a)
	if u > 255 {
		u = 255
	}
	return uint8(u)
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
