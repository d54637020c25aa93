package video

import (
	"image"
	"image/color"
	"math/rand"
)

const (
	// GrainTileSize is the edge length of the precomputed noise tile.
	GrainTileSize = 256

	// grainMaxShift bounds the random per-frame tile translation.
	grainMaxShift = 100
)

// GrainTile is a precomputed monochrome noise pattern blended with the overlay mode.
// Half of the texels are transparent; the rest are dark gray with alpha proportional
// to the grain intensity.
type GrainTile struct {
	gray  [GrainTileSize * GrainTileSize]uint8
	alpha [GrainTileSize * GrainTileSize]uint8
	// palette maps a texel's gray level to the RGB it blends with.
	palette [256][3]uint8
}

// NewGrainTile generates the tile from rng. intensity is expected in [0, 0.6].
func NewGrainTile(intensity float64, rng *rand.Rand) *GrainTile {
	t := &GrainTile{}
	for g := range t.palette {
		t.palette[g] = [3]uint8{uint8(g), uint8(g), uint8(g)}
	}
	for i := range t.gray {
		if rng.Float64() < 0.5 {
			t.alpha[i] = uint8(rng.Float64() * 255 * intensity * 0.5)
			t.gray[i] = uint8(rng.Intn(50))
		}
	}
	return t
}

// At returns the gray level and alpha of texel (x, y), wrapping at the tile edge.
func (t *GrainTile) At(x, y int) (gray, alpha uint8) {
	i := mod(y, GrainTileSize)*GrainTileSize + mod(x, GrainTileSize)
	return t.gray[i], t.alpha[i]
}

// Retint passes every gray level through transform, so texels blend with the
// transformed color on each channel.
func (t *GrainTile) Retint(transform func(color.RGBA) (color.RGBA, error)) error {
	for g := range t.palette {
		c, err := transform(color.RGBA{R: uint8(g), G: uint8(g), B: uint8(g), A: 255})
		if err != nil {
			return err
		}
		t.palette[g] = [3]uint8{c.R, c.G, c.B}
	}
	return nil
}

// Apply blends the tile, translated by (dx, dy), over every opaque pixel of img using
// the overlay blend mode: 2·b·s when b < 0.5, else 1 − 2·(1−b)·(1−s), mixed by alpha.
func (t *GrainTile) Apply(img *image.RGBA, dx, dy int) {
	r := img.Rect
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := mod(y-dy, GrainTileSize) * GrainTileSize
		i := img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, i = x+1, i+4 {
			k := row + mod(x-dx, GrainTileSize)
			a := uint32(t.alpha[k])
			if a == 0 {
				continue
			}
			tint := &t.palette[t.gray[k]]
			px := img.Pix[i : i+3 : i+3]
			for ch := range px {
				b := uint32(px[ch])
				s := uint32(tint[ch])
				var blend uint32
				if b < 128 {
					blend = 2 * b * s / 255
				} else {
					blend = 255 - 2*(255-b)*(255-s)/255
				}
				px[ch] = uint8((b*(255-a) + blend*a + 127) / 255)
			}
		}
	}
}

// RandomShift returns a per-frame translation in [0, grainMaxShift).
func RandomShift(rng *rand.Rand) (dx, dy int) {
	return rng.Intn(grainMaxShift), rng.Intn(grainMaxShift)
}

func mod(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
