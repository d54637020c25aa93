package video

import (
	"image"
	"image/color"
	"testing"

	"github.com/opd-ai/reframe/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixEffects(t *testing.T) {
	tests := []struct {
		name   string
		effect *MatrixEffect
		in     color.RGBA
		want   color.RGBA
	}{
		{name: "brightness on gray", effect: NewBrightnessEffect(1.1), in: color.RGBA{100, 100, 100, 255}, want: color.RGBA{110, 110, 110, 255}},
		{name: "brightness clamps", effect: NewBrightnessEffect(1.1), in: color.RGBA{250, 0, 10, 255}, want: color.RGBA{255, 0, 11, 255}},
		{name: "contrast", effect: NewContrastEffect(1.3), in: color.RGBA{200, 200, 200, 255}, want: color.RGBA{222, 222, 222, 255}},
		{name: "saturate keeps gray", effect: NewSaturateEffect(1.15), in: color.RGBA{80, 80, 80, 255}, want: color.RGBA{80, 80, 80, 255}},
		{name: "saturate zero is grayscale", effect: NewSaturateEffect(0), in: color.RGBA{255, 0, 0, 255}, want: color.RGBA{54, 54, 54, 255}},
		{name: "full sepia on white", effect: NewSepiaEffect(1), in: color.RGBA{255, 255, 255, 255}, want: color.RGBA{255, 255, 239, 255}},
		{name: "zero hue rotation is identity", effect: NewHueRotateEffect(0), in: color.RGBA{12, 130, 250, 255}, want: color.RGBA{12, 130, 250, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := solidImage(4, 4, tt.in)
			require.NoError(t, tt.effect.Apply(img, img.Rect))
			assert.Equal(t, tt.want, rgbaAt(img, 2, 2))
		})
	}
}

func TestMatrixEffectSkipsTransparentAndRespectsRegion(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 1))
	img.SetRGBA(0, 0, color.RGBA{})
	img.SetRGBA(1, 0, color.RGBA{100, 100, 100, 255})
	img.SetRGBA(2, 0, color.RGBA{50, 50, 50, 128})
	img.SetRGBA(3, 0, color.RGBA{100, 100, 100, 255})

	effect := NewContrastEffect(2)
	require.NoError(t, effect.Apply(img, image.Rect(0, 0, 3, 1)))

	assert.Equal(t, color.RGBA{}, rgbaAt(img, 0, 0), "transparent letterbox stays transparent")
	assert.Equal(t, uint8(73), rgbaAt(img, 1, 0).R)
	px := rgbaAt(img, 2, 0)
	assert.Equal(t, uint8(128), px.A)
	assert.LessOrEqual(t, px.R, px.A, "output stays premultiplied")
	assert.Equal(t, color.RGBA{100, 100, 100, 255}, rgbaAt(img, 3, 0), "outside region untouched")
}

func TestNewFilterChainPresets(t *testing.T) {
	tests := []struct {
		filter config.ColorFilter
		want   []string
	}{
		{config.FilterNone, []string{}},
		{config.FilterBright, []string{"Brightness(1.10)", "Saturate(1.15)"}},
		{config.FilterWarm, []string{"Sepia(0.15)", "Contrast(1.05)", "Saturate(1.10)"}},
		{config.FilterCool, []string{"HueRotate(10)", "Contrast(0.95)", "Saturate(0.90)"}},
		{config.FilterContrast, []string{"Contrast(1.30)", "Saturate(1.20)"}},
		{config.FilterVintage, []string{"Sepia(0.40)", "Contrast(1.10)", "Brightness(0.90)"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			chain := NewFilterChain(tt.filter)
			assert.Equal(t, tt.want, chain.GetEffectNames())
		})
	}
}

func TestEffectChainApply(t *testing.T) {
	chain := NewEffectChain()
	assert.ErrorIs(t, chain.Apply(nil, image.Rect(0, 0, 1, 1)), ErrNilFrame)

	chain.AddEffect(NewBrightnessEffect(0.5))
	chain.AddEffect(NewBrightnessEffect(0.5))
	img := solidImage(2, 2, color.RGBA{200, 200, 200, 255})
	require.NoError(t, chain.Apply(img, img.Rect))
	assert.Equal(t, uint8(50), rgbaAt(img, 0, 0).R)

	chain.Clear()
	assert.Equal(t, 0, chain.GetEffectCount())
}

func TestEffectChainTransformColor(t *testing.T) {
	chain := NewFilterChain(config.FilterBright)
	got, err := chain.TransformColor(color.RGBA{100, 100, 100, 128})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{110, 110, 110, 128}, got, "alpha carried through untouched")

	got, err = NewFilterChain(config.FilterNone).TransformColor(color.RGBA{1, 2, 3, 255})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{1, 2, 3, 255}, got)
}
