package video

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVignetteMask(t *testing.T) {
	v := NewVignette(image.Rect(0, 0, 100, 100))

	assert.Equal(t, uint8(0), v.Alpha(50, 50), "transparent at the center")
	assert.Equal(t, uint8(0), v.Alpha(50, 12), "transparent inside the inner radius")
	// corner is 70px out: (70-40)/40 of 60% black
	assert.Equal(t, uint8(115), v.Alpha(0, 0))
	assert.Equal(t, uint8(0), v.Alpha(-1, 0))

	wide := NewVignette(image.Rect(0, 0, 400, 20))
	// 199.5px from center: (199.5-160)/160 of 60% black
	assert.InDelta(t, 38, int(wide.Alpha(0, 10)), 1)
}

func TestVignetteApply(t *testing.T) {
	img := solidImage(100, 100, color.RGBA{255, 255, 255, 255})
	NewVignette(img.Rect).Apply(img)

	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(50, 50))
	assert.Equal(t, color.RGBA{140, 140, 140, 255}, img.RGBAAt(0, 0))
}

func TestVignetteTint(t *testing.T) {
	img := solidImage(100, 100, color.RGBA{255, 255, 255, 255})
	v := NewVignette(img.Rect)
	v.SetTint(color.RGBA{R: 100, A: 255})
	v.Apply(img)

	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(50, 50))
	assert.Equal(t, color.RGBA{185, 140, 140, 255}, img.RGBAAt(0, 0))
}
