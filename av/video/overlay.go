package video

import (
	"fmt"
	"image"
	"io"

	// Registered for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/opd-ai/reframe/config"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// LoadOverlayImage decodes a cover image in PNG, JPEG, GIF, WebP or BMP format.
func LoadOverlayImage(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode overlay image: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "LoadOverlayImage",
		"format":   format,
		"size":     img.Bounds().Size().String(),
	}).Debug("Decoded overlay image")
	return img, nil
}

// Overlay is a cover image prescaled once for a canvas and drawn over every frame.
type Overlay struct {
	layer *image.RGBA
	at    image.Point
}

// NewOverlay prescales img for the canvas according to mode.
//
// OverlayFullCanvas stretches the image over the whole canvas. OverlayTopBand draws
// it full-width at its native aspect ratio, anchored to the top edge.
func NewOverlay(img image.Image, canvas image.Rectangle, mode config.OverlayMode) (*Overlay, error) {
	if img == nil {
		return nil, nil
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("overlay image is empty")
	}

	target := canvas
	switch mode {
	case config.OverlayTopBand:
		h := canvas.Dx() * b.Dy() / b.Dx()
		if h < 1 {
			h = 1
		}
		target = image.Rect(canvas.Min.X, canvas.Min.Y, canvas.Max.X, canvas.Min.Y+h)
	case config.OverlayFullCanvas, "":
	default:
		return nil, fmt.Errorf("unknown overlay mode %q", mode)
	}

	layer := NewHighQualityScaler().Scale(img, target.Dx(), target.Dy())
	return &Overlay{layer: layer, at: target.Min}, nil
}

// Bounds returns the canvas rectangle the overlay covers before clipping.
func (o *Overlay) Bounds() image.Rectangle {
	return o.layer.Rect.Add(o.at)
}

// Draw composites the overlay over dst.
func (o *Overlay) Draw(dst draw.Image) {
	draw.Draw(dst, o.Bounds(), o.layer, image.Point{}, draw.Over)
}
