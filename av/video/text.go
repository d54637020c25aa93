package video

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/opd-ai/reframe/config"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// defaultFontRatio is the font size as a fraction of canvas height when none is set.
const defaultFontRatio = 0.05

// TextLayer is a caption rendered once into its own raster: a rounded background pill,
// an outline stroke and the bold glyphs, horizontally centered with its vertical center
// at the configured percentage of the canvas height.
type TextLayer struct {
	layer *image.RGBA
	at    image.Point
}

// NewTextLayer renders the text overlay for a canvas. Disabled or empty overlays return nil.
func NewTextLayer(overlay config.TextOverlay, canvas image.Rectangle) (*TextLayer, error) {
	if !overlay.Enabled || overlay.Text == "" {
		return nil, nil
	}

	textColor, err := config.ParseColor(orDefault(overlay.TextColor, "#ffffff"))
	if err != nil {
		return nil, err
	}
	bgColor, err := config.ParseColor(overlay.BackgroundColor)
	if err != nil {
		return nil, err
	}
	strokeColor, err := config.ParseColor(overlay.StrokeColor)
	if err != nil {
		return nil, err
	}

	size := overlay.FontSize
	if size <= 0 {
		size = float64(canvas.Dy()) * defaultFontRatio
	}

	parsed, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()

	textWidth := font.MeasureString(face, overlay.Text).Ceil()
	padding := size * 0.5
	boxW := int(math.Ceil(float64(textWidth) + 2*padding))
	boxH := int(math.Ceil(size * 1.8))

	layer := image.NewRGBA(image.Rect(0, 0, boxW, boxH))
	if bgColor.A > 0 {
		pill := &roundedRect{w: boxW, h: boxH, radius: float64(boxH) / 2}
		draw.DrawMask(layer, layer.Rect, image.NewUniform(bgColor), image.Point{}, pill, image.Point{}, draw.Over)
	}

	metrics := face.Metrics()
	baseline := fixed.I(boxH/2) + (metrics.Ascent-metrics.Descent)/2
	origin := fixed.Point26_6{X: fixed.I(boxW-textWidth) / 2, Y: baseline}

	d := &font.Drawer{Dst: layer, Face: face}
	if strokeColor.A > 0 {
		d.Src = image.NewUniform(strokeColor)
		width := int(math.Max(1, math.Round(size/16)))
		for dy := -width; dy <= width; dy++ {
			for dx := -width; dx <= width; dx++ {
				if dx == 0 && dy == 0 || dx*dx+dy*dy > width*width {
					continue
				}
				d.Dot = origin.Add(fixed.P(dx, dy))
				d.DrawString(overlay.Text)
			}
		}
	}
	d.Src = image.NewUniform(textColor)
	d.Dot = origin
	d.DrawString(overlay.Text)

	cy := int(math.Round(float64(canvas.Dy()) * float64(overlay.Position) / 100))
	at := image.Point{
		X: canvas.Min.X + (canvas.Dx()-boxW)/2,
		Y: canvas.Min.Y + cy - boxH/2,
	}
	return &TextLayer{layer: layer, at: at}, nil
}

// Bounds returns the canvas rectangle covered by the caption box.
func (t *TextLayer) Bounds() image.Rectangle {
	return t.layer.Rect.Add(t.at)
}

// Draw composites the caption over dst.
func (t *TextLayer) Draw(dst draw.Image) {
	draw.Draw(dst, t.Bounds(), t.layer, image.Point{}, draw.Over)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// roundedRect is an anti-aliased alpha mask of a w×h rectangle with corner radius.
type roundedRect struct {
	w, h   int
	radius float64
}

func (r *roundedRect) ColorModel() color.Model { return color.AlphaModel }

func (r *roundedRect) Bounds() image.Rectangle { return image.Rect(0, 0, r.w, r.h) }

func (r *roundedRect) At(x, y int) color.Color {
	rad := math.Min(r.radius, math.Min(float64(r.w), float64(r.h))/2)
	px, py := float64(x)+0.5, float64(y)+0.5
	// distance from the inner rectangle shrunk by rad
	qx := math.Max(math.Max(rad-px, px-(float64(r.w)-rad)), 0)
	qy := math.Max(math.Max(rad-py, py-(float64(r.h)-rad)), 0)
	d := math.Hypot(qx, qy) - rad
	cov := math.Max(0, math.Min(1, 0.5-d))
	return color.Alpha{A: uint8(math.Round(cov * 255))}
}
