package video

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"

	"github.com/opd-ai/reframe/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// motionBlurAlpha is 30% black.
const motionBlurAlpha = 77

// CompositorConfig configures a Compositor.
type CompositorConfig struct {
	Width     int
	Height    int
	Transform *config.TransformConfig
	// Overlay is the optional cover image.
	Overlay image.Image
	// Seed drives the grain tile and its per-frame offsets.
	Seed int64
}

// Compositor renders one output raster per frame tick.
//
// Layers, bottom to top: black fill, source, motion blur veil, film grain, vignette,
// cover image, caption. The color filter covers the source through the vignette; the
// flat-color layers get their paint filtered once up front. Everything that does not
// depend on the source frame is precomputed in NewCompositor.
type Compositor struct {
	surface  *Surface
	scratch  *image.RGBA
	scaler   *Scaler
	filter   *EffectChain
	grain    *GrainTile
	vignette *Vignette
	overlay  *Overlay
	text     *TextLayer
	rng      *rand.Rand

	zoom           float64
	mirror         bool
	maintainAspect bool
	motionBlur     bool
	blurVeil       color.RGBA

	placedFor image.Rectangle
	placement Placement
	frames    uint64
}

// NewCompositor allocates the surface and precomputes the static layers.
func NewCompositor(cfg CompositorConfig) (*Compositor, error) {
	if cfg.Transform == nil {
		return nil, fmt.Errorf("transform config is required")
	}
	t := cfg.Transform.Normalize()

	surface, err := NewSurface(cfg.Width, cfg.Height)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewCompositor",
			"width":    cfg.Width,
			"height":   cfg.Height,
			"error":    err.Error(),
		}).Error("Surface allocation failed")
		return nil, err
	}

	c := &Compositor{
		surface:        surface,
		scaler:         NewScaler(),
		filter:         NewFilterChain(t.ColorFilter),
		rng:            rand.New(rand.NewSource(cfg.Seed)),
		zoom:           t.ZoomLevel,
		mirror:         t.FlipHorizontal,
		maintainAspect: t.MaintainAspectRatio,
		motionBlur:     t.MotionBlur,
		blurVeil:       color.RGBA{A: motionBlurAlpha},
	}
	if t.FilmGrain > 0 {
		c.grain = NewGrainTile(t.FilmGrain, c.rng)
	}
	if t.Vignette {
		c.vignette = NewVignette(surface.Bounds())
	}
	if c.filter.GetEffectCount() > 0 {
		c.scratch = image.NewRGBA(surface.Bounds())
		if err := c.filterPaints(); err != nil {
			return nil, err
		}
	}
	if c.overlay, err = NewOverlay(cfg.Overlay, surface.Bounds(), t.OverlayMode); err != nil {
		return nil, err
	}
	if c.text, err = NewTextLayer(t.TextOverlay, surface.Bounds()); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewCompositor",
		"width":       cfg.Width,
		"height":      cfg.Height,
		"filter":      c.filter.GetEffectNames(),
		"grain":       c.grain != nil,
		"vignette":    c.vignette != nil,
		"overlay":     c.overlay != nil,
		"text":        c.text != nil,
		"motion_blur": c.motionBlur,
	}).Info("Compositor ready")

	return c, nil
}

// Compose renders frame onto the surface and returns it. The returned raster is
// reused by the next call.
func (c *Compositor) Compose(frame image.Image) (*image.RGBA, error) {
	if frame == nil {
		return nil, ErrNilFrame
	}
	dst := c.surface.Image()

	c.surface.Fill(color.Black)
	if err := c.drawSource(dst, frame); err != nil {
		return nil, err
	}
	if c.motionBlur {
		draw.Draw(dst, dst.Rect, image.NewUniform(c.blurVeil), image.Point{}, draw.Over)
	}
	if c.grain != nil {
		dx, dy := RandomShift(c.rng)
		c.grain.Apply(dst, dx, dy)
	}
	if c.vignette != nil {
		c.vignette.Apply(dst)
	}
	if c.overlay != nil {
		c.overlay.Draw(dst)
	}
	if c.text != nil {
		c.text.Draw(dst)
	}

	c.frames++
	return dst, nil
}

// filterPaints runs the flat paint colors of the blur veil, vignette and grain through
// the color filter.
func (c *Compositor) filterPaints() error {
	black, err := c.filter.TransformColor(color.RGBA{A: 255})
	if err != nil {
		return err
	}
	// blurVeil is premultiplied
	c.blurVeil = color.RGBA{
		R: uint8((uint32(black.R)*motionBlurAlpha + 127) / 255),
		G: uint8((uint32(black.G)*motionBlurAlpha + 127) / 255),
		B: uint8((uint32(black.B)*motionBlurAlpha + 127) / 255),
		A: motionBlurAlpha,
	}
	if c.vignette != nil {
		c.vignette.SetTint(black)
	}
	if c.grain != nil {
		return c.grain.Retint(c.filter.TransformColor)
	}
	return nil
}

func (c *Compositor) drawSource(dst *image.RGBA, frame image.Image) error {
	src := frame.Bounds()
	if src.Empty() {
		return fmt.Errorf("%w: empty source frame", ErrNilFrame)
	}
	if src != c.placedFor {
		c.placement = PlaceSource(dst.Rect, src, c.zoom, c.maintainAspect, c.mirror)
		c.placedFor = src
		if c.scratch != nil {
			draw.Draw(c.scratch, c.scratch.Rect, image.Transparent, image.Point{}, draw.Src)
		}
	}

	if c.scratch == nil {
		c.scaler.Transform(dst, frame, c.placement, draw.Over)
		return nil
	}

	dr := c.placement.Dest
	draw.Draw(c.scratch, dr, image.Transparent, image.Point{}, draw.Src)
	c.scaler.Transform(c.scratch, frame, c.placement, draw.Src)
	if err := c.filter.Apply(c.scratch, dr); err != nil {
		return err
	}
	draw.Draw(dst, dr, c.scratch, dr.Min, draw.Over)
	return nil
}

// Surface returns the compositing surface.
func (c *Compositor) Surface() *Surface {
	return c.surface
}

// FramesComposed returns the number of Compose calls that succeeded.
func (c *Compositor) FramesComposed() uint64 {
	return c.frames
}
