package config

import (
	"fmt"
	"os"
	"time"

	"github.com/opd-ai/reframe/limits"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ColorFilter names a color grading preset.
type ColorFilter string

const (
	FilterNone     ColorFilter = "none"
	FilterBright   ColorFilter = "bright"
	FilterWarm     ColorFilter = "warm"
	FilterCool     ColorFilter = "cool"
	FilterContrast ColorFilter = "contrast"
	FilterVintage  ColorFilter = "vintage"
)

// Valid reports whether f is a known preset.
func (f ColorFilter) Valid() bool {
	switch f {
	case FilterNone, FilterBright, FilterWarm, FilterCool, FilterContrast, FilterVintage:
		return true
	}
	return false
}

// OverlayMode selects how the cover image is placed on the canvas.
type OverlayMode string

const (
	// OverlayFullCanvas stretches the cover image over the whole raster.
	OverlayFullCanvas OverlayMode = "full_canvas"
	// OverlayTopBand draws the cover image across the top at its native aspect.
	OverlayTopBand OverlayMode = "top_band"
)

// TransformConfig is the immutable configuration of one render run.
type TransformConfig struct {
	MaintainAspectRatio bool        `yaml:"maintain_aspect_ratio"`
	ZoomLevel           float64     `yaml:"zoom_level"`
	FlipHorizontal      bool        `yaml:"flip_horizontal"`
	Speed               float64     `yaml:"speed"`
	Volume              float64     `yaml:"volume"`
	ColorFilter         ColorFilter `yaml:"color_filter"`
	MotionBlur          bool        `yaml:"motion_blur"`
	FilmGrain           float64     `yaml:"film_grain"`
	Vignette            bool        `yaml:"vignette"`
	ShuffleSegments     bool        `yaml:"shuffle_segments"`

	// TrimStart and TrimEnd are in seconds; TrimEnd of zero selects the natural end.
	TrimStart float64 `yaml:"trim_start"`
	TrimEnd   float64 `yaml:"trim_end"`

	TextOverlay TextOverlay `yaml:"text_overlay"`
	OverlayMode OverlayMode `yaml:"overlay_mode"`
}

// Default returns the configuration the interactive editor starts from.
func Default() *TransformConfig {
	return &TransformConfig{
		MaintainAspectRatio: true,
		ZoomLevel:           0.12,
		FlipHorizontal:      false,
		Speed:               1.05,
		Volume:              1.0,
		ColorFilter:         FilterBright,
		MotionBlur:          false,
		FilmGrain:           0.15,
		Vignette:            false,
		ShuffleSegments:     false,
		TextOverlay: TextOverlay{
			Enabled:         false,
			Text:            "MUA NGAY",
			Position:        PositionBottom,
			TextColor:       "#ee4d2d",
			BackgroundColor: "#ffffffcc",
			StrokeColor:     "#000000",
		},
		OverlayMode: OverlayFullCanvas,
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*TransformConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"path":     path,
	}).Info("Loaded transform configuration")

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *TransformConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Normalize returns a copy with gain and grain clamped to their permitted ranges and
// empty enums replaced by their defaults.
func (c *TransformConfig) Normalize() *TransformConfig {
	out := *c

	if v := limits.ClampVolume(c.Volume); v != c.Volume {
		logrus.WithFields(logrus.Fields{
			"function": "Normalize",
			"volume":   c.Volume,
			"clamped":  v,
		}).Warn("Volume out of range, clamping")
		out.Volume = v
	}
	if g := limits.ClampFilmGrain(c.FilmGrain); g != c.FilmGrain {
		logrus.WithFields(logrus.Fields{
			"function":   "Normalize",
			"film_grain": c.FilmGrain,
			"clamped":    g,
		}).Warn("Film grain out of range, clamping")
		out.FilmGrain = g
	}
	if out.ColorFilter == "" {
		out.ColorFilter = FilterNone
	}
	if out.OverlayMode == "" {
		out.OverlayMode = OverlayFullCanvas
	}
	return &out
}

// Validate rejects values that cannot be clamped into a meaningful render.
func (c *TransformConfig) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"zoom_level", c.ZoomLevel},
		{"speed", c.Speed},
		{"volume", c.Volume},
		{"film_grain", c.FilmGrain},
		{"trim_start", c.TrimStart},
		{"trim_end", c.TrimEnd},
		{"text_overlay.position", float64(c.TextOverlay.Position)},
		{"text_overlay.font_size", c.TextOverlay.FontSize},
	} {
		if !limits.IsFinite(f.value) {
			return fmt.Errorf("%w: %s must be a finite number, got %v", ErrInvalidConfig, f.name, f.value)
		}
	}
	if err := limits.ValidateZoom(c.ZoomLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("%w: speed must be positive, got %v", ErrInvalidConfig, c.Speed)
	}
	if err := limits.ValidateSpeed(c.Speed); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.ColorFilter != "" && !c.ColorFilter.Valid() {
		return fmt.Errorf("%w: unknown color filter %q", ErrInvalidConfig, c.ColorFilter)
	}
	switch c.OverlayMode {
	case "", OverlayFullCanvas, OverlayTopBand:
	default:
		return fmt.Errorf("%w: unknown overlay mode %q", ErrInvalidConfig, c.OverlayMode)
	}
	if c.TrimStart < 0 || c.TrimEnd < 0 {
		return fmt.Errorf("%w: trim values must be non-negative", ErrInvalidConfig)
	}
	if err := c.TextOverlay.Validate(); err != nil {
		return err
	}
	return nil
}

// TrimStartDuration returns TrimStart as a duration.
func (c *TransformConfig) TrimStartDuration() time.Duration {
	return seconds(c.TrimStart)
}

// TrimEndDuration returns TrimEnd as a duration; zero means the natural end.
func (c *TransformConfig) TrimEndDuration() time.Duration {
	return seconds(c.TrimEnd)
}

func seconds(s float64) time.Duration {
	return time.Duration(s*float64(time.Second) + 0.5)
}
