package config

import (
	"errors"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.12, cfg.ZoomLevel)
	assert.Equal(t, 1.05, cfg.Speed)
	assert.Equal(t, FilterBright, cfg.ColorFilter)
	assert.Equal(t, 0.15, cfg.FilmGrain)
	assert.Equal(t, PositionBottom, cfg.TextOverlay.Position)
	assert.Equal(t, OverlayFullCanvas, cfg.OverlayMode)

	stroke, err := ParseColor(cfg.TextOverlay.StrokeColor)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), stroke.A, "default caption has an opaque outline")
	assert.Equal(t, "MUA NGAY", cfg.TextOverlay.Text)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *TransformConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *TransformConfig) {}},
		{name: "negative zoom letterbox", mutate: func(c *TransformConfig) { c.ZoomLevel = -0.5 }},
		{name: "zoom too large", mutate: func(c *TransformConfig) { c.ZoomLevel = 0.75 }, wantErr: true},
		{name: "zero speed", mutate: func(c *TransformConfig) { c.Speed = 0 }, wantErr: true},
		{name: "speed too fast", mutate: func(c *TransformConfig) { c.Speed = 10 }, wantErr: true},
		{name: "unknown filter", mutate: func(c *TransformConfig) { c.ColorFilter = "sepia" }, wantErr: true},
		{name: "unknown overlay mode", mutate: func(c *TransformConfig) { c.OverlayMode = "tiled" }, wantErr: true},
		{name: "negative trim", mutate: func(c *TransformConfig) { c.TrimStart = -1 }, wantErr: true},
		{name: "volume above range is clamped not rejected", mutate: func(c *TransformConfig) { c.Volume = 3 }},
		{name: "NaN zoom", mutate: func(c *TransformConfig) { c.ZoomLevel = math.NaN() }, wantErr: true},
		{name: "NaN speed", mutate: func(c *TransformConfig) { c.Speed = math.NaN() }, wantErr: true},
		{name: "infinite speed", mutate: func(c *TransformConfig) { c.Speed = math.Inf(1) }, wantErr: true},
		{name: "NaN volume", mutate: func(c *TransformConfig) { c.Volume = math.NaN() }, wantErr: true},
		{name: "infinite volume", mutate: func(c *TransformConfig) { c.Volume = math.Inf(1) }, wantErr: true},
		{name: "NaN film grain", mutate: func(c *TransformConfig) { c.FilmGrain = math.NaN() }, wantErr: true},
		{name: "NaN trim start", mutate: func(c *TransformConfig) { c.TrimStart = math.NaN() }, wantErr: true},
		{name: "NaN trim end", mutate: func(c *TransformConfig) { c.TrimEnd = math.NaN() }, wantErr: true},
		{name: "infinite trim end", mutate: func(c *TransformConfig) { c.TrimEnd = math.Inf(1) }, wantErr: true},
		{name: "NaN text position", mutate: func(c *TransformConfig) { c.TextOverlay.Position = Position(math.NaN()) }, wantErr: true},
		{name: "infinite font size", mutate: func(c *TransformConfig) { c.TextOverlay.FontSize = math.Inf(1) }, wantErr: true},
		{
			name: "bad text color",
			mutate: func(c *TransformConfig) {
				c.TextOverlay.Enabled = true
				c.TextOverlay.TextColor = "#zzz"
			},
			wantErr: true,
		},
		{
			name: "text position out of range",
			mutate: func(c *TransformConfig) {
				c.TextOverlay.Enabled = true
				c.TextOverlay.Position = 120
			},
			wantErr: true,
		},
		{
			name: "disabled text skips checks",
			mutate: func(c *TransformConfig) {
				c.TextOverlay.Enabled = false
				c.TextOverlay.TextColor = "bogus"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeClamps(t *testing.T) {
	cfg := Default()
	cfg.Volume = 1.7
	cfg.FilmGrain = 0.9
	cfg.ColorFilter = ""
	cfg.OverlayMode = ""

	n := cfg.Normalize()
	assert.Equal(t, 1.0, n.Volume)
	assert.Equal(t, 0.6, n.FilmGrain)
	assert.Equal(t, FilterNone, n.ColorFilter)
	assert.Equal(t, OverlayFullCanvas, n.OverlayMode)

	// receiver untouched
	assert.Equal(t, 1.7, cfg.Volume)

	cfg.Volume = -0.5
	assert.Equal(t, 0.0, cfg.Normalize().Volume)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.yaml")
	content := `
zoom_level: -0.2
flip_horizontal: true
color_filter: vintage
shuffle_segments: true
trim_start: 1.5
trim_end: 9
overlay_mode: top_band
text_overlay:
  enabled: true
  text: "Hello"
  position: top
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, -0.2, cfg.ZoomLevel)
	assert.True(t, cfg.FlipHorizontal)
	assert.Equal(t, FilterVintage, cfg.ColorFilter)
	assert.True(t, cfg.ShuffleSegments)
	assert.Equal(t, 1500*time.Millisecond, cfg.TrimStartDuration())
	assert.Equal(t, 9*time.Second, cfg.TrimEndDuration())
	assert.Equal(t, OverlayTopBand, cfg.OverlayMode)
	assert.Equal(t, PositionTop, cfg.TextOverlay.Position)
	assert.Equal(t, "Hello", cfg.TextOverlay.Text)
	// untouched keys keep their defaults
	assert.Equal(t, 1.05, cfg.Speed)
}

func TestLoadNumericPositionAndErrors(t *testing.T) {
	dir := t.TempDir()

	numeric := filepath.Join(dir, "numeric.yaml")
	require.NoError(t, os.WriteFile(numeric, []byte("text_overlay:\n  position: 42.5\n"), 0o644))
	cfg, err := Load(numeric)
	require.NoError(t, err)
	assert.Equal(t, Position(42.5), cfg.TextOverlay.Position)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("text_overlay:\n  position: sideways\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	nan := filepath.Join(dir, "nan.yaml")
	require.NoError(t, os.WriteFile(nan, []byte("speed: .nan\nzoom_level: .inf\n"), 0o644))
	cfg, err = Load(nan)
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveRoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Vignette = true
	cfg.TrimEnd = 12
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#ee4d2d", want: color.NRGBA{0xee, 0x4d, 0x2d, 0xff}},
		{in: "#ffffffcc", want: color.NRGBA{0xff, 0xff, 0xff, 0xcc}},
		{in: "#fff", want: color.NRGBA{0xff, 0xff, 0xff, 0xff}},
		{in: "#0008", want: color.NRGBA{0, 0, 0, 0x88}},
		{in: "", want: color.NRGBA{}},
		{in: "#12345", wantErr: true},
		{in: "#gggggg", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidColor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithSuggestion(t *testing.T) {
	base := Default().TextOverlay

	withHook := base.WithSuggestion(CaptionSuggestion{Caption: "long caption", Hook: "Watch this"})
	assert.Equal(t, "Watch this", withHook.Text)
	assert.True(t, withHook.Enabled)

	captionOnly := base.WithSuggestion(CaptionSuggestion{Caption: "  caption  "})
	assert.Equal(t, "caption", captionOnly.Text)

	unchanged := base.WithSuggestion(CaptionSuggestion{})
	assert.Equal(t, base, unchanged)
}
