package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Position is the vertical center of the text block in percent of the canvas height.
type Position float64

// Named anchors accepted in YAML.
const (
	PositionTop    Position = 15
	PositionCenter Position = 50
	PositionBottom Position = 85
)

// UnmarshalYAML accepts either a number or one of top, center, bottom.
func (p *Position) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(node.Value)) {
	case "top":
		*p = PositionTop
		return nil
	case "center", "middle":
		*p = PositionCenter
		return nil
	case "bottom":
		*p = PositionBottom
		return nil
	}
	var v float64
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("%w: text position %q", ErrInvalidConfig, node.Value)
	}
	*p = Position(v)
	return nil
}

// TextOverlay describes the caption drawn over every frame.
type TextOverlay struct {
	Enabled  bool     `yaml:"enabled"`
	Text     string   `yaml:"text"`
	Position Position `yaml:"position"`
	// FontSize in pixels; zero selects 5% of the canvas height.
	FontSize        float64 `yaml:"font_size"`
	TextColor       string  `yaml:"text_color"`
	BackgroundColor string  `yaml:"background_color"`
	StrokeColor     string  `yaml:"stroke_color"`
}

// Validate checks position range and color syntax.
func (t TextOverlay) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.Position < 0 || t.Position > 100 {
		return fmt.Errorf("%w: text position %.1f outside [0, 100]", ErrInvalidConfig, float64(t.Position))
	}
	if t.FontSize < 0 {
		return fmt.Errorf("%w: negative font size", ErrInvalidConfig)
	}
	for _, c := range []string{t.TextColor, t.BackgroundColor, t.StrokeColor} {
		if c == "" {
			continue
		}
		if _, err := ParseColor(c); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// CaptionSuggestion is the output of the external text-generation service.
type CaptionSuggestion struct {
	Caption   string   `json:"caption" yaml:"caption"`
	Hook      string   `json:"hook" yaml:"hook"`
	Subtitles []string `json:"subtitles" yaml:"subtitles"`
}

// WithSuggestion returns a copy of t showing the suggestion's hook, falling back to
// the caption when no hook was produced. An empty suggestion leaves t unchanged.
func (t TextOverlay) WithSuggestion(s CaptionSuggestion) TextOverlay {
	text := strings.TrimSpace(s.Hook)
	if text == "" {
		text = strings.TrimSpace(s.Caption)
	}
	if text == "" {
		return t
	}
	t.Text = text
	t.Enabled = true
	return t
}

// ParseColor parses #rgb, #rgba, #rrggbb and #rrggbbaa into a non-premultiplied color.
// An empty string is fully transparent.
func ParseColor(s string) (color.NRGBA, error) {
	if s == "" {
		return color.NRGBA{}, nil
	}
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3, 4:
		expanded := make([]byte, 0, len(hex)*2)
		for i := 0; i < len(hex); i++ {
			expanded = append(expanded, hex[i], hex[i])
		}
		hex = string(expanded)
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
