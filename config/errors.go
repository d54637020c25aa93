package config

import "errors"

var (
	// ErrInvalidConfig indicates a configuration value the pipeline cannot honor
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidColor indicates a color string that is not #rgb, #rgba, #rrggbb or #rrggbbaa
	ErrInvalidColor = errors.New("invalid color")
)
