// Package config holds the immutable per-run transform configuration.
//
// A TransformConfig is built from Default, optionally overlaid with a YAML file via
// Load, then checked with Validate. Out-of-range gain and grain values are clamped by
// Normalize rather than rejected; geometry and tempo values outside their limits are
// rejected with ErrInvalidConfig.
//
//	cfg, err := config.Load("render.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
