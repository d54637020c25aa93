// Package limits provides centralized output geometry, cadence and range limits for the
// render pipeline. This ensures consistent validation across the planner, compositor,
// retimer and encoder stages.
package limits

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// OutputWidth is the default width of the composited vertical raster
	OutputWidth = 1080

	// OutputHeight is the default height of the composited vertical raster
	OutputHeight = 1920

	// FrameRate is the fixed output frame rate in frames per second
	FrameRate = 30

	// KeyframeInterval bounds seek granularity in the output
	KeyframeInterval = 2 * time.Second

	// MaxSurfacePixels caps the compositing surface (8K UHD) to avoid runaway allocations
	MaxSurfacePixels = 7680 * 4320

	// MinSurfaceDimension is the smallest surface edge the encoders accept
	MinSurfaceDimension = 16
)

const (
	// SegmentLength is the nominal chunk length used when shuffling
	SegmentLength = 3 * time.Second

	// EndSafetyMargin is trimmed from the natural end to avoid decoder end-of-stream stalls
	EndSafetyMargin = 200 * time.Millisecond

	// MinSourceDuration is the shortest source the planner will process
	MinSourceDuration = 500 * time.Millisecond
)

const (
	// AudioSampleRate is the output audio sample rate in Hz
	AudioSampleRate = 48000

	// AudioChannels is the output channel count (stereo)
	AudioChannels = 2

	// AudioBitRate is the mid-tier lossy audio bitrate in bits per second
	AudioBitRate = 128000

	// HighVideoBitRate is used above HighBitRatePixelThreshold
	HighVideoBitRate = 8000000

	// StandardVideoBitRate is used at or below HighBitRatePixelThreshold
	StandardVideoBitRate = 4000000

	// HighBitRatePixelThreshold is 1280x720; larger rasters get the high tier
	HighBitRatePixelThreshold = 921600
)

const (
	// MaxZoom is the largest absolute zoom level (crop in or letterbox out)
	MaxZoom = 0.5

	// MaxFilmGrain is the strongest grain intensity
	MaxFilmGrain = 0.6

	// MaxVolume is the largest output gain; amplification is not supported
	MaxVolume = 1.0

	// MinSpeed and MaxSpeed bound the tempo multiplier
	MinSpeed = 0.25
	MaxSpeed = 4.0
)

var (
	// ErrOutOfRange indicates a configured value falls outside its permitted range
	ErrOutOfRange = errors.New("value out of range")

	// ErrInvalidDimensions indicates a surface size the pipeline cannot allocate or encode
	ErrInvalidDimensions = errors.New("invalid dimensions")
)

// ValidateZoom checks zoom against [-MaxZoom, MaxZoom].
func ValidateZoom(zoom float64) error {
	if !IsFinite(zoom) || zoom < -MaxZoom || zoom > MaxZoom {
		return fmt.Errorf("%w: zoom %.3f outside [%.1f, %.1f]", ErrOutOfRange, zoom, -MaxZoom, MaxZoom)
	}
	return nil
}

// ValidateSpeed checks the tempo multiplier against [MinSpeed, MaxSpeed].
func ValidateSpeed(speed float64) error {
	if !IsFinite(speed) || speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: speed %.3f outside [%.2f, %.2f]", ErrOutOfRange, speed, MinSpeed, MaxSpeed)
	}
	return nil
}

// ValidateDimensions checks a raster size against the surface limits.
// Encoders require even dimensions for chroma subsampling.
func ValidateDimensions(width, height int) error {
	if width < MinSurfaceDimension || height < MinSurfaceDimension {
		return fmt.Errorf("%w: %dx%d below minimum %d", ErrInvalidDimensions, width, height, MinSurfaceDimension)
	}
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("%w: %dx%d must be even", ErrInvalidDimensions, width, height)
	}
	if width*height > MaxSurfacePixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidDimensions, width, height, MaxSurfacePixels)
	}
	return nil
}

// IsFinite reports whether v is neither NaN nor an infinity. Range comparisons
// against NaN are always false, so validators check this first.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ClampVolume limits gain to [0, MaxVolume].
func ClampVolume(volume float64) float64 {
	return clamp(volume, 0, MaxVolume)
}

// ClampFilmGrain limits grain intensity to [0, MaxFilmGrain].
func ClampFilmGrain(grain float64) float64 {
	return clamp(grain, 0, MaxFilmGrain)
}

// VideoBitRateFor returns the bitrate tier for a raster size.
func VideoBitRateFor(width, height int) uint32 {
	if width*height > HighBitRatePixelThreshold {
		return HighVideoBitRate
	}
	return StandardVideoBitRate
}

// FrameTimestamp returns the output timestamp of frame index n at fps.
// Computed from the index to avoid accumulating rounding drift.
func FrameTimestamp(n int64, fps int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(fps)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
