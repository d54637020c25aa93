package limits

import (
	"errors"
	"math"
	"testing"
	"time"
)

// TestValidateZoom tests the zoom range validation function
func TestValidateZoom(t *testing.T) {
	tests := []struct {
		name    string
		zoom    float64
		wantErr error
	}{
		{name: "no zoom", zoom: 0, wantErr: nil},
		{name: "max zoom in", zoom: MaxZoom, wantErr: nil},
		{name: "max zoom out", zoom: -MaxZoom, wantErr: nil},
		{name: "zoom in too far", zoom: 0.51, wantErr: ErrOutOfRange},
		{name: "zoom out too far", zoom: -0.9, wantErr: ErrOutOfRange},
		{name: "NaN", zoom: math.NaN(), wantErr: ErrOutOfRange},
		{name: "positive infinity", zoom: math.Inf(1), wantErr: ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateZoom(tt.zoom)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateZoom(%v) error = %v, wantErr %v", tt.zoom, err, tt.wantErr)
			}
		})
	}
}

// TestValidateSpeed tests the tempo validation function
func TestValidateSpeed(t *testing.T) {
	tests := []struct {
		name    string
		speed   float64
		wantErr error
	}{
		{name: "unity", speed: 1.0, wantErr: nil},
		{name: "slight speed up", speed: 1.05, wantErr: nil},
		{name: "zero", speed: 0, wantErr: ErrOutOfRange},
		{name: "negative", speed: -1, wantErr: ErrOutOfRange},
		{name: "too fast", speed: 10, wantErr: ErrOutOfRange},
		{name: "NaN", speed: math.NaN(), wantErr: ErrOutOfRange},
		{name: "negative infinity", speed: math.Inf(-1), wantErr: ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpeed(tt.speed)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSpeed(%v) error = %v, wantErr %v", tt.speed, err, tt.wantErr)
			}
		})
	}
}

// TestIsFinite tests the NaN and infinity guard shared by the validators
func TestIsFinite(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{0, true},
		{-0.5, true},
		{math.MaxFloat64, true},
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
	}
	for _, tt := range tests {
		if got := IsFinite(tt.v); got != tt.want {
			t.Errorf("IsFinite(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

// TestValidateDimensions tests surface size validation
func TestValidateDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantErr       error
	}{
		{name: "default vertical", width: OutputWidth, height: OutputHeight, wantErr: nil},
		{name: "minimum", width: 16, height: 16, wantErr: nil},
		{name: "too small", width: 8, height: 16, wantErr: ErrInvalidDimensions},
		{name: "odd width", width: 1081, height: 1920, wantErr: ErrInvalidDimensions},
		{name: "zero", width: 0, height: 0, wantErr: ErrInvalidDimensions},
		{name: "too large", width: 16000, height: 16000, wantErr: ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDimensions(tt.width, tt.height)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDimensions(%d, %d) error = %v, wantErr %v", tt.width, tt.height, err, tt.wantErr)
			}
		})
	}
}

// TestClampHelpers verifies volume and grain clamping
func TestClampHelpers(t *testing.T) {
	if got := ClampVolume(1.5); got != MaxVolume {
		t.Errorf("ClampVolume(1.5) = %v, want %v", got, MaxVolume)
	}
	if got := ClampVolume(-0.2); got != 0 {
		t.Errorf("ClampVolume(-0.2) = %v, want 0", got)
	}
	if got := ClampVolume(0.4); got != 0.4 {
		t.Errorf("ClampVolume(0.4) = %v, want 0.4", got)
	}
	if got := ClampFilmGrain(0.9); got != MaxFilmGrain {
		t.Errorf("ClampFilmGrain(0.9) = %v, want %v", got, MaxFilmGrain)
	}
}

// TestVideoBitRateFor verifies the resolution-based bitrate tiers
func TestVideoBitRateFor(t *testing.T) {
	if got := VideoBitRateFor(1080, 1920); got != HighVideoBitRate {
		t.Errorf("VideoBitRateFor(1080, 1920) = %d, want %d", got, HighVideoBitRate)
	}
	if got := VideoBitRateFor(1280, 720); got != StandardVideoBitRate {
		t.Errorf("VideoBitRateFor(1280, 720) = %d, want %d (threshold is exclusive)", got, StandardVideoBitRate)
	}
	if got := VideoBitRateFor(640, 480); got != StandardVideoBitRate {
		t.Errorf("VideoBitRateFor(640, 480) = %d, want %d", got, StandardVideoBitRate)
	}
}

// TestFrameTimestamp verifies frame timestamps do not drift
func TestFrameTimestamp(t *testing.T) {
	if got := FrameTimestamp(30, 30); got != time.Second {
		t.Errorf("FrameTimestamp(30, 30) = %v, want 1s", got)
	}
	if got := FrameTimestamp(90000, 30); got != 3000*time.Second {
		t.Errorf("FrameTimestamp(90000, 30) = %v, want 3000s", got)
	}
	if got := FrameTimestamp(1, 30); got != 33333333*time.Nanosecond {
		t.Errorf("FrameTimestamp(1, 30) = %v, want 33.333333ms", got)
	}
}
