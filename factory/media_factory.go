package factory

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/opd-ai/reframe/av"
	"github.com/opd-ai/reframe/interfaces"
	"github.com/opd-ai/reframe/limits"
	"github.com/opd-ai/reframe/real"
	"github.com/opd-ai/reframe/testing"
	"github.com/sirupsen/logrus"
)

// Validation constants for configuration bounds checking.
const (
	// MinFrameRate is the lowest accepted decode frame rate.
	MinFrameRate = 1
	// MaxFrameRate is the highest accepted decode frame rate.
	MaxFrameRate = 120
	// MinDecodeWidth is the narrowest accepted decode width in pixels.
	MinDecodeWidth = limits.MinSurfaceDimension
	// MaxDecodeWidth is the widest accepted decode width in pixels.
	MaxDecodeWidth = 7680
)

// Backend names accepted by Config.Backend and REFRAME_BACKEND.
const (
	BackendChunk  = "chunk"
	BackendStream = "stream"
)

// Config is the factory's default configuration: the decode layout handed to
// media sources plus the encoder backend to build.
type Config struct {
	interfaces.MediaSourceConfig

	// Backend is BackendChunk or BackendStream.
	Backend string
}

// MediaFactory creates media sources and encoder backends based on configuration.
// It is safe for concurrent use; all methods are protected by an internal mutex.
type MediaFactory struct {
	mu            sync.RWMutex
	defaultConfig *Config
}

// TestConfigOption is a functional option for customizing test simulation configuration.
type TestConfigOption func(*testing.SimulatedSourceConfig)

// NewMediaFactory creates a new factory with default configuration
func NewMediaFactory() *MediaFactory {
	defaultConfig := createDefaultConfig()
	applyEnvironmentOverrides(defaultConfig)
	logConfigurationInfo(defaultConfig)

	return &MediaFactory{
		defaultConfig: defaultConfig,
	}
}

// createDefaultConfig initializes the default factory configuration.
//
// Default Value Rationale:
//   - UseSimulation: false - real decoding unless explicitly disabled
//   - FrameRate: the output frame rate, so decoded frames map 1:1 onto output ticks
//   - DecodeWidth: the output width; the compositor scales from there
//   - Backend: chunk - pure Go, needs no external binaries
func createDefaultConfig() *Config {
	return &Config{
		MediaSourceConfig: interfaces.MediaSourceConfig{
			UseSimulation: false,
			FrameRate:     limits.FrameRate,
			DecodeWidth:   limits.OutputWidth,
			SampleRate:    limits.AudioSampleRate,
			Channels:      limits.AudioChannels,
		},
		Backend: BackendChunk,
	}
}

// applyEnvironmentOverrides updates configuration based on environment variables.
// It checks for REFRAME_* environment variables and overrides defaults if valid values are found.
func applyEnvironmentOverrides(config *Config) {
	parseSimulationSetting(config)
	parseFFmpegPathSetting(config)
	parseFrameRateSetting(config)
	parseDecodeWidthSetting(config)
	parseBackendSetting(config)
}

// parseSimulationSetting updates UseSimulation from REFRAME_USE_SIMULATION.
func parseSimulationSetting(config *Config) {
	if useSimStr := os.Getenv("REFRAME_USE_SIMULATION"); useSimStr != "" {
		useSim, err := strconv.ParseBool(useSimStr)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "parseSimulationSetting",
				"env_var":     "REFRAME_USE_SIMULATION",
				"value":       useSimStr,
				"error":       err.Error(),
				"using_value": config.UseSimulation,
			}).Warn("Failed to parse REFRAME_USE_SIMULATION environment variable, using default")
			return
		}
		config.UseSimulation = useSim
	}
}

func parseFFmpegPathSetting(config *Config) {
	if path := os.Getenv("REFRAME_FFMPEG_PATH"); path != "" {
		config.FFmpegPath = path
	}
}

// parseFrameRateSetting updates FrameRate from REFRAME_FRAME_RATE. The value
// must lie within [MinFrameRate, MaxFrameRate].
func parseFrameRateSetting(config *Config) {
	if rateStr := os.Getenv("REFRAME_FRAME_RATE"); rateStr != "" {
		rate, err := strconv.Atoi(rateStr)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "parseFrameRateSetting",
				"env_var":     "REFRAME_FRAME_RATE",
				"value":       rateStr,
				"error":       err.Error(),
				"using_value": config.FrameRate,
			}).Warn("Failed to parse REFRAME_FRAME_RATE environment variable, using default")
			return
		}
		if rate < MinFrameRate || rate > MaxFrameRate {
			logrus.WithFields(logrus.Fields{
				"function":    "parseFrameRateSetting",
				"env_var":     "REFRAME_FRAME_RATE",
				"value":       rate,
				"min":         MinFrameRate,
				"max":         MaxFrameRate,
				"using_value": config.FrameRate,
			}).Warn("REFRAME_FRAME_RATE value out of bounds, using default")
			return
		}
		config.FrameRate = rate
	}
}

// parseDecodeWidthSetting updates DecodeWidth from REFRAME_DECODE_WIDTH. The
// value must be even and within [MinDecodeWidth, MaxDecodeWidth].
func parseDecodeWidthSetting(config *Config) {
	if widthStr := os.Getenv("REFRAME_DECODE_WIDTH"); widthStr != "" {
		width, err := strconv.Atoi(widthStr)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "parseDecodeWidthSetting",
				"env_var":     "REFRAME_DECODE_WIDTH",
				"value":       widthStr,
				"error":       err.Error(),
				"using_value": config.DecodeWidth,
			}).Warn("Failed to parse REFRAME_DECODE_WIDTH environment variable, using default")
			return
		}
		if width < MinDecodeWidth || width > MaxDecodeWidth || width%2 != 0 {
			logrus.WithFields(logrus.Fields{
				"function":    "parseDecodeWidthSetting",
				"env_var":     "REFRAME_DECODE_WIDTH",
				"value":       width,
				"min":         MinDecodeWidth,
				"max":         MaxDecodeWidth,
				"using_value": config.DecodeWidth,
			}).Warn("REFRAME_DECODE_WIDTH value out of bounds or odd, using default")
			return
		}
		config.DecodeWidth = width
	}
}

func parseBackendSetting(config *Config) {
	if backend := os.Getenv("REFRAME_BACKEND"); backend != "" {
		name := strings.ToLower(strings.TrimSpace(backend))
		if name != BackendChunk && name != BackendStream {
			logrus.WithFields(logrus.Fields{
				"function":    "parseBackendSetting",
				"env_var":     "REFRAME_BACKEND",
				"value":       backend,
				"using_value": config.Backend,
			}).Warn("Unknown REFRAME_BACKEND value, using default")
			return
		}
		config.Backend = name
	}
}

// logConfigurationInfo logs the final configuration settings for debugging purposes.
func logConfigurationInfo(config *Config) {
	logrus.WithFields(logrus.Fields{
		"function":       "NewMediaFactory",
		"use_simulation": config.UseSimulation,
		"frame_rate":     config.FrameRate,
		"decode_width":   config.DecodeWidth,
		"backend":        config.Backend,
		"ffmpeg_path":    config.FFmpegPath,
	}).Info("Created media factory with configuration")
}

// CreateMediaSource opens path with the factory's default configuration.
func (f *MediaFactory) CreateMediaSource(ctx context.Context, path string) (interfaces.MediaSource, error) {
	return f.CreateMediaSourceWithConfig(ctx, path, nil)
}

// CreateMediaSourceWithConfig opens path with a custom configuration. A nil
// config falls back to the factory default. The simulated source ignores path.
func (f *MediaFactory) CreateMediaSourceWithConfig(ctx context.Context, path string, config *interfaces.MediaSourceConfig) (interfaces.MediaSource, error) {
	if config == nil {
		f.mu.RLock()
		c := f.defaultConfig.MediaSourceConfig
		f.mu.RUnlock()
		config = &c
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid media source config: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "CreateMediaSourceWithConfig",
		"path":           path,
		"use_simulation": config.UseSimulation,
		"frame_rate":     config.FrameRate,
		"decode_width":   config.DecodeWidth,
	}).Info("Creating media source")

	if config.UseSimulation {
		src, err := testing.NewSimulatedMediaSource(simulationConfigFor(config))
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	if path == "" {
		return nil, fmt.Errorf("path is required for real media source implementation")
	}

	src, err := real.NewFFmpegSource(ctx, path, *config)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// simulationConfigFor maps a decode layout onto a 16:9 synthetic source.
func simulationConfigFor(config *interfaces.MediaSourceConfig) testing.SimulatedSourceConfig {
	simConfig := testing.DefaultSimulatedSourceConfig()
	simConfig.Width = config.DecodeWidth
	simConfig.Height = evenAtLeast(config.DecodeWidth*9/16, limits.MinSurfaceDimension)
	simConfig.FrameRate = config.FrameRate
	simConfig.SampleRate = config.SampleRate
	simConfig.Channels = config.Channels
	return simConfig
}

func evenAtLeast(v, floor int) int {
	if v < floor {
		v = floor
	}
	return v &^ 1
}

// WithSourceDuration sets the synthetic source length.
func WithSourceDuration(d time.Duration) TestConfigOption {
	return func(c *testing.SimulatedSourceConfig) {
		c.Duration = d
	}
}

// WithSourceSize sets the synthetic frame dimensions.
func WithSourceSize(width, height int) TestConfigOption {
	return func(c *testing.SimulatedSourceConfig) {
		c.Width = width
		c.Height = height
	}
}

// WithSourceFrameRate sets the synthetic frame rate.
func WithSourceFrameRate(fps int) TestConfigOption {
	return func(c *testing.SimulatedSourceConfig) {
		c.FrameRate = fps
	}
}

// WithMonoAudio switches the synthetic tone to a single channel.
func WithMonoAudio() TestConfigOption {
	return func(c *testing.SimulatedSourceConfig) {
		c.Channels = 1
	}
}

// CreateSimulationForTesting creates a simulated source specifically for testing.
// It starts from testing.DefaultSimulatedSourceConfig and applies opts in order.
func (f *MediaFactory) CreateSimulationForTesting(opts ...TestConfigOption) (*testing.SimulatedMediaSource, error) {
	testConfig := testing.DefaultSimulatedSourceConfig()
	for _, opt := range opts {
		opt(&testConfig)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "CreateSimulationForTesting",
		"duration":   testConfig.Duration,
		"width":      testConfig.Width,
		"height":     testConfig.Height,
		"frame_rate": testConfig.FrameRate,
	}).Info("Creating simulated media source for testing")

	return testing.NewSimulatedMediaSource(testConfig)
}

// CreateBackend builds the configured encoder backend.
func (f *MediaFactory) CreateBackend() (av.EncoderBackend, error) {
	f.mu.RLock()
	backend := f.defaultConfig.Backend
	ffmpegPath := f.defaultConfig.FFmpegPath
	f.mu.RUnlock()

	logrus.WithFields(logrus.Fields{
		"function": "CreateBackend",
		"backend":  backend,
	}).Info("Creating encoder backend")

	switch backend {
	case BackendChunk, "":
		return av.NewChunkBackend(), nil
	case BackendStream:
		return real.NewStreamBackend(ffmpegPath), nil
	default:
		return nil, fmt.Errorf("unknown encoder backend %q", backend)
	}
}

// SwitchToSimulation switches the configuration to use simulation
func (f *MediaFactory) SwitchToSimulation() {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "SwitchToSimulation",
		"previous": f.defaultConfig.UseSimulation,
	}).Info("Switching factory to simulation mode")

	f.defaultConfig.UseSimulation = true
}

// SwitchToReal switches the configuration to use the ffmpeg-backed source
func (f *MediaFactory) SwitchToReal() {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "SwitchToReal",
		"previous": f.defaultConfig.UseSimulation,
	}).Info("Switching factory to real mode")

	f.defaultConfig.UseSimulation = false
}

// GetCurrentConfig returns a copy of the current default configuration
func (f *MediaFactory) GetCurrentConfig() *Config {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c := *f.defaultConfig
	return &c
}

// IsUsingSimulation returns true if the factory is configured for simulation
func (f *MediaFactory) IsUsingSimulation() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.defaultConfig.UseSimulation
}

// UpdateConfig replaces the factory's default configuration after validating it.
func (f *MediaFactory) UpdateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid media source config: %w", err)
	}
	if config.Backend != BackendChunk && config.Backend != BackendStream {
		return fmt.Errorf("unknown encoder backend %q", config.Backend)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       "UpdateConfig",
		"old_simulation": f.defaultConfig.UseSimulation,
		"new_simulation": config.UseSimulation,
		"old_backend":    f.defaultConfig.Backend,
		"new_backend":    config.Backend,
	}).Info("Updating factory configuration")

	c := *config
	f.defaultConfig = &c
	return nil
}
