package reframe

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/reframe/av"
	"github.com/opd-ai/reframe/av/mux"
	"github.com/opd-ai/reframe/config"
	"github.com/opd-ai/reframe/interfaces"
	"github.com/opd-ai/reframe/timeline"
	simtesting "github.com/opd-ai/reframe/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

const (
	testWidth  = 108
	testHeight = 192
)

// recordingBackend wraps the chunk backend and remembers what reached it.
type recordingBackend struct {
	*av.ChunkBackend

	mu        sync.Mutex
	openErr   error
	opened    int
	closed    int
	videoTS   []time.Duration
	keyframes []bool
	audio     []*interfaces.AudioBuffer
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{ChunkBackend: av.NewChunkBackend()}
}

func (b *recordingBackend) Open(ctx context.Context, cfg av.EncoderConfig) error {
	b.mu.Lock()
	b.opened++
	err := b.openErr
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.ChunkBackend.Open(ctx, cfg)
}

func (b *recordingBackend) EncodeVideo(img image.Image, ts time.Duration, keyframe bool) error {
	b.mu.Lock()
	b.videoTS = append(b.videoTS, ts)
	b.keyframes = append(b.keyframes, keyframe)
	b.mu.Unlock()
	return b.ChunkBackend.EncodeVideo(img, ts, keyframe)
}

func (b *recordingBackend) EncodeAudio(buf *interfaces.AudioBuffer) error {
	b.mu.Lock()
	b.audio = append(b.audio, buf.Clone())
	b.mu.Unlock()
	return b.ChunkBackend.EncodeAudio(buf)
}

func (b *recordingBackend) Close() error {
	b.mu.Lock()
	b.closed++
	b.mu.Unlock()
	return b.ChunkBackend.Close()
}

func (b *recordingBackend) audioTimestamps() []time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]time.Duration, len(b.audio))
	for i, buf := range b.audio {
		out[i] = buf.Timestamp
	}
	return out
}

func newSource(t *testing.T, d time.Duration) *simtesting.SimulatedMediaSource {
	t.Helper()
	cfg := simtesting.DefaultSimulatedSourceConfig()
	cfg.Duration = d
	src, err := simtesting.NewSimulatedMediaSource(cfg)
	require.NoError(t, err)
	return src
}

// plainConfig renders at unit speed so frame counts are easy to predict.
func plainConfig() *config.TransformConfig {
	cfg := config.Default()
	cfg.Speed = 1.0
	return cfg
}

func testOptions(extra ...Option) []Option {
	return append([]Option{WithOutputSize(testWidth, testHeight), WithSeed(7)}, extra...)
}

func assertNonDecreasing(t *testing.T, ts []time.Duration, label string) {
	t.Helper()
	for i := 1; i < len(ts); i++ {
		if ts[i] < ts[i-1] {
			t.Fatalf("%s timestamp %d (%v) before %d (%v)", label, i, ts[i], i-1, ts[i-1])
		}
	}
}

func TestRenderProducesContainer(t *testing.T) {
	src := newSource(t, 2*time.Second)
	backend := newRecordingBackend()

	result, err := Render(context.Background(), src, nil, plainConfig(), nil, testOptions(WithBackend(backend))...)
	require.NoError(t, err)

	assert.Equal(t, mux.MIMEType, result.MIME)
	assert.Equal(t, mux.Extension, result.Extension)
	require.Greater(t, len(result.Container), 4)
	assert.Equal(t, []byte{0x1a, 0x45, 0xdf, 0xa3}, result.Container[:4])
	assert.Equal(t, blake2b.Sum256(result.Container), result.Digest)
	assert.Len(t, result.DigestHex(), 64)
	assert.NotEqual(t, uuid.Nil, result.RunID)

	// [0, 1.8s) at 30 fps
	assert.Equal(t, 1800*time.Millisecond, result.Duration)
	assert.Equal(t, int64(54), result.VideoFrames)
	assert.Equal(t, int64(1), result.Keyframes)
	assert.Greater(t, result.AudioUnits, int64(0))
	require.Len(t, result.Plan.Segments, 1)

	assert.Equal(t, 1, src.GetStats().CloseCalls)
	assert.Equal(t, 1, backend.closed)
	assert.True(t, backend.keyframes[0])
}

func TestRenderScenarios(t *testing.T) {
	tests := []struct {
		name         string
		duration     time.Duration
		configure    func(*config.TransformConfig)
		wantSegments []timeline.Segment
		wantSeeks    []time.Duration
		wantDuration time.Duration
	}{
		{
			name:         "natural end single segment",
			duration:     10 * time.Second,
			configure:    func(c *config.TransformConfig) {},
			wantSegments: []timeline.Segment{{Start: 0, End: 9800 * time.Millisecond}},
			wantSeeks:    []time.Duration{0},
			wantDuration: 9800 * time.Millisecond,
		},
		{
			name:     "shuffled three second chunks",
			duration: 10 * time.Second,
			configure: func(c *config.TransformConfig) {
				c.ShuffleSegments = true
				c.TrimEnd = 9
			},
			wantSegments: []timeline.Segment{
				{Start: 3 * time.Second, End: 6 * time.Second},
				{Start: 0, End: 3 * time.Second},
				{Start: 6 * time.Second, End: 9 * time.Second},
			},
			wantSeeks:    []time.Duration{3 * time.Second, 0, 6 * time.Second},
			wantDuration: 9 * time.Second,
		},
		{
			name:     "trimmed and doubled tempo",
			duration: 4 * time.Second,
			configure: func(c *config.TransformConfig) {
				c.TrimStart = 1
				c.TrimEnd = 3
				c.Speed = 2
			},
			wantSegments: []timeline.Segment{{Start: time.Second, End: 3 * time.Second}},
			wantSeeks:    []time.Duration{time.Second},
			wantDuration: time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSource(t, tt.duration)
			backend := newRecordingBackend()
			cfg := plainConfig()
			tt.configure(cfg)

			result, err := Render(context.Background(), src, nil, cfg, nil, testOptions(WithBackend(backend))...)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSegments, result.Plan.Segments)
			assert.Equal(t, tt.wantSeeks, src.SeekLog())
			assert.Equal(t, tt.wantDuration, result.Duration)

			wantFrames := int64(tt.wantDuration * 30 / time.Second)
			assert.Equal(t, wantFrames, result.VideoFrames)

			assertNonDecreasing(t, backend.videoTS, "video")
			audioTS := backend.audioTimestamps()
			assertNonDecreasing(t, audioTS, "audio")
			require.NotEmpty(t, audioTS)
			assert.Less(t, audioTS[len(audioTS)-1], result.Duration)
		})
	}
}

func TestRenderShuffleRestampsAudioPerSegment(t *testing.T) {
	src := newSource(t, 10*time.Second)
	backend := newRecordingBackend()
	cfg := plainConfig()
	cfg.ShuffleSegments = true
	cfg.TrimEnd = 9

	_, err := Render(context.Background(), src, nil, cfg, nil, testOptions(WithBackend(backend))...)
	require.NoError(t, err)

	// Output covers [0, 9s) with no gap wider than one buffer at segment joins.
	audioTS := backend.audioTimestamps()
	bufLen := time.Duration(1024) * time.Second / 48000
	for i := 1; i < len(audioTS); i++ {
		assert.LessOrEqual(t, audioTS[i]-audioTS[i-1], bufLen+time.Millisecond, "gap before buffer %d", i)
	}
	assert.Less(t, audioTS[0], bufLen)
}

func TestRenderInvalidRangeOpensNothing(t *testing.T) {
	src := newSource(t, 10*time.Second)
	backend := newRecordingBackend()
	cfg := plainConfig()
	cfg.TrimStart = 5
	cfg.TrimEnd = 2

	result, err := Render(context.Background(), src, nil, cfg, nil, testOptions(WithBackend(backend))...)
	require.Error(t, err)
	assert.Nil(t, result)

	var rerr *RenderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, KindInput, rerr.Kind)
	assert.Equal(t, "plan", rerr.Op)
	assert.ErrorIs(t, err, ErrInvalidRange)

	assert.Equal(t, 0, backend.opened)
	assert.Equal(t, 1, src.GetStats().CloseCalls)
}

func TestRenderVolumeZeroSilencesAudio(t *testing.T) {
	render := func(volume float64) *recordingBackend {
		src := newSource(t, 2*time.Second)
		backend := newRecordingBackend()
		cfg := plainConfig()
		cfg.Volume = volume
		_, err := Render(context.Background(), src, nil, cfg, nil, testOptions(WithBackend(backend))...)
		require.NoError(t, err)
		return backend
	}

	loud := render(1.0)
	silent := render(0)

	require.NotEmpty(t, silent.audio)
	for i, buf := range silent.audio {
		for _, s := range buf.Samples {
			if s != 0 {
				t.Fatalf("buffer %d carries non-zero sample %d", i, s)
			}
		}
	}
	assert.Equal(t, loud.audioTimestamps(), silent.audioTimestamps())
}

func TestRenderIsDeterministicWithSeed(t *testing.T) {
	render := func() *Result {
		src := newSource(t, 2*time.Second)
		cfg := plainConfig()
		cfg.FilmGrain = 0.3
		cfg.Vignette = true
		result, err := Render(context.Background(), src, nil, cfg, nil, testOptions()...)
		require.NoError(t, err)
		return result
	}

	first, second := render(), render()
	assert.Equal(t, first.Digest, second.Digest)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRenderProgressIsMonotonic(t *testing.T) {
	src := newSource(t, 10*time.Second)
	cfg := plainConfig()
	cfg.ShuffleSegments = true

	var mu sync.Mutex
	var values []float64
	onProgress := func(p float64) {
		mu.Lock()
		values = append(values, p)
		mu.Unlock()
	}

	_, err := Render(context.Background(), src, nil, cfg, onProgress, testOptions()...)
	require.NoError(t, err)

	require.NotEmpty(t, values)
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "progress step %d", i)
	}
	for _, v := range values[:len(values)-1] {
		assert.Less(t, v, 100.0)
	}
	assert.Equal(t, 100.0, values[len(values)-1])
}

func TestRenderCancellation(t *testing.T) {
	simCfg := simtesting.DefaultSimulatedSourceConfig()
	simCfg.FrameDelay = 2 * time.Millisecond
	src, err := simtesting.NewSimulatedMediaSource(simCfg)
	require.NoError(t, err)
	backend := newRecordingBackend()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	onProgress := func(p float64) {
		if p >= 10 {
			once.Do(cancel)
		}
	}

	start := time.Now()
	result, err := Render(ctx, src, nil, plainConfig(), onProgress, testOptions(WithBackend(backend))...)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Less(t, time.Since(start), 5*time.Second)

	var rerr *RenderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, KindCancelled, rerr.Kind)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, src.GetStats().CloseCalls)
	assert.Equal(t, 1, backend.closed)
}

func TestRenderErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*simtesting.SimulatedMediaSource, *recordingBackend, *config.TransformConfig)
		wantKind ErrorKind
		wantErr  error
	}{
		{
			name: "invalid zoom",
			setup: func(_ *simtesting.SimulatedMediaSource, _ *recordingBackend, c *config.TransformConfig) {
				c.ZoomLevel = 0.9
			},
			wantKind: KindInput,
			wantErr:  ErrInvalidConfig,
		},
		{
			name: "bad caption color",
			setup: func(_ *simtesting.SimulatedMediaSource, _ *recordingBackend, c *config.TransformConfig) {
				c.TextOverlay.Enabled = true
				c.TextOverlay.TextColor = "not-a-color"
			},
			wantKind: KindInput,
			wantErr:  ErrInvalidConfig,
		},
		{
			name: "encoder unavailable",
			setup: func(_ *simtesting.SimulatedMediaSource, b *recordingBackend, _ *config.TransformConfig) {
				b.openErr = av.ErrUnsupportedEnvironment
			},
			wantKind: KindCapability,
			wantErr:  ErrUnsupportedEnvironment,
		},
		{
			name: "decoder failure",
			setup: func(s *simtesting.SimulatedMediaSource, _ *recordingBackend, _ *config.TransformConfig) {
				s.InjectVideoError(errors.New("corrupt packet"))
			},
			wantKind: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSource(t, 2*time.Second)
			backend := newRecordingBackend()
			cfg := plainConfig()
			tt.setup(src, backend, cfg)

			_, err := Render(context.Background(), src, nil, cfg, nil, testOptions(WithBackend(backend))...)
			require.Error(t, err)

			assert.ErrorIs(t, err, &RenderError{Kind: tt.wantKind})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 1, src.GetStats().CloseCalls)
		})
	}
}

func TestRenderRejectsNonFiniteConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.TransformConfig)
	}{
		{"speed", func(c *config.TransformConfig) { c.Speed = math.NaN() }},
		{"zoom", func(c *config.TransformConfig) { c.ZoomLevel = math.NaN() }},
		{"volume", func(c *config.TransformConfig) { c.Volume = math.NaN() }},
		{"trim end", func(c *config.TransformConfig) { c.TrimEnd = math.NaN() }},
		{"film grain", func(c *config.TransformConfig) { c.FilmGrain = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSource(t, 4*time.Second)
			backend := newRecordingBackend()
			cfg := plainConfig()
			tt.mutate(cfg)

			result, err := Render(context.Background(), src, nil, cfg, nil, testOptions(WithBackend(backend))...)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, &RenderError{Kind: KindInput, Op: "validate"})
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Equal(t, 0, backend.opened)
		})
	}
}

func TestRenderNilSource(t *testing.T) {
	_, err := Render(context.Background(), nil, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNilSource)
	assert.ErrorIs(t, err, &RenderError{Kind: KindInput})
}

func TestRenderWithOverlayImage(t *testing.T) {
	src := newSource(t, time.Second)
	cover := image.NewRGBA(image.Rect(0, 0, 20, 20))
	cfg := plainConfig()
	cfg.OverlayMode = config.OverlayTopBand

	result, err := Render(context.Background(), src, cover, cfg, nil, testOptions()...)
	require.NoError(t, err)
	assert.Equal(t, int64(24), result.VideoFrames)
}
