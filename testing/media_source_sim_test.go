package testing

import (
	"context"
	"errors"
	"image"
	"io"
	"testing"
	"time"

	"github.com/opd-ai/reframe/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ interfaces.MediaSource = (*SimulatedMediaSource)(nil)

func newTestSource(t *testing.T, d time.Duration) *SimulatedMediaSource {
	t.Helper()
	cfg := DefaultSimulatedSourceConfig()
	cfg.Duration = d
	src, err := NewSimulatedMediaSource(cfg)
	require.NoError(t, err)
	return src
}

func TestNewSimulatedMediaSourceValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SimulatedSourceConfig)
		target error
	}{
		{"zero width", func(c *SimulatedSourceConfig) { c.Width = 0 }, interfaces.ErrInvalidSourceSize},
		{"zero frame rate", func(c *SimulatedSourceConfig) { c.FrameRate = 0 }, interfaces.ErrInvalidFrameRate},
		{"zero sample rate", func(c *SimulatedSourceConfig) { c.SampleRate = 0 }, interfaces.ErrInvalidSampleRate},
		{"three channels", func(c *SimulatedSourceConfig) { c.Channels = 3 }, interfaces.ErrInvalidChannels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSimulatedSourceConfig()
			tt.mutate(&cfg)
			_, err := NewSimulatedMediaSource(cfg)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestSimulatedVideoFramesUntilEOF(t *testing.T) {
	src := newTestSource(t, time.Second)
	ctx := context.Background()

	var last time.Duration = -1
	count := 0
	for {
		f, err := src.NextVideoFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Greater(t, f.Timestamp, last)
		last = f.Timestamp
		count++
	}
	assert.Equal(t, 30, count)
	assert.Equal(t, 30, src.GetStats().FramesDelivered)
}

func TestSimulatedSeekIsAtOrBefore(t *testing.T) {
	src := newTestSource(t, 10*time.Second)
	ctx := context.Background()

	require.NoError(t, src.Seek(ctx, 3050*time.Millisecond))

	f, err := src.NextVideoFrame(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, f.Timestamp, 3050*time.Millisecond)
	assert.Equal(t, FrameTime(91, 30), f.Timestamp)
	assert.Equal(t, uint8(91), f.Image.(*image.RGBA).RGBAAt(0, 0).R)

	b, err := src.NextAudioBuffer(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, b.Timestamp, 3050*time.Millisecond)
	assert.Greater(t, b.End(), 3*time.Second)

	assert.Equal(t, []time.Duration{3050 * time.Millisecond}, src.SeekLog())
}

func TestSimulatedAudioIsSeekIndependent(t *testing.T) {
	a := newTestSource(t, 5*time.Second)
	b := newTestSource(t, 5*time.Second)
	ctx := context.Background()

	// a reads sequentially up to 2s; b seeks straight there.
	var fromA *interfaces.AudioBuffer
	for {
		buf, err := a.NextAudioBuffer(ctx)
		require.NoError(t, err)
		if buf.End() > 2*time.Second {
			fromA = buf
			break
		}
	}
	// Seek inside the buffer; the source snaps back to its boundary.
	require.NoError(t, b.Seek(ctx, fromA.Timestamp+time.Millisecond))
	fromB, err := b.NextAudioBuffer(ctx)
	require.NoError(t, err)

	assert.Equal(t, fromA.Timestamp, fromB.Timestamp)
	assert.Equal(t, fromA.Samples, fromB.Samples)
}

func TestSimulatedAudioLastBufferIsShort(t *testing.T) {
	cfg := DefaultSimulatedSourceConfig()
	cfg.Duration = 100 * time.Millisecond // 4800 frames
	cfg.BufferFrames = 1000
	src, err := NewSimulatedMediaSource(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	var frames []int
	for {
		buf, err := src.NextAudioBuffer(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		frames = append(frames, buf.Frames())
	}
	assert.Equal(t, []int{1000, 1000, 1000, 1000, 800}, frames)
}

func TestSimulatedErrorsAndClose(t *testing.T) {
	src := newTestSource(t, time.Second)
	ctx := context.Background()
	boom := errors.New("decode failure")

	src.InjectVideoError(boom)
	_, err := src.NextVideoFrame(ctx)
	assert.ErrorIs(t, err, boom)

	src.InjectAudioError(boom)
	_, err = src.NextAudioBuffer(ctx)
	assert.ErrorIs(t, err, boom)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	assert.Equal(t, 2, src.GetStats().CloseCalls)
	assert.ErrorIs(t, src.Seek(ctx, 0), ErrSourceClosed)
}

func TestSimulatedFrameDelayHonorsCancellation(t *testing.T) {
	cfg := DefaultSimulatedSourceConfig()
	cfg.FrameDelay = time.Hour
	src, err := NewSimulatedMediaSource(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = src.NextVideoFrame(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRenderFrameIsDeterministic(t *testing.T) {
	assert.Equal(t, RenderFrame(7, 8, 8).Pix, RenderFrame(7, 8, 8).Pix)
	assert.NotEqual(t, RenderFrame(7, 8, 8).Pix, RenderFrame(8, 8, 8).Pix)
}
