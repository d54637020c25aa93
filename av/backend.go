package av

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/opd-ai/reframe/av/audio"
	"github.com/opd-ai/reframe/av/mux"
	"github.com/opd-ai/reframe/av/video"
	"github.com/opd-ai/reframe/interfaces"
	"github.com/sirupsen/logrus"
)

// EncoderBackend turns composited frames and retimed audio into a container.
//
// The Controller guarantees calls arrive in lifecycle order (Open, Encode*, Flush,
// Finalize) and that Close is called exactly once. EncodeVideo must finish reading img
// before it returns; the caller reuses the raster for the next frame.
type EncoderBackend interface {
	// Name identifies the backend in logs
	Name() string
	// Open prepares encoders and the container for cfg
	Open(ctx context.Context, cfg EncoderConfig) error
	// EncodeVideo encodes one frame at output time ts
	EncodeVideo(img image.Image, ts time.Duration, keyframe bool) error
	// EncodeAudio encodes one buffer already stamped in output time
	EncodeAudio(buf *interfaces.AudioBuffer) error
	// Flush drains pending encoder output into the container
	Flush(ctx context.Context) error
	// Finalize closes the container and returns it
	Finalize(ctx context.Context) (*Container, error)
	// Close releases every resource; safe after a failed Open
	Close() error
}

// ChunkBackend encodes each unit explicitly and packs the results into Matroska.
//
// Encoder output callbacks forward every unit to the muxer as soon as it is produced;
// the muxer orders blocks at finalize, so video and audio may arrive interleaved.
type ChunkBackend struct {
	mu    sync.Mutex
	video *video.MJPEGEncoder
	audio *audio.PCMEncoder
	muxer *mux.MatroskaMuxer
}

// NewChunkBackend creates an unopened backend.
func NewChunkBackend() *ChunkBackend {
	return &ChunkBackend{}
}

// Name returns "chunk".
func (b *ChunkBackend) Name() string {
	return "chunk"
}

// Open creates the MJPEG and PCM encoders and the Matroska muxer.
func (b *ChunkBackend) Open(ctx context.Context, cfg EncoderConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	muxer, err := mux.NewMatroskaMuxer(mux.Config{
		Width:      cfg.Width,
		Height:     cfg.Height,
		FrameRate:  cfg.FrameRate,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMux, err)
	}

	venc, err := video.NewMJPEGEncoder(
		video.Resolution{Width: cfg.Width, Height: cfg.Height},
		cfg.FrameRate, cfg.VideoBitRate, b.forward(muxer))
	if err != nil {
		return fmt.Errorf("%w: video: %w", ErrEncoder, err)
	}

	aenc, err := audio.NewPCMEncoder(cfg.SampleRate, cfg.Channels, cfg.AudioBitRate, b.forward(muxer))
	if err != nil {
		venc.Close()
		return fmt.Errorf("%w: audio: %w", ErrEncoder, err)
	}

	b.muxer, b.video, b.audio = muxer, venc, aenc

	logrus.WithFields(logrus.Fields{
		"function":      "ChunkBackend.Open",
		"resolution":    fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"frame_rate":    cfg.FrameRate,
		"video_bitrate": cfg.VideoBitRate,
		"video_codec":   mux.CodecMJPEG,
		"audio_codec":   mux.CodecPCM,
	}).Info("Chunk backend opened")

	return nil
}

func (b *ChunkBackend) forward(muxer *mux.MatroskaMuxer) func(interfaces.EncodedUnit) error {
	return func(u interfaces.EncodedUnit) error {
		if err := muxer.WriteUnit(u); err != nil {
			return fmt.Errorf("%w: %w", ErrMux, err)
		}
		return nil
	}
}

// EncodeVideo compresses img synchronously.
func (b *ChunkBackend) EncodeVideo(img image.Image, ts time.Duration, keyframe bool) error {
	enc := b.videoEncoder()
	if enc == nil {
		return fmt.Errorf("%w: backend not open", ErrEncoder)
	}
	if err := enc.Encode(img, ts, keyframe); err != nil {
		return wrapDefault(err, ErrEncoder)
	}
	return nil
}

// EncodeAudio converts buf to the track layout and emits it.
func (b *ChunkBackend) EncodeAudio(buf *interfaces.AudioBuffer) error {
	b.mu.Lock()
	enc := b.audio
	b.mu.Unlock()
	if enc == nil {
		return fmt.Errorf("%w: backend not open", ErrEncoder)
	}
	if err := enc.Encode(buf); err != nil {
		return wrapDefault(err, ErrEncoder)
	}
	return nil
}

func (b *ChunkBackend) videoEncoder() *video.MJPEGEncoder {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.video
}

// Flush drains both encoders.
func (b *ChunkBackend) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.video != nil {
		if err := b.video.Flush(); err != nil {
			return wrapDefault(err, ErrEncoder)
		}
	}
	if b.audio != nil {
		if err := b.audio.Flush(); err != nil {
			return wrapDefault(err, ErrEncoder)
		}
	}
	return nil
}

// Finalize writes the Matroska file.
func (b *ChunkBackend) Finalize(ctx context.Context) (*Container, error) {
	b.mu.Lock()
	muxer := b.muxer
	b.mu.Unlock()
	if muxer == nil {
		return nil, fmt.Errorf("%w: backend not open", ErrMux)
	}

	data, err := muxer.Finalize(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMux, err)
	}
	return &Container{Data: data, MIME: mux.MIMEType, Extension: mux.Extension}, nil
}

// Close closes both encoders and drops the muxer's buffered units.
func (b *ChunkBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.video != nil {
		b.video.Close()
	}
	if b.audio != nil {
		b.audio.Close()
	}
	b.video, b.audio, b.muxer = nil, nil, nil
	return nil
}
