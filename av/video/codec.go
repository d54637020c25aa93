package video

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/opd-ai/reframe/interfaces"
	"github.com/opd-ai/reframe/limits"
	"github.com/sirupsen/logrus"
)

// Resolution represents a video resolution.
type Resolution struct {
	Width  int
	Height int
}

// String returns a string representation of the resolution.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// GetBitrateForResolution returns the bitrate tier for a resolution:
// 8 Mbps above 1280×720 worth of pixels, otherwise 4 Mbps.
func GetBitrateForResolution(resolution Resolution) uint32 {
	return limits.VideoBitRateFor(resolution.Width, resolution.Height)
}

// QualityForBitrate maps a bitrate tier to a JPEG quality factor.
func QualityForBitrate(bitRate uint32) int {
	switch {
	case bitRate >= limits.HighVideoBitRate:
		return 90
	case bitRate >= limits.StandardVideoBitRate:
		return 82
	default:
		return 70
	}
}

// Encoder turns composited rasters into encoded video units.
type Encoder interface {
	// Encode compresses img stamped at ts; keyframe requests an intra frame
	Encode(img image.Image, ts time.Duration, keyframe bool) error
	// Flush delivers any pending output
	Flush() error
	// Close releases encoder resources
	Close() error
}

// OutputFunc receives encoded units as soon as they are produced.
type OutputFunc func(unit interfaces.EncodedUnit) error

// MJPEGEncoder compresses every frame independently as baseline JPEG. Every unit is
// a keyframe.
type MJPEGEncoder struct {
	mu            sync.Mutex
	resolution    Resolution
	frameDuration time.Duration
	options       jpeg.Options
	output        OutputFunc
	buf           bytes.Buffer
	frames        uint64
	closed        bool
}

// NewMJPEGEncoder creates an encoder for frames of the given resolution.
func NewMJPEGEncoder(resolution Resolution, frameRate int, bitRate uint32, output OutputFunc) (*MJPEGEncoder, error) {
	if err := limits.ValidateDimensions(resolution.Width, resolution.Height); err != nil {
		return nil, err
	}
	if frameRate <= 0 {
		return nil, fmt.Errorf("frame rate must be positive: %d", frameRate)
	}
	if output == nil {
		return nil, fmt.Errorf("output callback is required")
	}

	quality := QualityForBitrate(bitRate)
	logrus.WithFields(logrus.Fields{
		"function":   "NewMJPEGEncoder",
		"resolution": resolution.String(),
		"frame_rate": frameRate,
		"bit_rate":   bitRate,
		"quality":    quality,
	}).Info("Creating MJPEG encoder")

	return &MJPEGEncoder{
		resolution:    resolution,
		frameDuration: time.Second / time.Duration(frameRate),
		options:       jpeg.Options{Quality: quality},
		output:        output,
	}, nil
}

// Encode compresses one frame and hands it to the output callback.
func (e *MJPEGEncoder) Encode(img image.Image, ts time.Duration, keyframe bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEncoderClosed
	}
	if img == nil {
		return ErrNilFrame
	}
	if b := img.Bounds(); b.Dx() != e.resolution.Width || b.Dy() != e.resolution.Height {
		return fmt.Errorf("frame size %dx%d does not match encoder %s", b.Dx(), b.Dy(), e.resolution)
	}

	e.buf.Reset()
	if err := jpeg.Encode(&e.buf, img, &e.options); err != nil {
		return fmt.Errorf("jpeg encode: %w", err)
	}
	data := make([]byte, e.buf.Len())
	copy(data, e.buf.Bytes())
	e.frames++

	logrus.WithFields(logrus.Fields{
		"function":  "MJPEGEncoder.Encode",
		"timestamp": ts,
		"bytes":     len(data),
		"forced":    keyframe,
	}).Debug("Encoded video frame")

	return e.output(interfaces.EncodedUnit{
		Kind:      interfaces.KindVideo,
		Timestamp: ts,
		Duration:  e.frameDuration,
		Keyframe:  true,
		Data:      data,
	})
}

// FramesEncoded returns the number of frames compressed so far.
func (e *MJPEGEncoder) FramesEncoded() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// Flush is a no-op; MJPEG has no lookahead.
func (e *MJPEGEncoder) Flush() error {
	return nil
}

// Close marks the encoder closed.
func (e *MJPEGEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
