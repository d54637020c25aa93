package video

import "errors"

var (
	// ErrSurfaceUnavailable indicates the compositing surface could not be created
	ErrSurfaceUnavailable = errors.New("compositing surface unavailable")

	// ErrNilFrame indicates a nil source image was passed to the compositor
	ErrNilFrame = errors.New("source frame cannot be nil")

	// ErrEncoderClosed indicates Encode was called after Close
	ErrEncoderClosed = errors.New("encoder closed")
)
