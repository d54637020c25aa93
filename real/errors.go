package real

import (
	"github.com/opd-ai/reframe/av"
	"github.com/pkg/errors"
)

var (
	// ErrSourceClosed is returned by every call after Close.
	ErrSourceClosed = errors.New("ffmpeg source closed")

	// ErrNoVideoStream indicates the probed file has no video stream.
	ErrNoVideoStream = errors.New("no video stream found")

	// ErrUnknownDuration indicates the probe could not establish a duration.
	ErrUnknownDuration = errors.New("could not determine media duration")
)

// unsupported tags a missing-binary failure as a capability error.
func unsupported(binary string, err error) error {
	return errors.Wrapf(av.ErrUnsupportedEnvironment, "%s unavailable: %v", binary, err)
}
