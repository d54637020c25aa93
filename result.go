package reframe

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/reframe/timeline"
	"golang.org/x/crypto/blake2b"
)

// Result is the artifact of a successful run.
type Result struct {
	// Container is the finished media file.
	Container []byte
	MIME      string
	Extension string

	// Digest is the BLAKE2b-256 hash of Container.
	Digest [blake2b.Size256]byte
	RunID  uuid.UUID

	// Duration is the output clock at the end of the last segment.
	Duration    time.Duration
	VideoFrames int64
	Keyframes   int64
	AudioUnits  int64

	Plan *timeline.Plan
}

// DigestHex returns Digest as lowercase hex.
func (r *Result) DigestHex() string {
	return hex.EncodeToString(r.Digest[:])
}
