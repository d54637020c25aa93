package real

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeResult is the subset of ffprobe output the pipeline needs.
type ProbeResult struct {
	Duration  time.Duration
	Width     int
	Height    int
	FrameRate float64
	Codec     string
	HasAudio  bool
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     string `json:"duration"`
	NbFrames     string `json:"nb_frames"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe on path.
func Probe(path string) (*ProbeResult, error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, errors.Wrapf(err, "probe %s", path)
	}
	return parseProbe([]byte(raw))
}

// parseProbe extracts geometry and duration. Duration falls back from the video
// stream to the container, then to frame count over frame rate.
func parseProbe(raw []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.WithStack(err)
	}

	var video *probeStream
	result := &ProbeResult{}
	for i := range out.Streams {
		switch out.Streams[i].CodecType {
		case "video":
			if video == nil {
				video = &out.Streams[i]
			}
		case "audio":
			result.HasAudio = true
		}
	}
	if video == nil {
		return nil, ErrNoVideoStream
	}

	result.Width = video.Width
	result.Height = video.Height
	result.Codec = video.CodecName
	result.FrameRate = parseRate(video.AvgFrameRate)
	if result.FrameRate == 0 {
		result.FrameRate = parseRate(video.RFrameRate)
	}

	seconds := parseSeconds(video.Duration)
	if seconds == 0 {
		seconds = parseSeconds(out.Format.Duration)
	}
	if seconds == 0 && result.FrameRate > 0 {
		if n, err := strconv.ParseFloat(video.NbFrames, 64); err == nil {
			seconds = n / result.FrameRate
		}
	}
	if seconds <= 0 {
		return nil, ErrUnknownDuration
	}
	result.Duration = time.Duration(math.Round(seconds * float64(time.Second)))

	return result, nil
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseRate parses "num/den" rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseSeconds(s)
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// decodeHeight scales srcH to width w preserving aspect, rounded to an even value.
func decodeHeight(srcW, srcH, w int) int {
	if srcW <= 0 || srcH <= 0 {
		return w
	}
	h := int(math.Round(float64(w) * float64(srcH) / float64(srcW) / 2))
	return max(h*2, 2)
}
