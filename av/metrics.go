package av

import (
	"sync"
	"sync/atomic"
	"time"
)

// EncodeMetrics collects per-run encode statistics.
//
// Counters are atomic so producers never contend on them; latency figures use an
// exponential moving average guarded by a mutex.
type EncodeMetrics struct {
	videoFrames  int64
	keyframes    int64
	audioBuffers int64
	audioFrames  int64

	mu          sync.RWMutex
	avgEncode   time.Duration
	peakEncode  time.Duration
	lastVideoTS time.Duration
	lastAudioTS time.Duration
}

// MetricsSnapshot is a point-in-time copy of EncodeMetrics.
type MetricsSnapshot struct {
	VideoFrames     int64         // frames handed to the backend
	Keyframes       int64         // frames submitted with the keyframe flag
	AudioBuffers    int64         // audio buffers handed to the backend
	AudioFrames     int64         // sample frames across all audio buffers
	AvgVideoEncode  time.Duration // moving average of per-frame encode time
	PeakVideoEncode time.Duration // slowest observed frame encode
	LastVideoTS     time.Duration
	LastAudioTS     time.Duration
}

// NewEncodeMetrics creates an empty collector.
func NewEncodeMetrics() *EncodeMetrics {
	return &EncodeMetrics{}
}

func (m *EncodeMetrics) recordVideo(ts time.Duration, keyframe bool, took time.Duration) {
	atomic.AddInt64(&m.videoFrames, 1)
	if keyframe {
		atomic.AddInt64(&m.keyframes, 1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// EMA with alpha = 0.1
	if m.avgEncode == 0 {
		m.avgEncode = took
	} else {
		m.avgEncode = time.Duration(float64(m.avgEncode)*0.9 + float64(took)*0.1)
	}
	if took > m.peakEncode {
		m.peakEncode = took
	}
	m.lastVideoTS = ts
}

func (m *EncodeMetrics) recordAudio(ts time.Duration, frames int) {
	atomic.AddInt64(&m.audioBuffers, 1)
	atomic.AddInt64(&m.audioFrames, int64(frames))

	m.mu.Lock()
	m.lastAudioTS = ts
	m.mu.Unlock()
}

// Snapshot returns the current statistics.
func (m *EncodeMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		VideoFrames:     atomic.LoadInt64(&m.videoFrames),
		Keyframes:       atomic.LoadInt64(&m.keyframes),
		AudioBuffers:    atomic.LoadInt64(&m.audioBuffers),
		AudioFrames:     atomic.LoadInt64(&m.audioFrames),
		AvgVideoEncode:  m.avgEncode,
		PeakVideoEncode: m.peakEncode,
		LastVideoTS:     m.lastVideoTS,
		LastAudioTS:     m.lastAudioTS,
	}
}
