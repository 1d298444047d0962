package scheduler

import (
	"sync"
	"time"

	"github.com/go-drift/surfacehost/pkg/surface"
)

const (
	frameTraceSamplesDefault   = 240
	defaultFrameTraceThreshold = 16667 * time.Microsecond
)

// SurfaceTiming captures one surface's render pass within a frame.
type SurfaceTiming struct {
	Surface  surface.ID `json:"surface"`
	RenderMs float64    `json:"renderMs"`
	Error    string     `json:"error,omitempty"`
}

// FrameCounts captures per-frame workload indicators.
type FrameCounts struct {
	Registered int `json:"registered"`
	Rendered   int `json:"rendered"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Pruned     int `json:"pruned"`
	Dirty      int `json:"dirty"`
}

// FrameSample is a single frame trace sample.
type FrameSample struct {
	Frame     uint64          `json:"frame"`
	Timestamp int64           `json:"ts"`
	FrameMs   float64         `json:"frameMs"`
	Counts    FrameCounts     `json:"counts"`
	Surfaces  []SurfaceTiming `json:"surfaces,omitempty"`
	Dirty     []surface.ID    `json:"dirty,omitempty"`
}

// FrameTimeline is a chronological view of recent frames.
type FrameTimeline struct {
	Samples       []FrameSample `json:"samples"`
	DroppedFrames int           `json:"droppedFrames"`
	ThresholdMs   float64       `json:"thresholdMs"`
}

// FrameTraceBuffer stores recent frame samples in a ring buffer.
type FrameTraceBuffer struct {
	mu        sync.RWMutex
	samples   []FrameSample
	index     int
	count     int
	dropped   int
	threshold time.Duration
}

// NewFrameTraceBuffer creates a new frame trace buffer.
func NewFrameTraceBuffer(capacity int, threshold time.Duration) *FrameTraceBuffer {
	if capacity <= 0 {
		capacity = frameTraceSamplesDefault
	}
	if threshold <= 0 {
		threshold = defaultFrameTraceThreshold
	}
	return &FrameTraceBuffer{
		samples:   make([]FrameSample, capacity),
		threshold: threshold,
	}
}

// Capacity returns the buffer capacity.
func (b *FrameTraceBuffer) Capacity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// SetThreshold updates the dropped frame threshold.
func (b *FrameTraceBuffer) SetThreshold(threshold time.Duration) {
	if threshold <= 0 {
		threshold = defaultFrameTraceThreshold
	}
	b.mu.Lock()
	b.threshold = threshold
	b.mu.Unlock()
}

// Add records a frame sample and counts it as dropped if it ran past the
// threshold.
func (b *FrameTraceBuffer) Add(sample FrameSample, frameDuration time.Duration) {
	b.mu.Lock()
	b.samples[b.index] = sample
	b.index = (b.index + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
	if frameDuration > b.threshold {
		b.dropped++
	}
	b.mu.Unlock()
}

// Snapshot returns a chronological copy of samples and stats.
func (b *FrameTraceBuffer) Snapshot() FrameTimeline {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return FrameTimeline{ThresholdMs: durationToMillis(b.threshold)}
	}

	result := make([]FrameSample, b.count)
	if b.count < len(b.samples) {
		copy(result, b.samples[:b.count])
	} else {
		copy(result, b.samples[b.index:])
		copy(result[len(b.samples)-b.index:], b.samples[:b.index])
	}

	return FrameTimeline{
		Samples:       result,
		DroppedFrames: b.dropped,
		ThresholdMs:   durationToMillis(b.threshold),
	}
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
