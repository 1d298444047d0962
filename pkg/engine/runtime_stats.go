package engine

import (
	"runtime"
	"sync"
	"time"

	"github.com/go-drift/surfacehost/pkg/surface"
)

const (
	runtimeSampleIntervalDefault = 5 * time.Second
	runtimeSampleWindowDefault   = 60 * time.Second
	runtimeSampleMaxSamples      = 120
)

// RuntimeSample captures process memory and GC stats next to the number of
// hosted surfaces.
type RuntimeSample struct {
	Timestamp    int64  `json:"ts"`
	Surfaces     int    `json:"surfaces"`
	Running      int    `json:"running"`
	Goroutines   int    `json:"goroutines"`
	HeapAlloc    uint64 `json:"heapAlloc"`
	HeapInuse    uint64 `json:"heapInuse"`
	NumGC        uint32 `json:"numGC"`
	LastPauseNs  uint64 `json:"lastPauseNs"`
	PauseTotalNs uint64 `json:"pauseTotalNs"`
}

// RuntimeSampleBuffer stores recent runtime samples in a ring buffer.
type RuntimeSampleBuffer struct {
	mu       sync.RWMutex
	samples  []RuntimeSample
	index    int
	count    int
	interval time.Duration
}

// NewRuntimeSampleBuffer creates a buffer covering window at one sample per
// interval, capped at runtimeSampleMaxSamples.
func NewRuntimeSampleBuffer(window, interval time.Duration) *RuntimeSampleBuffer {
	if interval <= 0 {
		interval = runtimeSampleIntervalDefault
	}
	if window < interval {
		window = runtimeSampleWindowDefault
	}
	capacity := min(max(int(window/interval), 1), runtimeSampleMaxSamples)
	return &RuntimeSampleBuffer{
		samples:  make([]RuntimeSample, capacity),
		interval: interval,
	}
}

// Interval returns the sampling interval.
func (b *RuntimeSampleBuffer) Interval() time.Duration {
	return b.interval
}

// Add stores a runtime sample, overwriting the oldest once full.
func (b *RuntimeSampleBuffer) Add(sample RuntimeSample) {
	b.mu.Lock()
	b.samples[b.index] = sample
	b.index = (b.index + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
	b.mu.Unlock()
}

// Snapshot returns samples in chronological order.
func (b *RuntimeSampleBuffer) Snapshot() []RuntimeSample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return nil
	}
	result := make([]RuntimeSample, b.count)
	if b.count < len(b.samples) {
		copy(result, b.samples[:b.count])
	} else {
		copy(result, b.samples[b.index:])
		copy(result[len(b.samples)-b.index:], b.samples[:b.index])
	}
	return result
}

func readRuntimeSample(snaps []surface.Snapshot) RuntimeSample {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	var lastPause uint64
	if stats.NumGC > 0 {
		lastPause = stats.PauseNs[(stats.NumGC-1)%256]
	}
	running := 0
	for _, snap := range snaps {
		if snap.Status == surface.StatusRunning {
			running++
		}
	}
	return RuntimeSample{
		Timestamp:    time.Now().UnixMilli(),
		Surfaces:     len(snaps),
		Running:      running,
		Goroutines:   runtime.NumGoroutine(),
		HeapAlloc:    stats.HeapAlloc,
		HeapInuse:    stats.HeapInuse,
		NumGC:        stats.NumGC,
		LastPauseNs:  lastPause,
		PauseTotalNs: stats.PauseTotalNs,
	}
}

// runtimeSampler fills a buffer from a background goroutine while the debug
// server is up.
type runtimeSampler struct {
	mu     sync.Mutex
	buffer *RuntimeSampleBuffer
	stop   chan struct{}
}

func (rs *runtimeSampler) start(buffer *RuntimeSampleBuffer, read func() RuntimeSample) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.stop != nil {
		close(rs.stop)
	}
	stop := make(chan struct{})
	rs.stop = stop
	rs.buffer = buffer

	buffer.Add(read())
	go func() {
		ticker := time.NewTicker(buffer.Interval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				buffer.Add(read())
			case <-stop:
				return
			}
		}
	}()
}

func (rs *runtimeSampler) halt() {
	rs.mu.Lock()
	if rs.stop != nil {
		close(rs.stop)
		rs.stop = nil
	}
	rs.mu.Unlock()
}

func (rs *runtimeSampler) samples() []RuntimeSample {
	rs.mu.Lock()
	buffer := rs.buffer
	rs.mu.Unlock()
	if buffer == nil {
		return nil
	}
	return buffer.Snapshot()
}
