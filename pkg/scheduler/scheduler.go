// Package scheduler drives rendering for a set of registered surfaces.
//
// The Scheduler keeps a non-owning registry of surface handlers keyed by
// surface id. Each tick walks the registry in ascending id order and renders
// every surface that is running and visible. Handlers hold a link back into
// the scheduler through which constraint, props and display changes reach the
// renderer and request a frame.
package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/go-drift/surfacehost/pkg/errors"
	"github.com/go-drift/surfacehost/pkg/layout"
	"github.com/go-drift/surfacehost/pkg/logging"
	"github.com/go-drift/surfacehost/pkg/props"
	"github.com/go-drift/surfacehost/pkg/surface"
)

// DefaultTickInterval paces Run when no interval is given.
const DefaultTickInterval = 16 * time.Millisecond

// Renderer performs the actual mount, teardown, layout and render work for
// surfaces. Calls for a single surface are never concurrent with each other
// for mount and teardown; layout and props calls may arrive from any
// goroutine. A Renderer must not call back into a surface handler.
type Renderer interface {
	surface.Pipeline

	// RenderSurface draws one frame for a running, visible surface. The
	// surface cannot start or stop until it returns.
	RenderSurface(snap surface.Snapshot) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for frame timing.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger. By default the package logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithFrameTraceThreshold sets the duration after which a frame counts as
// dropped.
func WithFrameTraceThreshold(d time.Duration) Option {
	return func(s *Scheduler) {
		s.traceThreshold = d
	}
}

// WithFrameTraceCapacity sets how many recent frames are kept.
func WithFrameTraceCapacity(n int) Option {
	return func(s *Scheduler) {
		s.traceCapacity = n
	}
}

// WithContinuousFrames makes Run tick on every interval, even when no frame
// was requested.
func WithContinuousFrames() Option {
	return func(s *Scheduler) {
		s.continuous = true
	}
}

// Scheduler coordinates rendering across registered surfaces.
type Scheduler struct {
	renderer Renderer
	clock    Clock
	logger   *slog.Logger
	link     *pipelineLink

	traceThreshold time.Duration
	traceCapacity  int
	trace          *FrameTraceBuffer
	continuous     bool

	mu       sync.RWMutex
	surfaces map[surface.ID]weak.Pointer[surface.Handler]

	dirty dirtySet

	// tickMu serializes render passes.
	tickMu sync.Mutex
	frames atomic.Uint64

	frameRequested atomic.Bool
	frameCallback  atomic.Pointer[func()]
}

// New creates a scheduler that renders through r.
func New(r Renderer, opts ...Option) *Scheduler {
	s := &Scheduler{
		renderer: r,
		clock:    realClock{},
		surfaces: make(map[surface.ID]weak.Pointer[surface.Handler]),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.trace = NewFrameTraceBuffer(s.traceCapacity, s.traceThreshold)
	s.link = &pipelineLink{s: s}
	return s
}

func (s *Scheduler) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.Logger()
}

// RegisterSurface adds h to the registry and links it to this scheduler.
// Registering an id that is already present fails with ErrDuplicateSurface;
// the earlier registration is left intact. The registry does not keep h
// alive.
func (s *Scheduler) RegisterSurface(h *surface.Handler) error {
	if h == nil {
		return errors.New("scheduler.RegisterSurface", errors.KindRegistration, errors.NoSurface, ErrNilHandler)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := h.SurfaceID()
	if ref, ok := s.surfaces[id]; ok {
		if ref.Value() != nil {
			return errors.New("scheduler.RegisterSurface", errors.KindRegistration, int64(id), ErrDuplicateSurface)
		}
		// The previous holder was released without unregistering.
		delete(s.surfaces, id)
	}
	if err := h.Link(s.link); err != nil {
		return err
	}
	s.surfaces[id] = weak.Make(h)
	s.log().Debug("surface registered", "surface", id, "module", h.ModuleName())
	return nil
}

// UnregisterSurface removes h from the registry. It is a no-op if h is not
// registered here. A surface that is still running must be stopped first.
func (s *Scheduler) UnregisterSurface(h *surface.Handler) error {
	if h == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := h.SurfaceID()
	ref, ok := s.surfaces[id]
	if !ok || ref.Value() != h {
		return nil
	}
	if err := h.Unlink(); err != nil {
		return err
	}
	delete(s.surfaces, id)
	s.dirty.remove(id)
	s.log().Debug("surface unregistered", "surface", id)
	return nil
}

// IsRegistered reports whether a live handler is registered under id.
func (s *Scheduler) IsRegistered(id surface.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.surfaces[id]
	return ok && ref.Value() != nil
}

type registryEntry struct {
	id  surface.ID
	ref weak.Pointer[surface.Handler]
}

// entries copies the registry in ascending id order.
func (s *Scheduler) entries() []registryEntry {
	s.mu.RLock()
	out := make([]registryEntry, 0, len(s.surfaces))
	for id, ref := range s.surfaces {
		out = append(out, registryEntry{id: id, ref: ref})
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b registryEntry) int {
		return cmp.Compare(a.id, b.id)
	})
	return out
}

// prune drops an entry whose handler was released, unless it was replaced
// in the meantime.
func (s *Scheduler) prune(e registryEntry) {
	s.mu.Lock()
	if ref, ok := s.surfaces[e.id]; ok && ref == e.ref {
		delete(s.surfaces, e.id)
	}
	s.mu.Unlock()
	s.dirty.remove(e.id)
}

// Snapshots returns the state of every live registered surface in ascending
// id order.
func (s *Scheduler) Snapshots() []surface.Snapshot {
	entries := s.entries()
	out := make([]surface.Snapshot, 0, len(entries))
	for _, e := range entries {
		if h := e.ref.Value(); h != nil {
			out = append(out, h.Snapshot())
		}
	}
	return out
}

// Tick runs one render pass. Surfaces that are running and visible are
// rendered in ascending id order; all others are skipped. A render failure
// for one surface is reported and does not stop the pass.
func (s *Scheduler) Tick() FrameSample {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.frameRequested.Store(false)
	start := s.clock.Now()
	dirty := s.dirty.flush()
	entries := s.entries()

	sample := FrameSample{
		Frame:     s.frames.Add(1),
		Timestamp: start.UnixMilli(),
		Dirty:     dirty,
		Counts: FrameCounts{
			Registered: len(entries),
			Dirty:      len(dirty),
		},
	}

	for _, e := range entries {
		h := e.ref.Value()
		if h == nil {
			s.prune(e)
			sample.Counts.Pruned++
			errors.Report(errors.New("scheduler.Tick", errors.KindTeardown, int64(e.id), ErrDanglingSurface))
			continue
		}

		// The handler stays locked against Stop until the render returns.
		var timing SurfaceTiming
		rendered, err := h.Render(func(snap surface.Snapshot) error {
			timing.Surface = snap.ID
			renderStart := s.clock.Now()
			err := s.renderSurface(snap)
			timing.RenderMs = durationToMillis(s.clock.Now().Sub(renderStart))
			return err
		})
		if !rendered {
			sample.Counts.Skipped++
			continue
		}
		if err != nil {
			sample.Counts.Failed++
			timing.Error = err.Error()
			errors.Report(errors.New("scheduler.Tick", errors.KindRender, int64(timing.Surface), err))
		} else {
			sample.Counts.Rendered++
		}
		sample.Surfaces = append(sample.Surfaces, timing)
	}

	elapsed := s.clock.Now().Sub(start)
	sample.FrameMs = durationToMillis(elapsed)
	s.trace.Add(sample, elapsed)
	return sample
}

func (s *Scheduler) renderSurface(snap surface.Snapshot) (err error) {
	defer errors.RecoverWithCallback("scheduler.RenderSurface", func(r any) {
		err = fmt.Errorf("render panicked: %v", r)
	})
	return s.renderer.RenderSurface(snap)
}

// RequestFrame marks that a new frame should be rendered and notifies the
// frame callback, if any.
func (s *Scheduler) RequestFrame() {
	s.frameRequested.Store(true)
	if fn := s.frameCallback.Load(); fn != nil {
		(*fn)()
	}
}

// NeedsFrame reports whether a frame was requested or a surface changed
// since the last tick.
func (s *Scheduler) NeedsFrame() bool {
	return s.frameRequested.Load() || s.dirty.len() > 0
}

// SetFrameCallback sets a function called whenever a frame is requested.
// It may be called from any goroutine. Pass nil to clear it.
func (s *Scheduler) SetFrameCallback(fn func()) {
	if fn == nil {
		s.frameCallback.Store(nil)
		return
	}
	s.frameCallback.Store(&fn)
}

// FrameTimeline returns the recent frame samples.
func (s *Scheduler) FrameTimeline() FrameTimeline {
	return s.trace.Snapshot()
}

// Run ticks at the given interval until ctx is done. Unless continuous
// frames are enabled, a tick only renders when a frame is needed.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log().Info("scheduler running", "interval", interval, "continuous", s.continuous)
	for {
		select {
		case <-ctx.Done():
			s.log().Info("scheduler stopped", "frames", s.frames.Load())
			return nil
		case <-ticker.C:
			if s.continuous || s.NeedsFrame() {
				s.runTick()
			}
		}
	}
}

// runTick keeps the run loop alive across a panic outside the renderer,
// such as one raised by the clock.
func (s *Scheduler) runTick() {
	defer errors.Recover("scheduler.Run")
	s.Tick()
}

// markDirty records a change to id and requests a frame the first time the
// surface becomes dirty in a frame.
func (s *Scheduler) markDirty(id surface.ID) {
	if s.dirty.mark(id) {
		s.RequestFrame()
	}
}

// pipelineLink is the surface.Pipeline given to registered handlers. It
// never takes the registry lock, so handlers may call it while holding
// their own locks.
type pipelineLink struct {
	s *Scheduler
}

func (l *pipelineLink) StartSurface(snap surface.Snapshot, tree props.Tree) error {
	if err := l.s.renderer.StartSurface(snap, tree); err != nil {
		return err
	}
	l.s.markDirty(snap.ID)
	return nil
}

func (l *pipelineLink) StopSurface(id surface.ID) {
	l.s.renderer.StopSurface(id)
	l.s.dirty.remove(id)
	l.s.RequestFrame()
}

func (l *pipelineLink) LayoutSurface(id surface.ID, c layout.Constraints, ctx layout.Context) {
	l.s.renderer.LayoutSurface(id, c, ctx)
	l.s.markDirty(id)
}

func (l *pipelineLink) CommitProps(id surface.ID, tree props.Tree) {
	l.s.renderer.CommitProps(id, tree)
	l.s.markDirty(id)
}

func (l *pipelineLink) SetDisplayMode(id surface.ID, mode surface.DisplayMode) {
	l.s.renderer.SetDisplayMode(id, mode)
	l.s.markDirty(id)
}
