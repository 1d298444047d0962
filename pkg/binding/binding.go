// Package binding is the thread-safe façade external callers use to drive
// one surface.
//
// A Binding owns its surface.Handler. Start, Stop, identity changes and the
// scheduler registration calls are serialized by an exclusive lifecycle
// lock, and IsRunning takes the same lock shared, so a reader never observes
// a status from the middle of a transition. Constraint and props updates do
// not take the lifecycle lock; they rely on the handler's own locking so
// frequent layout churn never waits on a mount or teardown pass.
//
// Close is the only teardown path. It stops the surface, unregisters it from
// the scheduler it was registered with and then releases the handler. Every
// call after Close fails with ErrClosed.
package binding

import (
	"errors"
	"sync"
	"sync/atomic"

	hosterrors "github.com/go-drift/surfacehost/pkg/errors"
	"github.com/go-drift/surfacehost/pkg/layout"
	"github.com/go-drift/surfacehost/pkg/logging"
	"github.com/go-drift/surfacehost/pkg/props"
	"github.com/go-drift/surfacehost/pkg/surface"
)

var (
	// ErrClosed is returned by every operation on a closed binding.
	ErrClosed = errors.New("binding: closed")

	// ErrNilRegistrar is returned when a nil scheduler is passed.
	ErrNilRegistrar = errors.New("binding: nil scheduler")

	// ErrOtherScheduler is returned when the surface is already registered
	// with a different scheduler.
	ErrOtherScheduler = errors.New("binding: registered with another scheduler")
)

// Registrar is the scheduler capability a binding registers its surface
// with. *scheduler.Scheduler satisfies it.
type Registrar interface {
	RegisterSurface(h *surface.Handler) error
	UnregisterSurface(h *surface.Handler) error
}

// Binding serializes lifecycle transitions of one surface against
// concurrent callers.
type Binding struct {
	lifecycleMu sync.RWMutex
	// registrar is the scheduler the surface is registered with, if any.
	// Guarded by lifecycleMu.
	registrar Registrar

	// handler is nil once the binding is closed.
	handler atomic.Pointer[surface.Handler]
}

// New creates a binding owning a fresh handler for moduleName.
func New(id surface.ID, moduleName string) (*Binding, error) {
	h, err := surface.NewHandler(id, moduleName)
	if err != nil {
		return nil, err
	}
	b := &Binding{}
	b.handler.Store(h)
	return b, nil
}

func closedError(op string) error {
	return hosterrors.New(op, hosterrors.KindTeardown, hosterrors.NoSurface, ErrClosed)
}

// load returns the live handler or an error if the binding is closed.
func (b *Binding) load(op string) (*surface.Handler, error) {
	h := b.handler.Load()
	if h == nil {
		return nil, closedError(op)
	}
	return h, nil
}

// Start makes the surface visible and mounts it. Starting a running surface
// is a no-op. Start blocks while another Start or Stop is in flight. If the
// mount fails the previous display mode is restored.
func (b *Binding) Start() error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	h, err := b.load("binding.Start")
	if err != nil {
		return err
	}
	prev := h.DisplayMode()
	h.SetDisplayMode(surface.DisplayModeVisible)
	if err := h.Start(); err != nil {
		h.SetDisplayMode(prev)
		return err
	}
	return nil
}

// Stop tears the surface down. Stopping an unrunning surface is a no-op.
func (b *Binding) Stop() error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	h, err := b.load("binding.Stop")
	if err != nil {
		return err
	}
	return h.Stop()
}

// Suspend pauses a running surface.
func (b *Binding) Suspend() error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	h, err := b.load("binding.Suspend")
	if err != nil {
		return err
	}
	return h.Suspend()
}

// Resume continues a suspended surface.
func (b *Binding) Resume() error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	h, err := b.load("binding.Resume")
	if err != nil {
		return err
	}
	return h.Resume()
}

// IsRunning reports whether the surface is running. It waits for any
// in-flight Start or Stop to finish.
func (b *Binding) IsRunning() (bool, error) {
	b.lifecycleMu.RLock()
	defer b.lifecycleMu.RUnlock()

	h, err := b.load("binding.IsRunning")
	if err != nil {
		return false, err
	}
	return h.IsRunning(), nil
}

// SurfaceID returns the surface id.
func (b *Binding) SurfaceID() (surface.ID, error) {
	h, err := b.load("binding.SurfaceID")
	if err != nil {
		return 0, err
	}
	return h.SurfaceID(), nil
}

// SetSurfaceID changes the surface id. The handler rejects the change once
// the surface has started or while it is registered with a scheduler. It
// waits for an in-flight RegisterScheduler so the scheduler never indexes the
// surface under a stale id.
func (b *Binding) SetSurfaceID(id surface.ID) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	h, err := b.load("binding.SetSurfaceID")
	if err != nil {
		return err
	}
	return h.SetSurfaceID(id)
}

// ModuleName returns the root module the surface mounts.
func (b *Binding) ModuleName() (string, error) {
	h, err := b.load("binding.ModuleName")
	if err != nil {
		return "", err
	}
	return h.ModuleName(), nil
}

// Snapshot returns the committed state of the surface.
func (b *Binding) Snapshot() (surface.Snapshot, error) {
	h, err := b.load("binding.Snapshot")
	if err != nil {
		return surface.Snapshot{}, err
	}
	return h.Snapshot(), nil
}

// SetLayoutConstraints builds layout constraints and context from scalar
// bounds and applies them. A non-positive pixelDensity is treated as 1.
func (b *Binding) SetLayoutConstraints(
	minWidth, maxWidth, minHeight, maxHeight float64,
	offsetX, offsetY float64,
	swapInRTL, isRTL bool,
	pixelDensity float64,
) error {
	h, err := b.load("binding.SetLayoutConstraints")
	if err != nil {
		return err
	}

	c := layout.Constraints{
		MinSize:   layout.Size{Width: minWidth, Height: minHeight},
		MaxSize:   layout.Size{Width: maxWidth, Height: maxHeight},
		Direction: layout.DirectionLTR,
	}
	if isRTL {
		c.Direction = layout.DirectionRTL
	}
	if pixelDensity <= 0 {
		pixelDensity = 1
	}
	ctx := layout.Context{
		PointScaleFactor:      pixelDensity,
		SwapLeftAndRightInRTL: swapInRTL,
		ViewportOffset:        layout.Offset{X: offsetX, Y: offsetY},
	}
	h.ConstraintLayout(c, ctx)
	return nil
}

// SetProps hands payload to the surface. The caller must not use payload
// afterwards.
func (b *Binding) SetProps(payload *props.Payload) error {
	h, err := b.load("binding.SetProps")
	if err != nil {
		return err
	}
	return h.SetProps(payload)
}

// SetDisplayMode changes whether a running surface paints.
func (b *Binding) SetDisplayMode(mode surface.DisplayMode) error {
	h, err := b.load("binding.SetDisplayMode")
	if err != nil {
		return err
	}
	h.SetDisplayMode(mode)
	return nil
}

// RegisterScheduler registers the surface with r. Each RegisterScheduler
// must be paired with UnregisterScheduler or Close.
func (b *Binding) RegisterScheduler(r Registrar) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	h, err := b.load("binding.RegisterScheduler")
	if err != nil {
		return err
	}
	if r == nil {
		return hosterrors.New("binding.RegisterScheduler", hosterrors.KindRegistration, int64(h.SurfaceID()), ErrNilRegistrar)
	}
	if b.registrar != nil && b.registrar != r {
		return hosterrors.New("binding.RegisterScheduler", hosterrors.KindRegistration, int64(h.SurfaceID()), ErrOtherScheduler)
	}
	if err := r.RegisterSurface(h); err != nil {
		return err
	}
	b.registrar = r
	return nil
}

// UnregisterScheduler removes the surface from r. It is a no-op if the
// surface is not registered there.
func (b *Binding) UnregisterScheduler(r Registrar) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	h, err := b.load("binding.UnregisterScheduler")
	if err != nil {
		return err
	}
	if r == nil {
		return hosterrors.New("binding.UnregisterScheduler", hosterrors.KindRegistration, int64(h.SurfaceID()), ErrNilRegistrar)
	}
	if err := r.UnregisterSurface(h); err != nil {
		return err
	}
	if b.registrar == r {
		b.registrar = nil
	}
	return nil
}

// Close stops the surface, unregisters it from its scheduler and releases
// the handler. If unregistering fails the binding stays open.
func (b *Binding) Close() error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	h, err := b.load("binding.Close")
	if err != nil {
		return err
	}
	if err := h.Stop(); err != nil {
		return err
	}
	if b.registrar != nil {
		if err := b.registrar.UnregisterSurface(h); err != nil {
			return err
		}
		b.registrar = nil
	}
	b.handler.Store(nil)
	logging.Logger().Debug("surface binding closed", "surface", h.SurfaceID(), "module", h.ModuleName())
	return nil
}
