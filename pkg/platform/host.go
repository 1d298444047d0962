// Package platform exposes surfaces to a platform embedder through opaque
// integer handles.
//
// The embedder creates a surface with Host.Create and addresses it by the
// returned Handle from then on. Schedulers are added with Host.AddScheduler
// and addressed by SchedulerHandle. The Host owns every binding it creates
// until Destroy.
package platform

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-drift/surfacehost/pkg/binding"
	hosterrors "github.com/go-drift/surfacehost/pkg/errors"
	"github.com/go-drift/surfacehost/pkg/logging"
	"github.com/go-drift/surfacehost/pkg/props"
	"github.com/go-drift/surfacehost/pkg/surface"
)

// Handle addresses one surface binding.
type Handle int64

// SchedulerHandle addresses one scheduler.
type SchedulerHandle int64

// Host is the handle table between an embedder and its surfaces.
type Host struct {
	bindings   map[Handle]*binding.Binding
	schedulers map[SchedulerHandle]binding.Registrar
	nextID     atomic.Int64
	mu         sync.RWMutex

	life lifecycle
}

// NewHost creates an empty host in the resumed state.
func NewHost() *Host {
	return &Host{
		bindings:   make(map[Handle]*binding.Binding),
		schedulers: make(map[SchedulerHandle]binding.Registrar),
		life: lifecycle{
			state:    LifecycleStateResumed,
			handlers: make(map[int]LifecycleHandler),
		},
	}
}

// Create creates a surface for moduleName and returns its handle.
func (h *Host) Create(id surface.ID, moduleName string) (Handle, error) {
	b, err := binding.New(id, moduleName)
	if err != nil {
		return 0, err
	}
	handle := Handle(h.nextID.Add(1))

	h.mu.Lock()
	h.bindings[handle] = b
	h.mu.Unlock()

	logging.Logger().Debug("surface created", "handle", handle, "surface", id, "module", moduleName)
	return handle, nil
}

// Binding returns the binding behind handle.
func (h *Host) Binding(handle Handle) (*binding.Binding, error) {
	h.mu.RLock()
	b, ok := h.bindings[handle]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, handle)
	}
	return b, nil
}

// Handles returns the live surface handles in ascending order.
func (h *Host) Handles() []Handle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Sorted(maps.Keys(h.bindings))
}

func (h *Host) bindingsSnapshot() []*binding.Binding {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*binding.Binding, 0, len(h.bindings))
	for _, handle := range slices.Sorted(maps.Keys(h.bindings)) {
		out = append(out, h.bindings[handle])
	}
	return out
}

// Start starts the surface behind handle.
func (h *Host) Start(handle Handle) error {
	b, err := h.Binding(handle)
	if err != nil {
		return err
	}
	return b.Start()
}

// Stop stops the surface behind handle.
func (h *Host) Stop(handle Handle) error {
	b, err := h.Binding(handle)
	if err != nil {
		return err
	}
	return b.Stop()
}

// IsRunning reports whether the surface behind handle is running.
func (h *Host) IsRunning(handle Handle) (bool, error) {
	b, err := h.Binding(handle)
	if err != nil {
		return false, err
	}
	return b.IsRunning()
}

// SurfaceID returns the surface id behind handle.
func (h *Host) SurfaceID(handle Handle) (surface.ID, error) {
	b, err := h.Binding(handle)
	if err != nil {
		return 0, err
	}
	return b.SurfaceID()
}

// SetSurfaceID changes the surface id behind handle.
func (h *Host) SetSurfaceID(handle Handle, id surface.ID) error {
	b, err := h.Binding(handle)
	if err != nil {
		return err
	}
	return b.SetSurfaceID(id)
}

// ModuleName returns the root module behind handle.
func (h *Host) ModuleName(handle Handle) (string, error) {
	b, err := h.Binding(handle)
	if err != nil {
		return "", err
	}
	return b.ModuleName()
}

// SetLayoutConstraints applies scalar layout bounds to the surface behind
// handle.
func (h *Host) SetLayoutConstraints(
	handle Handle,
	minWidth, maxWidth, minHeight, maxHeight float64,
	offsetX, offsetY float64,
	swapInRTL, isRTL bool,
	pixelDensity float64,
) error {
	b, err := h.Binding(handle)
	if err != nil {
		return err
	}
	return b.SetLayoutConstraints(minWidth, maxWidth, minHeight, maxHeight, offsetX, offsetY, swapInRTL, isRTL, pixelDensity)
}

// SetProps hands payload to the surface behind handle. The caller must not
// use payload afterwards.
func (h *Host) SetProps(handle Handle, payload *props.Payload) error {
	b, err := h.Binding(handle)
	if err != nil {
		return err
	}
	return b.SetProps(payload)
}

// SetEncodedProps decodes a CBOR props tree and hands it to the surface
// behind handle.
func (h *Host) SetEncodedProps(handle Handle, data []byte) error {
	b, err := h.Binding(handle)
	if err != nil {
		return err
	}
	payload, err := props.Decode(data)
	if err != nil {
		id, _ := b.SurfaceID()
		return hosterrors.New("platform.SetEncodedProps", hosterrors.KindCodec, int64(id), err)
	}
	return b.SetProps(payload)
}

// AddScheduler makes r addressable by the returned handle.
func (h *Host) AddScheduler(r binding.Registrar) SchedulerHandle {
	sh := SchedulerHandle(h.nextID.Add(1))
	h.mu.Lock()
	h.schedulers[sh] = r
	h.mu.Unlock()
	return sh
}

// RemoveScheduler forgets a scheduler handle. Surfaces still registered with
// it are not affected.
func (h *Host) RemoveScheduler(sh SchedulerHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.schedulers[sh]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownScheduler, sh)
	}
	delete(h.schedulers, sh)
	return nil
}

func (h *Host) scheduler(sh SchedulerHandle) (binding.Registrar, error) {
	h.mu.RLock()
	r, ok := h.schedulers[sh]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownScheduler, sh)
	}
	return r, nil
}

// RegisterWithScheduler registers the surface behind handle with the
// scheduler behind sh.
func (h *Host) RegisterWithScheduler(handle Handle, sh SchedulerHandle) error {
	b, err := h.Binding(handle)
	if err != nil {
		return err
	}
	r, err := h.scheduler(sh)
	if err != nil {
		return err
	}
	return b.RegisterScheduler(r)
}

// UnregisterFromScheduler removes the surface behind handle from the
// scheduler behind sh.
func (h *Host) UnregisterFromScheduler(handle Handle, sh SchedulerHandle) error {
	b, err := h.Binding(handle)
	if err != nil {
		return err
	}
	r, err := h.scheduler(sh)
	if err != nil {
		return err
	}
	return b.UnregisterScheduler(r)
}

// Destroy stops the surface behind handle, unregisters it and frees the
// handle. If the binding cannot be closed the handle stays valid.
func (h *Host) Destroy(handle Handle) error {
	b, err := h.Binding(handle)
	if err != nil {
		return err
	}
	if err := b.Close(); err != nil && !errors.Is(err, binding.ErrClosed) {
		return err
	}

	h.mu.Lock()
	delete(h.bindings, handle)
	h.mu.Unlock()
	logging.Logger().Debug("surface destroyed", "handle", handle)
	return nil
}

// Close destroys every surface. It keeps going after a failure and returns
// all failures joined.
func (h *Host) Close() error {
	var errs []error
	for _, handle := range h.Handles() {
		if err := h.Destroy(handle); err != nil && !errors.Is(err, ErrUnknownHandle) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
