// Package surface implements the state of one render surface: its
// identity, run status, display mode, and the latest committed layout
// constraints and props.
//
// A Handler holds two locks. linkMu guards the run status and the
// pipeline link and is held exclusively for the whole of a status
// transition. paramsMu guards the committed parameters and is held only
// while they are read or written, so constraint and props churn never
// waits on a mount or teardown pass. When both are needed, linkMu is
// taken first.
package surface

import (
	"sync"

	"github.com/go-drift/surfacehost/pkg/errors"
	"github.com/go-drift/surfacehost/pkg/layout"
	"github.com/go-drift/surfacehost/pkg/logging"
	"github.com/go-drift/surfacehost/pkg/props"
)

// Handler owns the canonical state of one surface.
type Handler struct {
	moduleName string

	linkMu   sync.RWMutex
	status   Status
	pipeline Pipeline
	started  bool
	// propsGenAtSuspend is the props generation when the surface was
	// suspended; Resume commits props only if it moved.
	propsGenAtSuspend uint64

	// forwardMu orders forwarded updates so the pipeline always ends on
	// the latest committed values.
	forwardMu sync.Mutex

	paramsMu    sync.RWMutex
	id          ID
	displayMode DisplayMode
	constraints layout.Constraints
	context     layout.Context
	tree        props.Tree
	propsGen    uint64
}

// NewHandler creates an unrunning handler for the given root module.
// An empty moduleName is rejected here rather than at Start.
func NewHandler(id ID, moduleName string) (*Handler, error) {
	if moduleName == "" {
		return nil, errors.New("surface.NewHandler", errors.KindTransition, int64(id), ErrEmptyModuleName)
	}
	return &Handler{
		moduleName:  moduleName,
		id:          id,
		displayMode: DisplayModeVisible,
		constraints: layout.Unbounded(),
		context:     layout.DefaultContext(),
		tree:        make(props.Tree),
	}, nil
}

// ModuleName returns the root module mounted by this surface.
func (h *Handler) ModuleName() string {
	return h.moduleName
}

// SurfaceID returns the current surface id.
func (h *Handler) SurfaceID() ID {
	h.paramsMu.RLock()
	defer h.paramsMu.RUnlock()
	return h.id
}

// Status returns the current run status.
func (h *Handler) Status() Status {
	h.linkMu.RLock()
	defer h.linkMu.RUnlock()
	return h.status
}

// IsRunning reports whether the surface is in StatusRunning.
func (h *Handler) IsRunning() bool {
	return h.Status() == StatusRunning
}

// IsRegistered reports whether the handler is linked to a pipeline.
func (h *Handler) IsRegistered() bool {
	h.linkMu.RLock()
	defer h.linkMu.RUnlock()
	return h.pipeline != nil
}

// DisplayMode returns the committed display mode.
func (h *Handler) DisplayMode() DisplayMode {
	h.paramsMu.RLock()
	defer h.paramsMu.RUnlock()
	return h.displayMode
}

// Constraints returns the committed layout constraints and context.
func (h *Handler) Constraints() (layout.Constraints, layout.Context) {
	h.paramsMu.RLock()
	defer h.paramsMu.RUnlock()
	return h.constraints, h.context
}

// Snapshot returns a consistent copy of the committed state.
func (h *Handler) Snapshot() Snapshot {
	h.linkMu.RLock()
	defer h.linkMu.RUnlock()
	snap, _ := h.snapshotLocked()
	return snap
}

// Render calls fn with a snapshot if the surface is running and visible, and
// reports whether fn ran. The status cannot change while fn runs: Start, Stop,
// Suspend and Resume wait for it. fn must not call back into the handler.
func (h *Handler) Render(fn func(Snapshot) error) (bool, error) {
	h.linkMu.RLock()
	defer h.linkMu.RUnlock()
	snap, _ := h.snapshotLocked()
	if !snap.Renders() {
		return false, nil
	}
	return true, fn(snap)
}

// snapshotLocked reads the parameters. Callers hold linkMu.
func (h *Handler) snapshotLocked() (Snapshot, props.Tree) {
	h.paramsMu.RLock()
	defer h.paramsMu.RUnlock()
	return Snapshot{
		ID:              h.id,
		ModuleName:      h.moduleName,
		Status:          h.status,
		DisplayMode:     h.displayMode,
		Constraints:     h.constraints,
		Context:         h.context,
		PropsGeneration: h.propsGen,
	}, h.tree
}

// SetSurfaceID changes the surface id. The id is fixed once the surface has
// started, and cannot change while the handler is registered because the
// scheduler indexes it by id.
func (h *Handler) SetSurfaceID(id ID) error {
	h.linkMu.RLock()
	defer h.linkMu.RUnlock()

	h.paramsMu.Lock()
	defer h.paramsMu.Unlock()
	if h.started {
		return errors.New("surface.SetSurfaceID", errors.KindTransition, int64(h.id), ErrIdentityFrozen)
	}
	if h.pipeline != nil {
		return errors.New("surface.SetSurfaceID", errors.KindRegistration, int64(h.id), ErrRegistered)
	}
	h.id = id
	return nil
}

// Start mounts the surface. Calling Start while running is a no-op.
// The handler must be registered with a scheduler.
func (h *Handler) Start() error {
	h.linkMu.Lock()
	defer h.linkMu.Unlock()

	switch h.status {
	case StatusRunning:
		return nil
	case StatusSuspended:
		return errors.New("surface.Start", errors.KindTransition, int64(h.SurfaceID()), ErrInvalidTransition)
	}
	if h.pipeline == nil {
		return errors.New("surface.Start", errors.KindTransition, int64(h.SurfaceID()), ErrNotRegistered)
	}

	snap, tree := h.snapshotLocked()
	snap.Status = StatusRunning
	if err := h.pipeline.StartSurface(snap, tree); err != nil {
		return errors.New("surface.Start", errors.KindRender, int64(snap.ID), err)
	}
	h.status = StatusRunning
	h.started = true
	logging.Logger().Debug("surface started",
		"surface", snap.ID, "module", h.moduleName, "constraints", snap.Constraints.String())
	return nil
}

// Stop tears the surface down. Calling Stop while unrunning is a no-op.
// A suspended surface is torn down as well.
func (h *Handler) Stop() error {
	h.linkMu.Lock()
	defer h.linkMu.Unlock()

	if h.status == StatusUnrunning {
		return nil
	}
	id := h.SurfaceID()
	// A running surface always has a pipeline: Unlink refuses while running.
	h.pipeline.StopSurface(id)
	h.status = StatusUnrunning
	logging.Logger().Debug("surface stopped", "surface", id, "module", h.moduleName)
	return nil
}

// Suspend moves a running surface to StatusSuspended. Updates made while
// suspended are stored and delivered on Resume.
func (h *Handler) Suspend() error {
	h.linkMu.Lock()
	defer h.linkMu.Unlock()

	if h.status != StatusRunning {
		return errors.New("surface.Suspend", errors.KindTransition, int64(h.SurfaceID()), ErrInvalidTransition)
	}
	h.paramsMu.RLock()
	h.propsGenAtSuspend = h.propsGen
	h.paramsMu.RUnlock()
	h.status = StatusSuspended
	return nil
}

// Resume returns a suspended surface to StatusRunning and forwards the
// parameters committed while it was suspended.
func (h *Handler) Resume() error {
	h.linkMu.Lock()
	defer h.linkMu.Unlock()

	if h.status != StatusSuspended {
		return errors.New("surface.Resume", errors.KindTransition, int64(h.SurfaceID()), ErrInvalidTransition)
	}
	snap, tree := h.snapshotLocked()
	h.pipeline.SetDisplayMode(snap.ID, snap.DisplayMode)
	h.pipeline.LayoutSurface(snap.ID, snap.Constraints, snap.Context)
	if snap.PropsGeneration != h.propsGenAtSuspend {
		h.pipeline.CommitProps(snap.ID, tree)
	}
	h.status = StatusRunning
	return nil
}

// SetDisplayMode records the display mode and applies it at once if the
// surface is running.
func (h *Handler) SetDisplayMode(mode DisplayMode) {
	h.paramsMu.Lock()
	changed := h.displayMode != mode
	h.displayMode = mode
	h.paramsMu.Unlock()

	if !changed {
		return
	}
	h.forward(func(p Pipeline, snap Snapshot, _ props.Tree) {
		p.SetDisplayMode(snap.ID, snap.DisplayMode)
	})
}

// ConstraintLayout records new constraints. If the surface is running the
// pipeline recomputes layout immediately; otherwise the values are used by
// the next Start.
func (h *Handler) ConstraintLayout(constraints layout.Constraints, ctx layout.Context) {
	h.paramsMu.Lock()
	h.constraints = constraints
	h.context = ctx
	h.paramsMu.Unlock()

	h.forward(func(p Pipeline, snap Snapshot, _ props.Tree) {
		p.LayoutSurface(snap.ID, snap.Constraints, snap.Context)
	})
}

// SetProps consumes payload and commits its tree. The caller must not use
// payload afterwards. A payload that was already consumed is rejected and
// the committed props are left unchanged.
func (h *Handler) SetProps(payload *props.Payload) error {
	tree, err := payload.Consume()
	if err != nil {
		return errors.New("surface.SetProps", errors.KindTransition, int64(h.SurfaceID()), err)
	}

	h.paramsMu.Lock()
	h.tree = tree
	h.propsGen++
	h.paramsMu.Unlock()

	h.forward(func(p Pipeline, snap Snapshot, tree props.Tree) {
		p.CommitProps(snap.ID, tree)
	})
	return nil
}

// forward calls fn with the latest committed state if the surface is
// running.
func (h *Handler) forward(fn func(p Pipeline, snap Snapshot, tree props.Tree)) {
	h.linkMu.RLock()
	defer h.linkMu.RUnlock()
	if h.status != StatusRunning {
		return
	}
	h.forwardMu.Lock()
	defer h.forwardMu.Unlock()
	snap, tree := h.snapshotLocked()
	fn(h.pipeline, snap, tree)
}

// Link attaches the pipeline of the scheduler the handler is being
// registered with.
func (h *Handler) Link(p Pipeline) error {
	h.linkMu.Lock()
	defer h.linkMu.Unlock()
	if h.pipeline != nil {
		return errors.New("surface.Link", errors.KindRegistration, int64(h.SurfaceID()), ErrRegistered)
	}
	h.pipeline = p
	return nil
}

// Unlink detaches the pipeline. The surface must not be running or
// suspended.
func (h *Handler) Unlink() error {
	h.linkMu.Lock()
	defer h.linkMu.Unlock()
	if h.status != StatusUnrunning {
		return errors.New("surface.Unlink", errors.KindRegistration, int64(h.SurfaceID()), ErrSurfaceRunning)
	}
	h.pipeline = nil
	return nil
}
