package surface

import (
	"github.com/go-drift/surfacehost/pkg/layout"
	"github.com/go-drift/surfacehost/pkg/props"
)

// Pipeline is the render pipeline a handler propagates changes into while
// it is registered. The scheduler supplies it when the handler is
// registered and removes it on unregistration.
//
// Pipeline methods must not call back into the handler that invoked them.
type Pipeline interface {
	// StartSurface mounts the surface and runs its first layout pass with
	// the constraints in snap. The tree is read-only for the pipeline.
	StartSurface(snap Snapshot, tree props.Tree) error

	// StopSurface tears the mounted tree down.
	StopSurface(id ID)

	// LayoutSurface recomputes layout with new constraints.
	LayoutSurface(id ID, constraints layout.Constraints, ctx layout.Context)

	// CommitProps commits a new root props tree.
	CommitProps(id ID, tree props.Tree)

	// SetDisplayMode applies a display mode change.
	SetDisplayMode(id ID, mode DisplayMode)
}

// Snapshot is a consistent copy of a handler's committed state.
type Snapshot struct {
	ID              ID
	ModuleName      string
	Status          Status
	DisplayMode     DisplayMode
	Constraints     layout.Constraints
	Context         layout.Context
	PropsGeneration uint64
}

// Renders reports whether the surface takes part in a scheduler tick.
func (s Snapshot) Renders() bool {
	return s.Status == StatusRunning && s.DisplayMode == DisplayModeVisible
}
