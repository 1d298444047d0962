package surface

import "errors"

// Sentinel errors for surface lifecycle operations. Handler methods wrap
// these in *errors.SurfaceError; match them with errors.Is.
var (
	// ErrEmptyModuleName is returned when a handler is constructed without a module name.
	ErrEmptyModuleName = errors.New("surface: module name must not be empty")

	// ErrInvalidTransition is returned when a status transition is not allowed
	// from the current status.
	ErrInvalidTransition = errors.New("surface: invalid status transition")

	// ErrNotRegistered is returned when a surface is started before it is
	// registered with a scheduler.
	ErrNotRegistered = errors.New("surface: not registered with a scheduler")

	// ErrRegistered is returned when an operation requires the surface to be
	// unregistered, or when it is registered twice.
	ErrRegistered = errors.New("surface: registered with a scheduler")

	// ErrSurfaceRunning is returned when an operation requires the surface to
	// be stopped.
	ErrSurfaceRunning = errors.New("surface: surface is running")

	// ErrIdentityFrozen is returned when the surface id is changed after the
	// surface has been started.
	ErrIdentityFrozen = errors.New("surface: identity is fixed after first start")
)
