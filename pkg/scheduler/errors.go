package scheduler

import "errors"

// Sentinel errors for scheduler registration.
var (
	// ErrDuplicateSurface is returned when a surface id is already registered.
	// The stale entry must be unregistered first.
	ErrDuplicateSurface = errors.New("scheduler: surface id already registered")

	// ErrNilHandler is returned when a nil handler is registered.
	ErrNilHandler = errors.New("scheduler: nil surface handler")

	// ErrDanglingSurface is reported when a registered handler was released
	// without being unregistered.
	ErrDanglingSurface = errors.New("scheduler: surface released while registered")
)
