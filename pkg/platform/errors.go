package platform

import "errors"

// Sentinel errors for host operations.
var (
	// ErrUnknownHandle is returned for a surface handle that was never
	// issued or has been destroyed.
	ErrUnknownHandle = errors.New("platform: unknown surface handle")

	// ErrUnknownScheduler is returned for a scheduler handle that was never
	// issued or has been removed.
	ErrUnknownScheduler = errors.New("platform: unknown scheduler handle")

	// ErrUnknownLifecycleState is returned when parsing an unrecognized
	// lifecycle state.
	ErrUnknownLifecycleState = errors.New("platform: unknown lifecycle state")
)
