package platform

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-drift/surfacehost/pkg/binding"
	"github.com/go-drift/surfacehost/pkg/logging"
	"github.com/go-drift/surfacehost/pkg/surface"
)

// LifecycleState represents the current app lifecycle state.
type LifecycleState string

const (
	// LifecycleStateResumed indicates the app is visible and responding to user input.
	LifecycleStateResumed LifecycleState = "resumed"

	// LifecycleStateInactive indicates the app is transitioning, such as while
	// a system dialog is shown. Surfaces keep running.
	LifecycleStateInactive LifecycleState = "inactive"

	// LifecycleStatePaused indicates the app is not visible. Running surfaces
	// are suspended until the app resumes.
	LifecycleStatePaused LifecycleState = "paused"

	// LifecycleStateDetached indicates the app is still hosted but detached
	// from any view. Surfaces are suspended as when paused.
	LifecycleStateDetached LifecycleState = "detached"
)

// ParseLifecycleState converts s to a LifecycleState.
func ParseLifecycleState(s string) (LifecycleState, error) {
	switch state := LifecycleState(s); state {
	case LifecycleStateResumed, LifecycleStateInactive, LifecycleStatePaused, LifecycleStateDetached:
		return state, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLifecycleState, s)
}

// suspends reports whether surfaces should be suspended in this state.
func (s LifecycleState) suspends() bool {
	return s == LifecycleStatePaused || s == LifecycleStateDetached
}

// LifecycleHandler is called when lifecycle state changes.
type LifecycleHandler func(state LifecycleState)

// lifecycle tracks the app lifecycle state and its listeners.
type lifecycle struct {
	mu       sync.RWMutex
	state    LifecycleState
	handlers map[int]LifecycleHandler
	nextID   int
}

// LifecycleState returns the current lifecycle state.
func (h *Host) LifecycleState() LifecycleState {
	h.life.mu.RLock()
	defer h.life.mu.RUnlock()
	return h.life.state
}

// AddLifecycleHandler registers a handler to be called on lifecycle changes.
// Returns a function that removes the handler.
func (h *Host) AddLifecycleHandler(handler LifecycleHandler) func() {
	h.life.mu.Lock()
	id := h.life.nextID
	h.life.nextID++
	h.life.handlers[id] = handler
	h.life.mu.Unlock()

	return func() {
		h.life.mu.Lock()
		delete(h.life.handlers, id)
		h.life.mu.Unlock()
	}
}

// SetLifecycleState moves the app to state. Entering paused or detached
// suspends every running surface; returning to resumed resumes every
// suspended one. Handlers are called after the surfaces have moved.
func (h *Host) SetLifecycleState(state LifecycleState) error {
	h.life.mu.Lock()
	prev := h.life.state
	h.life.state = state
	handlers := make([]LifecycleHandler, 0, len(h.life.handlers))
	for _, fn := range h.life.handlers {
		handlers = append(handlers, fn)
	}
	h.life.mu.Unlock()

	if prev == state {
		return nil
	}
	logging.Logger().Info("lifecycle changed", "from", prev, "to", state)

	var errs []error
	for _, b := range h.bindingsSnapshot() {
		var err error
		switch {
		case state.suspends():
			err = b.Suspend()
		case state == LifecycleStateResumed:
			err = b.Resume()
		}
		// Surfaces that were not in the matching status stay where they are.
		if err != nil && !errors.Is(err, surface.ErrInvalidTransition) && !errors.Is(err, binding.ErrClosed) {
			errs = append(errs, err)
		}
	}

	for _, fn := range handlers {
		fn(state)
	}
	return errors.Join(errs...)
}
