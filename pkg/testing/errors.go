package testing

import (
	"sync"

	"github.com/go-drift/surfacehost/pkg/errors"
)

// Cleanuper is the subset of *testing.T used to undo global state.
type Cleanuper interface {
	Cleanup(func())
}

// ErrorRecorder is an errors.ErrorHandler that keeps every reported error
// and panic. Safe for concurrent use.
type ErrorRecorder struct {
	mu     sync.Mutex
	errs   []*errors.SurfaceError
	panics []*errors.PanicError
}

// CaptureErrors installs a fresh ErrorRecorder as the global error handler
// and restores the previous handler when t finishes.
func CaptureErrors(t Cleanuper) *ErrorRecorder {
	rec := &ErrorRecorder{}
	old := errors.DefaultHandler
	errors.SetHandler(rec)
	t.Cleanup(func() { errors.SetHandler(old) })
	return rec
}

// HandleError records err.
func (r *ErrorRecorder) HandleError(err *errors.SurfaceError) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// HandlePanic records err.
func (r *ErrorRecorder) HandlePanic(err *errors.PanicError) {
	r.mu.Lock()
	r.panics = append(r.panics, err)
	r.mu.Unlock()
}

// Errors returns the reported errors in order.
func (r *ErrorRecorder) Errors() []*errors.SurfaceError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*errors.SurfaceError(nil), r.errs...)
}

// ErrorsOf returns the reported errors of one kind.
func (r *ErrorRecorder) ErrorsOf(kind errors.ErrorKind) []*errors.SurfaceError {
	var out []*errors.SurfaceError
	for _, err := range r.Errors() {
		if err.Kind == kind {
			out = append(out, err)
		}
	}
	return out
}

// Panics returns the reported panics in order.
func (r *ErrorRecorder) Panics() []*errors.PanicError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*errors.PanicError(nil), r.panics...)
}
