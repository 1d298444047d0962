// Package errors provides structured error handling for the surface host.
//
// Lifecycle operations return *SurfaceError values that wrap a sentinel
// from the package that detected the violation, so callers can match with
// the standard library's errors.Is. Failures that happen away from a
// caller (a render pass on the scheduler, a dangling registration) are
// delivered to the global ErrorHandler through Report.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindTransition indicates an invalid lifecycle transition or a
	// construction-time contract violation.
	KindTransition
	// KindRegistration indicates a scheduler registration conflict.
	KindRegistration
	// KindTeardown indicates use of a surface after it was torn down.
	KindTeardown
	// KindRender indicates a render pipeline failure.
	KindRender
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindConfig indicates an invalid host configuration.
	KindConfig
	// KindCodec indicates a props payload encoding failure.
	KindCodec
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransition:
		return "transition"
	case KindRegistration:
		return "registration"
	case KindTeardown:
		return "teardown"
	case KindRender:
		return "render"
	case KindPanic:
		return "panic"
	case KindConfig:
		return "config"
	case KindCodec:
		return "codec"
	default:
		return "unknown"
	}
}

// NoSurface is the SurfaceID used for errors not tied to a surface.
const NoSurface int64 = -1

// SurfaceError represents a structured error raised by the surface host.
type SurfaceError struct {
	// Op is the operation that failed (e.g., "surface.Start").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// SurfaceID is the surface the operation targeted, or NoSurface.
	SurfaceID int64
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

// New returns a SurfaceError for the given operation and surface.
func New(op string, kind ErrorKind, surfaceID int64, err error) *SurfaceError {
	return &SurfaceError{
		Op:        op,
		Kind:      kind,
		SurfaceID: surfaceID,
		Err:       err,
		Timestamp: time.Now(),
	}
}

func (e *SurfaceError) Error() string {
	if e.SurfaceID != NoSurface {
		return fmt.Sprintf("%s [%s] surface=%d: %v", e.Op, e.Kind, e.SurfaceID, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *SurfaceError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "scheduler.Tick").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported by the surface host.
type ErrorHandler interface {
	// HandleError is called when an error is reported.
	HandleError(err *SurfaceError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
