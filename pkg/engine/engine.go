// Package engine wires a scheduler and a platform host into one runnable
// unit and serves its diagnostics over HTTP.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-drift/surfacehost/pkg/logging"
	"github.com/go-drift/surfacehost/pkg/platform"
	"github.com/go-drift/surfacehost/pkg/scheduler"
)

// Engine owns the scheduler and the host whose surfaces it drives.
type Engine struct {
	sched       *scheduler.Scheduler
	host        *platform.Host
	schedHandle platform.SchedulerHandle

	debug   debugServer
	sampler runtimeSampler

	frameRequests atomic.Uint64
	onFrame       atomic.Pointer[func()]

	runtimeWindow   time.Duration
	runtimeInterval time.Duration
}

// New creates an engine rendering through r. The scheduler is added to the
// host and its handle is available from SchedulerHandle.
func New(r scheduler.Renderer, opts ...scheduler.Option) *Engine {
	e := &Engine{
		sched: scheduler.New(r, opts...),
		host:  platform.NewHost(),
	}
	e.schedHandle = e.host.AddScheduler(e.sched)
	e.sched.SetFrameCallback(e.frameRequested)
	return e
}

func (e *Engine) frameRequested() {
	e.frameRequests.Add(1)
	if fn := e.onFrame.Load(); fn != nil {
		(*fn)()
	}
}

// SetFrameCallback sets a function called whenever a surface change asks
// for a new frame, so a platform can schedule one. It may be called from
// any goroutine. Pass nil to clear it.
func (e *Engine) SetFrameCallback(fn func()) {
	if fn == nil {
		e.onFrame.Store(nil)
		return
	}
	e.onFrame.Store(&fn)
}

// FrameRequests returns how many frames were requested since New.
func (e *Engine) FrameRequests() uint64 {
	return e.frameRequests.Load()
}

// Scheduler returns the engine's scheduler.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.sched
}

// Host returns the engine's platform host.
func (e *Engine) Host() *platform.Host {
	return e.host
}

// SchedulerHandle returns the host handle of the engine's scheduler.
func (e *Engine) SchedulerHandle() platform.SchedulerHandle {
	return e.schedHandle
}

// Run drives frames at interval until ctx is done.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	return e.sched.Run(ctx, interval)
}

// SetRuntimeSampling sets how often the debug server samples runtime stats
// and how much history it keeps. It applies the next time the debug server
// starts.
func (e *Engine) SetRuntimeSampling(window, interval time.Duration) {
	e.debug.mu.Lock()
	e.runtimeWindow = window
	e.runtimeInterval = interval
	e.debug.mu.Unlock()
}

// Close stops the debug server and destroys every surface.
func (e *Engine) Close() error {
	e.StopDebugServer()
	if err := e.host.Close(); err != nil {
		logging.Logger().Error("engine close", "err", err)
		return err
	}
	return nil
}
