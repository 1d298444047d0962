package testing

import (
	"maps"
	"sync"

	"github.com/go-drift/surfacehost/pkg/layout"
	"github.com/go-drift/surfacehost/pkg/props"
	"github.com/go-drift/surfacehost/pkg/surface"
)

// EventKind names a call that reached the renderer.
type EventKind string

const (
	EventStart   EventKind = "start"
	EventStop    EventKind = "stop"
	EventLayout  EventKind = "layout"
	EventProps   EventKind = "props"
	EventDisplay EventKind = "display"
	EventRender  EventKind = "render"
)

// Event is one recorded renderer call.
type Event struct {
	Kind        EventKind
	Surface     surface.ID
	Module      string
	Constraints layout.Constraints
	Context     layout.Context
	Props       props.Tree
	DisplayMode surface.DisplayMode
}

// RecordingRenderer records every call it receives. It satisfies both
// surface.Pipeline and scheduler.Renderer. Safe for concurrent use.
type RecordingRenderer struct {
	mu     sync.Mutex
	events []Event

	// OnStart, if set, is consulted before a mount is recorded. A non-nil
	// error fails the mount and nothing is recorded.
	OnStart func(snap surface.Snapshot) error
	// OnRender, if set, runs for every render pass after it is recorded.
	OnRender func(snap surface.Snapshot) error
}

// NewRecordingRenderer returns an empty recorder.
func NewRecordingRenderer() *RecordingRenderer {
	return &RecordingRenderer{}
}

func (r *RecordingRenderer) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// StartSurface records a mount pass.
func (r *RecordingRenderer) StartSurface(snap surface.Snapshot, tree props.Tree) error {
	if r.OnStart != nil {
		if err := r.OnStart(snap); err != nil {
			return err
		}
	}
	r.record(Event{
		Kind:        EventStart,
		Surface:     snap.ID,
		Module:      snap.ModuleName,
		Constraints: snap.Constraints,
		Context:     snap.Context,
		Props:       maps.Clone(tree),
		DisplayMode: snap.DisplayMode,
	})
	return nil
}

// StopSurface records a teardown pass.
func (r *RecordingRenderer) StopSurface(id surface.ID) {
	r.record(Event{Kind: EventStop, Surface: id})
}

// LayoutSurface records a layout pass.
func (r *RecordingRenderer) LayoutSurface(id surface.ID, c layout.Constraints, ctx layout.Context) {
	r.record(Event{Kind: EventLayout, Surface: id, Constraints: c, Context: ctx})
}

// CommitProps records a props commit.
func (r *RecordingRenderer) CommitProps(id surface.ID, tree props.Tree) {
	r.record(Event{Kind: EventProps, Surface: id, Props: maps.Clone(tree)})
}

// SetDisplayMode records a display mode change.
func (r *RecordingRenderer) SetDisplayMode(id surface.ID, mode surface.DisplayMode) {
	r.record(Event{Kind: EventDisplay, Surface: id, DisplayMode: mode})
}

// RenderSurface records a render pass.
func (r *RecordingRenderer) RenderSurface(snap surface.Snapshot) error {
	r.record(Event{
		Kind:        EventRender,
		Surface:     snap.ID,
		Module:      snap.ModuleName,
		Constraints: snap.Constraints,
		Context:     snap.Context,
		DisplayMode: snap.DisplayMode,
	})
	if r.OnRender != nil {
		return r.OnRender(snap)
	}
	return nil
}

// Events returns a copy of all recorded events in call order.
func (r *RecordingRenderer) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// EventsOf returns the recorded events of one kind for one surface.
func (r *RecordingRenderer) EventsOf(kind EventKind, id surface.ID) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind && e.Surface == id {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of kind were recorded for id.
func (r *RecordingRenderer) Count(kind EventKind, id surface.ID) int {
	return len(r.EventsOf(kind, id))
}

// Last returns the most recent event of kind for id.
func (r *RecordingRenderer) Last(kind EventKind, id surface.ID) (Event, bool) {
	events := r.EventsOf(kind, id)
	if len(events) == 0 {
		return Event{}, false
	}
	return events[len(events)-1], true
}

// Reset discards all recorded events.
func (r *RecordingRenderer) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
