package testing

import (
	"errors"
	"testing"

	"github.com/go-drift/surfacehost/pkg/layout"
	"github.com/go-drift/surfacehost/pkg/props"
	"github.com/go-drift/surfacehost/pkg/surface"
)

func TestRecordingRendererCounts(t *testing.T) {
	r := NewRecordingRenderer()
	snap := surface.Snapshot{ID: 1, ModuleName: "Root"}
	if err := r.StartSurface(snap, props.Tree{"a": 1}); err != nil {
		t.Fatal(err)
	}
	r.LayoutSurface(1, layout.Tight(layout.Size{Width: 1, Height: 1}), layout.DefaultContext())
	r.LayoutSurface(2, layout.Unbounded(), layout.DefaultContext())
	r.StopSurface(1)

	if got := r.Count(EventLayout, 1); got != 1 {
		t.Errorf("Count(layout, 1) = %d, want 1", got)
	}
	if got := len(r.Events()); got != 4 {
		t.Errorf("len(Events()) = %d, want 4", got)
	}
	start, ok := r.Last(EventStart, 1)
	if !ok || start.Module != "Root" || start.Props["a"] != 1 {
		t.Errorf("Last(start, 1) = %+v, %v", start, ok)
	}
	r.Reset()
	if len(r.Events()) != 0 {
		t.Error("Reset should discard events")
	}
}

func TestRecordingRendererStartHook(t *testing.T) {
	r := NewRecordingRenderer()
	boom := errors.New("boom")
	r.OnStart = func(surface.Snapshot) error { return boom }
	if err := r.StartSurface(surface.Snapshot{ID: 1}, nil); !errors.Is(err, boom) {
		t.Errorf("StartSurface err = %v, want boom", err)
	}
	if r.Count(EventStart, 1) != 0 {
		t.Error("failed mount should not be recorded")
	}
}
