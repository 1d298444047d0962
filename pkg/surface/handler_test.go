package surface_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	hosterrors "github.com/go-drift/surfacehost/pkg/errors"
	"github.com/go-drift/surfacehost/pkg/layout"
	"github.com/go-drift/surfacehost/pkg/props"
	"github.com/go-drift/surfacehost/pkg/surface"
	drifttest "github.com/go-drift/surfacehost/pkg/testing"
)

func newLinkedHandler(t *testing.T, id surface.ID) (*surface.Handler, *drifttest.RecordingRenderer) {
	t.Helper()
	h, err := surface.NewHandler(id, "Root")
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	r := drifttest.NewRecordingRenderer()
	if err := h.Link(r); err != nil {
		t.Fatalf("Link: %v", err)
	}
	return h, r
}

func bounds(minW, minH, maxW, maxH float64) layout.Constraints {
	return layout.Constraints{
		MinSize: layout.Size{Width: minW, Height: minH},
		MaxSize: layout.Size{Width: maxW, Height: maxH},
	}
}

func TestNewHandlerRejectsEmptyModuleName(t *testing.T) {
	_, err := surface.NewHandler(1, "")
	if !errors.Is(err, surface.ErrEmptyModuleName) {
		t.Fatalf("err = %v, want ErrEmptyModuleName", err)
	}
	var se *hosterrors.SurfaceError
	if !errors.As(err, &se) || se.Kind != hosterrors.KindTransition {
		t.Errorf("err = %#v, want SurfaceError of kind transition", err)
	}
}

func TestNewHandlerDefaults(t *testing.T) {
	h, err := surface.NewHandler(3, "Root")
	if err != nil {
		t.Fatal(err)
	}
	if h.Status() != surface.StatusUnrunning {
		t.Errorf("Status() = %v, want unrunning", h.Status())
	}
	if h.DisplayMode() != surface.DisplayModeVisible {
		t.Errorf("DisplayMode() = %v, want visible", h.DisplayMode())
	}
	if h.SurfaceID() != 3 || h.ModuleName() != "Root" {
		t.Errorf("identity = (%d, %q), want (3, Root)", h.SurfaceID(), h.ModuleName())
	}
	if h.IsRegistered() {
		t.Error("new handler should not be registered")
	}
}

func TestStartRequiresRegistration(t *testing.T) {
	h, err := surface.NewHandler(1, "Root")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(); !errors.Is(err, surface.ErrNotRegistered) {
		t.Errorf("Start() err = %v, want ErrNotRegistered", err)
	}
	if h.IsRunning() {
		t.Error("surface should not be running")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	for i := range 2 {
		if err := h.Start(); err != nil {
			t.Fatalf("Start #%d: %v", i+1, err)
		}
	}
	if !h.IsRunning() {
		t.Error("surface should be running")
	}
	if got := r.Count(drifttest.EventStart, 1); got != 1 {
		t.Errorf("mount passes = %d, want 1", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop before start: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := h.Stop(); err != nil {
			t.Fatal(err)
		}
	}
	if got := r.Count(drifttest.EventStop, 1); got != 1 {
		t.Errorf("teardown passes = %d, want 1", got)
	}
	if h.IsRunning() {
		t.Error("surface should not be running")
	}
}

func TestFailedMountLeavesSurfaceUnrunning(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	boom := errors.New("mount failed")
	r.OnStart = func(surface.Snapshot) error { return boom }
	if err := h.Start(); !errors.Is(err, boom) {
		t.Fatalf("Start() err = %v, want mount failure", err)
	}
	if h.Status() != surface.StatusUnrunning {
		t.Errorf("Status() = %v, want unrunning", h.Status())
	}
	// The id is still mutable because the surface never started.
	if err := h.Unlink(); err != nil {
		t.Fatal(err)
	}
	if err := h.SetSurfaceID(2); err != nil {
		t.Errorf("SetSurfaceID after failed mount: %v", err)
	}
}

func TestConstraintsStoredBeforeStartAreUsedByMount(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	h.ConstraintLayout(bounds(0, 0, 320, 640), layout.Context{PointScaleFactor: 2})

	if got := r.Count(drifttest.EventLayout, 1); got != 0 {
		t.Errorf("layout passes before start = %d, want 0", got)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	mount, ok := r.Last(drifttest.EventStart, 1)
	if !ok {
		t.Fatal("expected a mount pass")
	}
	if !mount.Constraints.Equal(bounds(0, 0, 320, 640)) {
		t.Errorf("mount constraints = %v, want (0,0)-(320,640)", mount.Constraints)
	}
	if mount.Context.PointScaleFactor != 2 {
		t.Errorf("mount scale = %v, want 2", mount.Context.PointScaleFactor)
	}
}

func TestConstraintLayoutWhileRunningRelayouts(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	h.ConstraintLayout(bounds(0, 0, 400, 800), layout.DefaultContext())

	ev, ok := r.Last(drifttest.EventLayout, 1)
	if !ok {
		t.Fatal("expected an immediate layout pass")
	}
	if !ev.Constraints.Equal(bounds(0, 0, 400, 800)) {
		t.Errorf("layout constraints = %v, want (0,0)-(400,800)", ev.Constraints)
	}
}

func TestSetPropsConsumesPayload(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	payload := props.New(props.Tree{"title": "first"})
	if err := h.SetProps(payload); err != nil {
		t.Fatal(err)
	}
	if !payload.Consumed() {
		t.Error("payload should be consumed")
	}
	if err := payload.Set("title", "mutated"); !errors.Is(err, props.ErrConsumed) {
		t.Errorf("Set on handed-over payload err = %v, want ErrConsumed", err)
	}
	if err := h.SetProps(payload); !errors.Is(err, props.ErrConsumed) {
		t.Errorf("second SetProps err = %v, want ErrConsumed", err)
	}

	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	mount, _ := r.Last(drifttest.EventStart, 1)
	if mount.Props["title"] != "first" {
		t.Errorf("mount props = %v, want title=first", mount.Props)
	}

	if err := h.SetProps(props.New(props.Tree{"title": "second"})); err != nil {
		t.Fatal(err)
	}
	ev, ok := r.Last(drifttest.EventProps, 1)
	if !ok || ev.Props["title"] != "second" {
		t.Errorf("props commit = %+v, %v; want title=second", ev, ok)
	}
	if got := h.Snapshot().PropsGeneration; got != 2 {
		t.Errorf("PropsGeneration = %d, want 2", got)
	}
}

func TestSetPropsNil(t *testing.T) {
	h, _ := newLinkedHandler(t, 1)
	if err := h.SetProps(nil); !errors.Is(err, props.ErrNilPayload) {
		t.Errorf("SetProps(nil) err = %v, want ErrNilPayload", err)
	}
}

func TestSetDisplayMode(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	h.SetDisplayMode(surface.DisplayModeHidden)
	if got := r.Count(drifttest.EventDisplay, 1); got != 0 {
		t.Errorf("display changes before start = %d, want 0", got)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	mount, _ := r.Last(drifttest.EventStart, 1)
	if mount.DisplayMode != surface.DisplayModeHidden {
		t.Errorf("mount display mode = %v, want hidden", mount.DisplayMode)
	}

	h.SetDisplayMode(surface.DisplayModeVisible)
	h.SetDisplayMode(surface.DisplayModeVisible)
	if got := r.Count(drifttest.EventDisplay, 1); got != 1 {
		t.Errorf("display changes = %d, want 1", got)
	}
}

func TestSetSurfaceID(t *testing.T) {
	h, err := surface.NewHandler(1, "Root")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.SetSurfaceID(5); err != nil {
		t.Fatalf("SetSurfaceID on fresh handler: %v", err)
	}
	if h.SurfaceID() != 5 {
		t.Errorf("SurfaceID() = %d, want 5", h.SurfaceID())
	}

	r := drifttest.NewRecordingRenderer()
	if err := h.Link(r); err != nil {
		t.Fatal(err)
	}
	if err := h.SetSurfaceID(6); !errors.Is(err, surface.ErrRegistered) {
		t.Errorf("SetSurfaceID while registered err = %v, want ErrRegistered", err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	if err := h.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := h.Unlink(); err != nil {
		t.Fatal(err)
	}
	if err := h.SetSurfaceID(7); !errors.Is(err, surface.ErrIdentityFrozen) {
		t.Errorf("SetSurfaceID after start err = %v, want ErrIdentityFrozen", err)
	}
	if h.SurfaceID() != 5 {
		t.Errorf("SurfaceID() = %d, want 5", h.SurfaceID())
	}
}

func TestLinkTwiceAndUnlinkWhileRunning(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	if err := h.Link(r); !errors.Is(err, surface.ErrRegistered) {
		t.Errorf("second Link err = %v, want ErrRegistered", err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	if err := h.Unlink(); !errors.Is(err, surface.ErrSurfaceRunning) {
		t.Errorf("Unlink while running err = %v, want ErrSurfaceRunning", err)
	}
	if !h.IsRegistered() {
		t.Error("handler should still be registered")
	}
}

func TestSuspendResume(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	if err := h.Suspend(); !errors.Is(err, surface.ErrInvalidTransition) {
		t.Errorf("Suspend while unrunning err = %v, want ErrInvalidTransition", err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	if err := h.Suspend(); err != nil {
		t.Fatal(err)
	}
	if h.Status() != surface.StatusSuspended || h.IsRunning() {
		t.Errorf("Status() = %v, want suspended", h.Status())
	}
	if err := h.Start(); !errors.Is(err, surface.ErrInvalidTransition) {
		t.Errorf("Start while suspended err = %v, want ErrInvalidTransition", err)
	}

	r.Reset()
	h.ConstraintLayout(bounds(0, 0, 100, 100), layout.DefaultContext())
	if err := h.SetProps(props.New(props.Tree{"k": "v"})); err != nil {
		t.Fatal(err)
	}
	if len(r.Events()) != 0 {
		t.Errorf("suspended surface forwarded %d events, want 0", len(r.Events()))
	}

	if err := h.Resume(); err != nil {
		t.Fatal(err)
	}
	if !h.IsRunning() {
		t.Error("surface should be running after Resume")
	}
	if ev, ok := r.Last(drifttest.EventLayout, 1); !ok || !ev.Constraints.Equal(bounds(0, 0, 100, 100)) {
		t.Errorf("resume layout = %+v, %v", ev, ok)
	}
	if got := r.Count(drifttest.EventProps, 1); got != 1 {
		t.Errorf("resume props commits = %d, want 1", got)
	}
	if err := h.Resume(); !errors.Is(err, surface.ErrInvalidTransition) {
		t.Errorf("Resume while running err = %v, want ErrInvalidTransition", err)
	}
}

func TestStopFromSuspendedTearsDownOnce(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	if err := h.Suspend(); err != nil {
		t.Fatal(err)
	}
	if err := h.Stop(); err != nil {
		t.Fatal(err)
	}
	if got := r.Count(drifttest.EventStop, 1); got != 1 {
		t.Errorf("teardown passes = %d, want 1", got)
	}
	if h.Status() != surface.StatusUnrunning {
		t.Errorf("Status() = %v, want unrunning", h.Status())
	}
}

func TestConcurrentConstraintUpdatesEndOnLatest(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				w := float64(i*100 + j)
				h.ConstraintLayout(bounds(0, 0, w, w), layout.DefaultContext())
			}
		}()
	}
	wg.Wait()

	stored, _ := h.Constraints()
	last, ok := r.Last(drifttest.EventLayout, 1)
	if !ok {
		t.Fatal("expected layout passes")
	}
	if !last.Constraints.Equal(stored) {
		t.Errorf("last forwarded constraints %v differ from committed %v", last.Constraints, stored)
	}
}

func TestStatusAndDisplayModeStrings(t *testing.T) {
	if surface.StatusRunning.String() != "running" || surface.StatusSuspended.String() != "suspended" {
		t.Error("unexpected Status strings")
	}
	for _, name := range []string{"visible", "hidden", "suspended"} {
		m, err := surface.ParseDisplayMode(name)
		if err != nil {
			t.Fatalf("ParseDisplayMode(%q): %v", name, err)
		}
		if m.String() != name {
			t.Errorf("ParseDisplayMode(%q).String() = %q", name, m.String())
		}
	}
	if _, err := surface.ParseDisplayMode("bogus"); err == nil {
		t.Error("ParseDisplayMode(bogus) should fail")
	}
}

func TestRenderOnlyWhenRunningAndVisible(t *testing.T) {
	h, _ := newLinkedHandler(t, 1)
	calls := 0
	render := func(snap surface.Snapshot) error {
		calls++
		if snap.Status != surface.StatusRunning || snap.DisplayMode != surface.DisplayModeVisible {
			t.Errorf("rendered snapshot %s/%s", snap.Status, snap.DisplayMode)
		}
		return nil
	}

	if ok, _ := h.Render(render); ok {
		t.Error("unrunning surface rendered")
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	if ok, err := h.Render(render); !ok || err != nil {
		t.Errorf("Render = %v, %v, want true, nil", ok, err)
	}
	h.SetDisplayMode(surface.DisplayModeHidden)
	if ok, _ := h.Render(render); ok {
		t.Error("hidden surface rendered")
	}
	if calls != 1 {
		t.Errorf("render calls = %d, want 1", calls)
	}

	h.SetDisplayMode(surface.DisplayModeVisible)
	boom := errors.New("boom")
	if ok, err := h.Render(func(surface.Snapshot) error { return boom }); !ok || err != boom {
		t.Errorf("Render = %v, %v, want true, boom", ok, err)
	}
}

func TestStopWaitsForRender(t *testing.T) {
	h, r := newLinkedHandler(t, 1)
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}

	inRender := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.Render(func(surface.Snapshot) error {
			close(inRender)
			<-release
			return nil
		})
	}()
	<-inRender

	stopped := make(chan struct{})
	go func() {
		h.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Error("Stop finished while a render was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	wg.Wait()
	<-stopped

	if h.IsRunning() || r.Count(drifttest.EventStop, 1) != 1 {
		t.Errorf("after Stop: running = %v, teardowns = %d", h.IsRunning(), r.Count(drifttest.EventStop, 1))
	}
}
