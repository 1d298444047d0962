// Package testing provides test doubles for the surface host.
//
// [RecordingRenderer] stands in for the render pipeline. It records every
// mount, teardown, layout, props commit, display mode change and render
// pass so tests can assert on exactly what reached the pipeline:
//
//	renderer := drifttest.NewRecordingRenderer()
//	sched := scheduler.New(renderer)
//	...
//	if n := renderer.Count(drifttest.EventStart, 1); n != 1 {
//	    t.Errorf("mount passes = %d, want 1", n)
//	}
//
// [FakeClock] controls scheduler time for deterministic frame traces.
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import drifttest "github.com/go-drift/surfacehost/pkg/testing"
package testing
