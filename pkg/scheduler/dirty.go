package scheduler

import (
	"slices"
	"sync"

	"github.com/go-drift/surfacehost/pkg/surface"
)

// dirtySet tracks surfaces whose committed state changed since the last
// tick, in first-marked order with O(1) dedup.
type dirtySet struct {
	mu  sync.Mutex
	ids []surface.ID
	set map[surface.ID]struct{}
}

// mark adds id and reports whether it was newly added.
func (d *dirtySet) mark(id surface.ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.set == nil {
		d.set = make(map[surface.ID]struct{})
	}
	if _, ok := d.set[id]; ok {
		return false
	}
	d.set[id] = struct{}{}
	d.ids = append(d.ids, id)
	return true
}

// remove drops id if present.
func (d *dirtySet) remove(id surface.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.set[id]; !ok {
		return
	}
	delete(d.set, id)
	d.ids = slices.DeleteFunc(d.ids, func(v surface.ID) bool { return v == id })
}

// len returns the number of dirty surfaces.
func (d *dirtySet) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ids)
}

// flush returns the dirty ids in ascending order and clears the set.
func (d *dirtySet) flush() []surface.ID {
	d.mu.Lock()
	ids := d.ids
	d.ids = nil
	clear(d.set)
	d.mu.Unlock()

	slices.Sort(ids)
	return ids
}
