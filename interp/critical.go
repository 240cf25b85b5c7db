package interp

import (
	"sync"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
)

// critEntry is one object's critical-section state: the owning
// interpreter (nil when free) and a reentrancy count, guarded by the
// section table's own mutex.
type critEntry struct {
	owner *Interp
	depth int
	free  chan struct{}
}

// critTable is process-wide, since CRITICAL_START/END lock an arbitrary
// heap object that may be reached from any interpreter thread. One
// table, one mutex guarding the map itself;
// each entry's own free channel is what blocks a contending thread, so
// the table mutex is only ever held briefly.
var critTable = struct {
	mu      sync.Mutex
	entries map[*heap.Allocation]*critEntry
}{entries: make(map[*heap.Allocation]*critEntry)}

// criticalStart acquires obj's monitor for in, reentrantly: a thread
// that already holds it just bumps the depth counter, matching the
// source language's reentrant synchronized-method semantics.
func (in *Interp) criticalStart(obj *heap.Allocation) error {
	if obj == nil {
		return ErrNilDereference
	}
	for {
		critTable.mu.Lock()
		e, ok := critTable.entries[obj]
		if !ok {
			e = &critEntry{owner: in, depth: 1, free: make(chan struct{})}
			critTable.entries[obj] = e
			critTable.mu.Unlock()
			return nil
		}
		if e.owner == in {
			e.depth++
			critTable.mu.Unlock()
			return nil
		}
		wait := e.free
		critTable.mu.Unlock()
		<-wait
	}
}

// criticalEnd releases one level of obj's monitor held by in, waking any
// thread parked on the now-stale free channel once the depth reaches
// zero.
func (in *Interp) criticalEnd(obj *heap.Allocation) error {
	if obj == nil {
		return ErrNilDereference
	}
	critTable.mu.Lock()
	defer critTable.mu.Unlock()
	e, ok := critTable.entries[obj]
	if !ok || e.owner != in {
		return nil
	}
	e.depth--
	if e.depth > 0 {
		return nil
	}
	delete(critTable.entries, obj)
	close(e.free)
	return nil
}
