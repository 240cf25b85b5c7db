package heap

import (
	"fmt"
	"sync"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
)

// ErrOutOfMemory is fatal: raised when an allocation still cannot be
// satisfied after a collection cycle.
var ErrOutOfMemory = fmt.Errorf("heap: out of memory")

// Monitor is the published root set of one interpreter instance. The
// collector enumerates roots by calling ScanRoots on every monitor
// registered with a Heap.
type Monitor interface {
	// ScanRoots must call mark once per live reference reachable from
	// this monitor's frames and operand stack: every live frame's
	// locals (exact, via its method's declaration lists) and the
	// operand stack up to the current position (conservative).
	ScanRoots(mark func(*Allocation))

	// Quiesce blocks until this monitor's interpreter reaches a GC
	// safe point (between instructions), then returns. Release is
	// called once the collection cycle has finished walking roots.
	Quiesce()
	Release()
}

// Stats mirrors the configuration/diagnostics trap group's view of the
// heap: live word count, allocation count, and collections run.
type Stats struct {
	LiveWords    int64
	Allocations  int64
	Collections  int64
	BytesFreed   int64
	LastLiveObjs int64
}

// Heap is the allocator and collector. Allocation takes only a short
// lock to append to the live set; collection takes the same lock for
// the whole stop-the-world pass, matching "the collector is the sole
// exclusive writer during collection; allocation acquires a lock only
// long enough to bump pointers or splice free-list blocks."
type Heap struct {
	mu       sync.Mutex
	live     map[*Allocation]struct{}
	monitors map[Monitor]struct{}

	threshold  int64 // word budget before an allocation triggers a collection
	liveWords  int64
	allocCount int64
	gcCount    int64
	freedBytes int64
}

// New creates a Heap. threshold is the live-word budget (cmd/objrun
// passes its --gc-threshold flag); zero disables the
// allocation-triggered policy and leaves only the explicit trap.
func New(threshold int64) *Heap {
	return &Heap{
		live:      make(map[*Allocation]struct{}),
		monitors:  make(map[Monitor]struct{}),
		threshold: threshold,
	}
}

// Register adds a monitor to the root set the collector walks.
func (h *Heap) Register(m Monitor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.monitors[m] = struct{}{}
}

// Unregister removes a monitor, e.g. when its interpreter's thread exits.
func (h *Heap) Unregister(m Monitor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.monitors, m)
}

// AllocObject allocates an object's instance storage, triggering a
// collection first if the threshold policy requires it. self is the
// calling interpreter's own monitor, if any — passed through to Collect
// so a self-triggered collection does not ask the calling goroutine to
// quiesce itself (see Collect).
func (h *Heap) AllocObject(prog *program.Program, classID program.ClassID, instWords int, self Monitor) (*Allocation, error) {
	if err := h.maybeCollect(prog, int64(instWords), self); err != nil {
		return nil, err
	}
	a := NewObject(classID, instWords)
	h.track(a, int64(instWords))
	return a, nil
}

// AllocArray allocates an array, triggering a collection first if the
// threshold policy requires it.
func (h *Heap) AllocArray(prog *program.Program, kind program.ElemKind, dims []int, self Monitor) (*Allocation, error) {
	total := 1
	for _, d := range dims {
		total *= d
	}
	if err := h.maybeCollect(prog, int64(total)+int64(len(dims))+3, self); err != nil {
		return nil, err
	}
	a := NewArray(kind, dims)
	h.track(a, int64(total))
	return a, nil
}

// Adopt registers an already-constructed allocation — one package objser
// reconstructed directly from a serialized byte stream rather than via
// AllocObject/AllocArray — in the live set, as if it had just been
// allocated.
func (h *Heap) Adopt(a *Allocation, words int64) {
	h.track(a, words)
}

func (h *Heap) track(a *Allocation, words int64) {
	h.mu.Lock()
	h.live[a] = struct{}{}
	h.liveWords += words
	h.allocCount++
	h.mu.Unlock()
}

// maybeCollect runs a collection if the pending allocation would push
// live words past the configured threshold, then fails with
// ErrOutOfMemory only if the collection could not bring usage back
// under the threshold (invariant ii: exhaustion after a collection is
// fatal, not retried indefinitely).
func (h *Heap) maybeCollect(prog *program.Program, incoming int64, self Monitor) error {
	if h.threshold <= 0 {
		return nil
	}
	h.mu.Lock()
	over := h.liveWords+incoming > h.threshold
	h.mu.Unlock()
	if !over {
		return nil
	}
	h.Collect(prog, self)
	h.mu.Lock()
	stillOver := h.liveWords+incoming > h.threshold
	h.mu.Unlock()
	if stillOver {
		return ErrOutOfMemory
	}
	return nil
}

// Collect runs one stop-the-world mark-and-sweep cycle: quiesce every
// monitor, clear marks, trace roots (class-memory blocks plus every
// monitor's frames and operand stack), sweep unmarked allocations, then
// release the monitors. self is the monitor (if any) whose own goroutine
// is driving this collection — e.g. an allocation that crossed the
// threshold mid-dispatch. self is never asked to Quiesce/Release itself,
// since the calling goroutine cannot service its own channel rendezvous
// while blocked inside this call; it is already at a safe point by
// construction (nothing has run since its last instruction), so its
// roots are scanned directly instead.
func (h *Heap) Collect(prog *program.Program, self Monitor) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for m := range h.monitors {
		if m == self {
			continue
		}
		m.Quiesce()
	}
	defer func() {
		for m := range h.monitors {
			if m == self {
				continue
			}
			m.Release()
		}
	}()

	for a := range h.live {
		a.Marked = false
	}

	mark := h.markFunc()

	for _, id := range prog.ClassIDs() {
		cls, _ := prog.GetClass(id)
		traceClassMemory(cls.ClassDecls, cls.ClassMemoryRefs, mark)
	}

	for m := range h.monitors {
		m.ScanRoots(mark)
	}

	var freedWords int64
	for a := range h.live {
		if !a.Marked {
			freedWords += int64(len(a.Words) + len(a.AryWords) + len(a.Bytes))
			delete(h.live, a)
		}
	}

	h.liveWords -= freedWords
	h.freedBytes += freedWords
	h.gcCount++
}

// markFunc returns the mark callback passed to monitors and used for
// the class-memory root pass; it recurses into an allocation's own
// reference slots the first time it is marked.
func (h *Heap) markFunc() func(*Allocation) {
	var mark func(a *Allocation)
	mark = func(a *Allocation) {
		if a == nil || a.Marked {
			return
		}
		a.Marked = true
		switch a.Kind {
		case ObjKind:
			for _, r := range a.Refs {
				mark(r)
			}
		case ArrayKind:
			for _, r := range a.AryRefs {
				mark(r)
			}
		}
	}
	return mark
}

// traceClassMemory marks the reference-typed slots of a class's static
// memory block using its class-declaration list.
func traceClassMemory(decls []program.Decl, refs []interface{}, mark func(*Allocation)) {
	for _, d := range decls {
		if !d.Kind.IsReference() {
			continue
		}
		if d.Slot < 0 || d.Slot >= len(refs) {
			continue
		}
		if a, ok := refs[d.Slot].(*Allocation); ok {
			mark(a)
		}
	}
}

// Stats snapshots the heap's diagnostic counters for the configuration
// trap group.
func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		LiveWords:    h.liveWords,
		Allocations:  h.allocCount,
		Collections:  h.gcCount,
		BytesFreed:   h.freedBytes,
		LastLiveObjs: int64(len(h.live)),
	}
}
