package interp

import (
	"sync"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
)

// Frame is one activation record: the executing method, its receiver
// (nil for a static call), local-variable storage split words/refs the
// same way object fields are, and the instruction pointer. JITCalled
// marks a frame entered through a native caller; newFrame always
// clears it and RTRN does not read it, always resuming bytecode
// dispatch.
type Frame struct {
	Method    *program.Method
	Instance  *heap.Allocation
	Locals    []uint64
	LocalRefs []*heap.Allocation
	IP        int
	JITCalled bool
}

// newFrame builds a frame with zeroed local storage sized to the
// method's declared local-word count, plus one reserved slot for the
// receiver: raw local index 0 always mirrors Instance — the instance
// reference, nil for static methods. Declared local slots start at raw
// index 1 (see localIndex), so LOAD_VAR/STOR_VAR never address the
// receiver slot; heap.TraceFrameLocals marks it as a root directly,
// without a separate Instance field scan.
func newFrame(m *program.Method, instance *heap.Allocation) *Frame {
	size := m.LocalWords + 1
	f := &Frame{
		Method:    m,
		Instance:  instance,
		Locals:    make([]uint64, size),
		LocalRefs: make([]*heap.Allocation, size),
	}
	f.LocalRefs[0] = instance
	return f
}

// frameFreeList is the process-wide, mutex-protected pool every
// callStack recycles frames through: one free list shared by every
// interpreter thread, not one per callStack, so a burst of returns on
// one thread can satisfy a burst of calls on another without either
// touching the general allocator.
var frameFreeList struct {
	mu   sync.Mutex
	free []*Frame
}

func frameFreeListGet() (*Frame, bool) {
	frameFreeList.mu.Lock()
	defer frameFreeList.mu.Unlock()
	n := len(frameFreeList.free)
	if n == 0 {
		return nil, false
	}
	f := frameFreeList.free[n-1]
	frameFreeList.free = frameFreeList.free[:n-1]
	return f, true
}

func frameFreeListPut(f *Frame) {
	frameFreeList.mu.Lock()
	frameFreeList.free = append(frameFreeList.free, f)
	frameFreeList.mu.Unlock()
}

// callStack is one thread's live-frame stack: entering a call recycles
// a previously freed frame's backing arrays from frameFreeList when
// possible, so the number of live frames tracks entered-but-not-returned
// calls exactly (invariant 6).
type callStack struct {
	frames []*Frame
	limit  int
}

// ErrCallDepthExceeded is fatal: pushing past the configured call-depth
// limit.
type ErrCallDepthExceeded struct{ Limit int }

func (e *ErrCallDepthExceeded) Error() string { return "call depth exceeded" }

func newCallStack(limit int) *callStack {
	return &callStack{limit: limit}
}

func (c *callStack) enter(m *program.Method, instance *heap.Allocation) (*Frame, error) {
	if len(c.frames) >= c.limit {
		return nil, &ErrCallDepthExceeded{Limit: c.limit}
	}
	var f *Frame
	if recycled, ok := frameFreeListGet(); ok {
		f = recycled
		size := m.LocalWords + 1
		if cap(f.Locals) < size {
			f.Locals = make([]uint64, size)
			f.LocalRefs = make([]*heap.Allocation, size)
		} else {
			f.Locals = f.Locals[:size]
			f.LocalRefs = f.LocalRefs[:size]
			for i := range f.Locals {
				f.Locals[i] = 0
				f.LocalRefs[i] = nil
			}
		}
		f.Method, f.Instance, f.IP, f.JITCalled = m, instance, 0, false
		f.LocalRefs[0] = instance
	} else {
		f = newFrame(m, instance)
	}
	c.frames = append(c.frames, f)
	return f, nil
}

// leave pops the current frame and releases it to the shared free list.
func (c *callStack) leave() {
	n := len(c.frames)
	f := c.frames[n-1]
	c.frames = c.frames[:n-1]
	frameFreeListPut(f)
}

func (c *callStack) current() *Frame {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

// snapshot returns the live frames, outermost first, for diagnostics
// and root scanning.
func (c *callStack) snapshot() []*Frame {
	return c.frames
}
