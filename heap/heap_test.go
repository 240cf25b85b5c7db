package heap

import (
	"testing"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
)

// fakeMonitor is a minimal heap.Monitor whose root set is whatever the
// test assigns to roots; Quiesce/Release are no-ops since every test
// here passes itself as Collect's self, so neither is ever invoked.
type fakeMonitor struct {
	roots []*Allocation
}

func (f *fakeMonitor) ScanRoots(mark func(*Allocation)) {
	for _, r := range f.roots {
		mark(r)
	}
}
func (f *fakeMonitor) Quiesce() {}
func (f *fakeMonitor) Release() {}

func TestCollectReclaimsUnreachableAndKeepsGraph(t *testing.T) {
	prog := program.NewProgram()
	h := New(0)
	fm := &fakeMonitor{}
	h.Register(fm)

	root, err := h.AllocObject(prog, 1, 1, fm)
	if err != nil {
		t.Fatalf("alloc root: %v", err)
	}
	child, err := h.AllocObject(prog, 1, 0, fm)
	if err != nil {
		t.Fatalf("alloc child: %v", err)
	}
	root.Refs[0] = child

	orphan, err := h.AllocObject(prog, 1, 0, fm)
	if err != nil {
		t.Fatalf("alloc orphan: %v", err)
	}

	fm.roots = []*Allocation{root}
	h.Collect(prog, fm)

	stats := h.Stats()
	if stats.LastLiveObjs != 2 {
		t.Fatalf("expected root+child to survive (2 live), got %d", stats.LastLiveObjs)
	}
	if stats.Collections != 1 {
		t.Fatalf("expected one collection to have run, got %d", stats.Collections)
	}
	_ = orphan // freed: reachable from nothing after fm.roots was narrowed to root
}

func TestCollectTracesClassMemoryRoots(t *testing.T) {
	prog := program.NewProgram()
	cls := program.NewClass(0, "Holder", "t.obs", 1, 0)
	cls.ClassDecls = []program.Decl{{Slot: 0, Kind: program.ObjParm}}
	prog.AddClass(cls)

	h := New(0)
	fm := &fakeMonitor{}
	h.Register(fm)

	held, err := h.AllocObject(prog, 0, 0, fm)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	cls.ClassMemoryRefs[0] = held

	h.Collect(prog, fm)

	if h.Stats().LastLiveObjs != 1 {
		t.Fatalf("expected the class-memory-rooted object to survive, got %d", h.Stats().LastLiveObjs)
	}
}
