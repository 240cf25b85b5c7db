package objser

import (
	"testing"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
)

// fakeMonitor is a no-op heap.Monitor: Decode always passes it back as
// its own self, so Quiesce/Release are never actually invoked.
type fakeMonitor struct{}

func (fakeMonitor) ScanRoots(func(*heap.Allocation)) {}
func (fakeMonitor) Quiesce()                         {}
func (fakeMonitor) Release()                         {}

func newTestNodeProgram() (*program.Program, program.ClassID) {
	prog := program.NewProgram()
	nodeID := program.ClassID(0)
	node := program.NewClass(nodeID, "Node", "t.obs", 0, 2)
	node.InstDecls = []program.Decl{
		{Slot: 0, Kind: program.IntParm},
		{Slot: 1, Kind: program.ObjParm},
	}
	prog.AddClass(node)
	return prog, nodeID
}

func TestEncodeDecodeObjectRoundTrip(t *testing.T) {
	prog, nodeID := newTestNodeProgram()
	h := heap.New(0)
	self := fakeMonitor{}

	a := heap.NewObject(nodeID, 2)
	a.Words[0] = 41

	data, err := Encode(prog, a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(prog, h, self, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ClassID != nodeID || got.Words[0] != 41 || got.Refs[1] != nil {
		t.Fatalf("round-trip mismatch: classID=%d word0=%d ref1=%v", got.ClassID, got.Words[0], got.Refs[1])
	}
}

func TestEncodeDecodeSharedReference(t *testing.T) {
	prog, nodeID := newTestNodeProgram()
	h := heap.New(0)
	self := fakeMonitor{}

	shared := heap.NewObject(nodeID, 2)
	shared.Words[0] = 7

	a := heap.NewObject(nodeID, 2)
	a.Refs[1] = shared
	b := heap.NewObject(nodeID, 2)
	b.Refs[1] = shared

	arr := heap.NewArray(program.ObjElem, []int{2})
	arr.AryRefs[0] = a
	arr.AryRefs[1] = b

	data, err := Encode(prog, arr)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(prog, h, self, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gotA, gotB := got.AryRefs[0], got.AryRefs[1]
	if gotA.Refs[1] != gotB.Refs[1] {
		t.Fatalf("expected the shared child to decode to the same allocation, got distinct pointers")
	}
	if gotA.Refs[1].Words[0] != 7 {
		t.Fatalf("expected shared child's word 0 to be 7, got %d", gotA.Refs[1].Words[0])
	}
}

func TestEncodeDecodeCycle(t *testing.T) {
	prog, nodeID := newTestNodeProgram()
	h := heap.New(0)
	self := fakeMonitor{}

	a := heap.NewObject(nodeID, 2)
	b := heap.NewObject(nodeID, 2)
	a.Refs[1] = b
	b.Refs[1] = a // cycle

	data, err := Encode(prog, a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(prog, h, self, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Refs[1].Refs[1] != got {
		t.Fatalf("expected the decoded cycle to point back to the root allocation")
	}
}

func TestDecodeUnknownClassFails(t *testing.T) {
	prog, nodeID := newTestNodeProgram()

	a := heap.NewObject(nodeID, 2)
	data, err := Encode(prog, a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	empty := program.NewProgram() // no "Node" class registered
	h := heap.New(0)
	self := fakeMonitor{}
	if _, err := Decode(empty, h, self, data); err != ErrUnknownClass {
		t.Fatalf("expected ErrUnknownClass, got %v", err)
	}
}
