// Package nativeabi defines the boundary between the interpreter and an
// optional JIT-compiled native backend. No concrete backend ships here —
// architecture codegen is out of scope — so Method.Native is nil on
// every method loaded by this runtime and the interpreter always falls
// back to bytecode dispatch.
package nativeabi

// ReturnKind mirrors program.ReturnKind without importing package
// program, avoiding a program<->nativeabi import cycle (program already
// imports nativeabi for NativeEntry on Method).
type ReturnKind int32

const (
	ReturnNil ReturnKind = iota
	ReturnInt
	ReturnFloat
	ReturnObj
)

// NativeEntry is the opaque handle a NativeBackend hands back from
// Compile and the interpreter later passes to Invoke. A nil NativeEntry
// means the method has no compiled native form.
type NativeEntry interface{}

// SpillSlot is one entry of a JIT frame's published spill buffer: the
// auxiliary table of references a compiled frame must expose before
// calling into anything that might allocate, so the collector can trace
// them as roots.
type SpillSlot struct {
	Ref interface{} // *heap.Allocation, kept untyped to avoid importing heap here
}

// NativeBackend compiles a method to a native entry and invokes one.
// MethodSource is a minimal view of the method being compiled — just
// enough for a backend to do its job without this package importing all
// of package program.
type MethodSource interface {
	InstructionCount() int
}

type NativeBackend interface {
	// Compile produces a NativeEntry for src, or returns (nil, false) if
	// this backend declines to compile it (e.g. it uses an opcode the
	// backend does not support).
	Compile(src MethodSource) (NativeEntry, bool)

	// Invoke runs a previously compiled entry with the given argument
	// words, publishing spill as its GC root table for the duration of
	// the call, and returns the result word plus its kind.
	Invoke(entry NativeEntry, args []uint64, spill []SpillSlot) (result uint64, kind ReturnKind, err error)
}
