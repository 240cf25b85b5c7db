// Package heap implements the memory manager: a heap allocator for
// objects and typed arrays, plus the stop-the-world mark-and-sweep
// collector that enumerates roots across every registered monitor and
// the class-memory blocks.
//
// Every allocation carries its reference-typed slots as real *Allocation
// pointers (in a Refs/AryRefs shadow array) alongside a plain []uint64 for
// scalar words. That keeps Go's own runtime GC holding the true pointers —
// it remains the actual memory manager — while this package's mark-sweep
// pass reproduces the same liveness bookkeeping (collection counts,
// live-set stats, explicit Collect calls) on top of it.
package heap

import "github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"

// Kind distinguishes an object allocation from an array allocation, so
// the collector can recover the right tracing strategy from a payload
// pointer alone.
type Kind int

const (
	ObjKind Kind = iota
	ArrayKind
)

// Allocation is one heap-managed block. Its own pointer identity serves
// as the "address" that sharing-id tables and reference identity key off.
type Allocation struct {
	Kind    Kind
	ClassID program.ClassID // valid when Kind == ObjKind
	Marked  bool

	// Object payload, one slot per declared instance field. Scalar
	// fields live in Words; reference fields (per the owning class's
	// InstDecls) live in the same-indexed slot of Refs instead.
	Words []uint64
	Refs  []*Allocation

	// Array payload (Kind == ArrayKind).
	ElemKind   program.ElemKind
	TotalCount int
	Dims       int
	OuterSize  int
	// Sizes holds every dimension's size, outermost first. The on-wire
	// three-word prologue only retains the outermost size; the
	// loader/allocator keep the full list here so LOAD_ARY_ELM /
	// STOR_ARY_ELM can compute Σ(i_k · prod-of-upper-sizes) for arrays
	// with more than one dimension without re-deriving it from the
	// flat payload.
	Sizes []int

	// Exactly one of Bytes/AryWords/AryRefs holds the array's payload,
	// selected by ElemKind: 1-byte elements use Bytes, numeric word
	// elements use AryWords, object/function elements use AryRefs.
	Bytes    []byte
	AryWords []uint64
	AryRefs  []*Allocation
}

// NewObject allocates an object's instance-field storage, zeroed, with
// its class id recorded in the header.
func NewObject(classID program.ClassID, instWords int) *Allocation {
	return &Allocation{
		Kind:    ObjKind,
		ClassID: classID,
		Words:   make([]uint64, instWords),
		Refs:    make([]*Allocation, instWords),
	}
}

// ClosureClassID tags a closure allocation's ClassID field; closures are
// not instances of a loaded class, so there is no real class id to put
// there, but the field still reads as OBJ_KIND for the collector.
const ClosureClassID = program.NoParent

// NewClosure builds the small object NEW_FUNC_INST materializes: word 0
// packs (class id, method id) the way the linker packs LIB_FUNC_DEF
// literals, and Refs[0] holds the captured environment (the receiver a
// DYN_MTHD_CALL should dispatch against, nil for a static function).
func NewClosure(classID program.ClassID, methodID program.MethodID, env *Allocation) *Allocation {
	a := &Allocation{
		Kind:    ObjKind,
		ClassID: ClosureClassID,
		Words:   []uint64{PackFuncPair(classID, methodID)},
		Refs:    []*Allocation{env},
	}
	return a
}

// PackFuncPair encodes a (class id, method id) pair into one word, the
// same packing the linker uses for LIB_FUNC_DEF literals.
func PackFuncPair(classID program.ClassID, methodID program.MethodID) uint64 {
	return uint64(uint32(classID))<<32 | uint64(uint32(methodID))
}

// UnpackFuncPair reverses PackFuncPair.
func UnpackFuncPair(word uint64) (program.ClassID, program.MethodID) {
	return program.ClassID(int32(word >> 32)), program.MethodID(int32(word))
}

// Env returns a closure allocation's captured environment and its
// packed (class id, method id) pair.
func (a *Allocation) Env() (env *Allocation, classID program.ClassID, methodID program.MethodID) {
	classID, methodID = UnpackFuncPair(a.Words[0])
	return a.Refs[0], classID, methodID
}
