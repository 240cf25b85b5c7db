package program

// ParmKind tags one slot of a declaration list, telling the collector
// (package heap) whether that slot holds a reference and, if so, what
// kind of reference.
type ParmKind int32

const (
	IntParm ParmKind = iota
	FloatParm
	ObjParm
	ByteAryParm
	CharAryParm
	IntAryParm
	FloatAryParm
	ObjAryParm
	FuncParm // occupies two words: (class id, method id)
)

// IsReference reports whether a slot of this kind must be traced by
// the collector.
func (k ParmKind) IsReference() bool {
	switch k {
	case ObjParm, ByteAryParm, CharAryParm, IntAryParm, FloatAryParm, ObjAryParm, FuncParm:
		return true
	default:
		return false
	}
}

// Decl is one entry of a class-declaration, instance-declaration, or
// closure-declaration list: a slot index paired with its parameter kind.
type Decl struct {
	Slot int
	Kind ParmKind
}

// ClassFlags bundles the boolean flags carried per class.
type ClassFlags struct {
	IsVirtual   bool
	IsInterface bool
	IsDebug     bool
	IsPublic    bool
	IsLibrary   bool
}

// ClassID identifies a class; ids form a dense range [0, N). MethodID
// identifies a method within its owning class.
type ClassID int32
type MethodID int32

// NoParent is the parent id sentinel for a class with no superclass.
const NoParent ClassID = -1

// Class is the in-memory representation of a loaded class. There is no
// parent *Class pointer here — ParentID is looked up through the owning
// Program's class table, which resolves cycles (class <-> method, class
// <-> parent) without ownership because ids are plain values.
type Class struct {
	ID        ClassID
	Name      string
	FileName  string
	ParentID  ClassID
	Ifaces    []ClassID
	ClassSize int // word count for static fields
	InstSize  int // word count for per-instance fields

	ClassDecls []Decl
	InstDecls  []Decl

	// ClosureDecls maps the id of an enclosing method to that closure's
	// declaration list.
	ClosureDecls map[MethodID][]Decl

	Methods map[MethodID]*Method

	Flags ClassFlags

	// ClassMemory is the single statically-allocated class-memory block
	// (class-space words), whose lifetime equals the program's.
	// Reference-typed static slots (per ClassDecls) live in the
	// same-indexed entry of ClassMemoryRefs instead of ClassMemory,
	// the same words/refs split used for object instance storage.
	// Refs are untyped (interface{}) rather than a named heap type
	// since package heap already imports program for ClassID/Decl;
	// package heap type-asserts back to *heap.Allocation when tracing.
	ClassMemory     []uint64
	ClassMemoryRefs []interface{}
}

// NewClass allocates a Class with its static class-memory block sized
// and zeroed, matching the "statically-allocated" lifetime rule.
func NewClass(id ClassID, name, fileName string, classSize, instSize int) *Class {
	return &Class{
		ID:              id,
		Name:            name,
		FileName:        fileName,
		ParentID:        NoParent,
		ClassSize:       classSize,
		InstSize:        instSize,
		ClosureDecls:    make(map[MethodID][]Decl),
		Methods:         make(map[MethodID]*Method),
		ClassMemory:     make([]uint64, classSize),
		ClassMemoryRefs: make([]interface{}, classSize),
	}
}

// Implements reports whether the class declares ifaceID among its
// implemented interfaces (not transitively — callers walk the parent
// chain themselves, matching OBJ_TYPE_OF's own-class-then-ancestor walk).
func (c *Class) Implements(ifaceID ClassID) bool {
	for _, id := range c.Ifaces {
		if id == ifaceID {
			return true
		}
	}
	return false
}
