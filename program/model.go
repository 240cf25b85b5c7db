package program

// Kind distinguishes an executable image from a linkable library image.
type Kind int

const (
	Executable Kind = iota
	Library
)

const (
	// MagicExe identifies an executable image.
	MagicExe uint32 = 0xDDDE
	// MagicLib identifies a library image.
	MagicLib uint32 = 0xDDDD

	// ExeExt and LibExt are the on-disk extensions for each image kind.
	ExeExt = ".obe"
	LibExt = ".obl"

	// VerNum is the build's image version word; loading fails with
	// ImageVersionMismatch when the image's version word differs.
	VerNum int32 = 1
)

// ConstantPools holds the program's float/int/char literal tables,
// indexed by bytecode. These live for the program's lifetime and are
// never freed by the collector, so they are plain Go slices rather
// than heap-allocated values.
type ConstantPools struct {
	Floats []float64
	Ints   []int64
	Chars  []string
}

// Program is the in-memory representation of a fully loaded and linked
// program: a single explicit runtime-context value in place of
// scattered singletons. Every subsystem (heap, interp, trap, objser)
// takes a *Program rather than reaching for global state.
type Program struct {
	Kind Kind

	StringClassID ClassID
	StartClassID  ClassID
	StartMethodID MethodID

	Constants ConstantPools

	classes map[ClassID]*Class
	byName  map[string]ClassID

	enums map[string]*Enum

	Dispatch   *DispatchCache
	Properties *Properties

	// BootstrapMethod is the synthetic method the loader attaches at
	// the end of loading. It is not addressable by any class —
	// interp.Run invokes it directly to kick off execution.
	BootstrapMethod *Method
}

// NewProgram returns an empty Program ready to receive classes from the
// loader.
func NewProgram() *Program {
	return &Program{
		classes:    make(map[ClassID]*Class),
		byName:     make(map[string]ClassID),
		enums:      make(map[string]*Enum),
		Dispatch:   NewDispatchCache(),
		Properties: NewProperties(),
	}
}

// AddClass registers cls in both the id-keyed and name-keyed tables.
func (p *Program) AddClass(cls *Class) {
	p.classes[cls.ID] = cls
	p.byName[cls.Name] = cls.ID
}

// GetClass looks up a class by id.
func (p *Program) GetClass(id ClassID) (*Class, bool) {
	c, ok := p.classes[id]
	return c, ok
}

// GetClassByName looks up a class by its fully-qualified name, used by
// trap reflection.
func (p *Program) GetClassByName(name string) (*Class, bool) {
	id, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return p.GetClass(id)
}

// GetMethod looks up a method by (class id, method id).
func (p *Program) GetMethod(classID ClassID, methodID MethodID) (*Method, bool) {
	cls, ok := p.GetClass(classID)
	if !ok {
		return nil, false
	}
	m, ok := cls.Methods[methodID]
	return m, ok
}

// AddEnum registers an enum by name.
func (p *Program) AddEnum(e *Enum) {
	p.enums[e.Name] = e
}

// GetEnum looks up an enum by name.
func (p *Program) GetEnum(name string) (*Enum, bool) {
	e, ok := p.enums[name]
	return e, ok
}

// ClassIDs returns every registered class id, in ascending order. Used
// by the image writer (invariant 1, round-trip) and by tests that want
// deterministic iteration over the class table.
func (p *Program) ClassIDs() []ClassID {
	ids := make([]ClassID, 0, len(p.classes))
	for id := range p.classes {
		ids = append(ids, id)
	}
	// Simple insertion sort: class tables are small (one program's
	// worth of classes), and this avoids pulling in "sort" for a
	// handful of comparisons where only determinism, not speed, matters.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
