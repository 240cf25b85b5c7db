package program

// EnumItem is one (name, value) member of an Enum.
type EnumItem struct {
	Name  string
	Value int64
}

// Enum is a name, an integer offset, and an ordered item list. Bytecode
// only ever references enums via the resolved item values baked into
// the constant pool, plus reflective lookups by name.
type Enum struct {
	Name   string
	Offset int32
	Items  []EnumItem
}

// Lookup returns the value for a named item and whether it was found.
func (e *Enum) Lookup(name string) (int64, bool) {
	for _, it := range e.Items {
		if it.Name == name {
			return it.Value, true
		}
	}
	return 0, false
}
