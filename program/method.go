package program

import "github.com/000MatthewJamesKalasky/objeck-lang-sub000/nativeabi"

// ReturnKind tags a method's return type at the granularity the
// interpreter cares about.
type ReturnKind int32

const (
	ReturnIntLike ReturnKind = iota
	ReturnFloat
	ReturnFuncPair
	ReturnNil
)

// MethodFlags bundles the boolean flags carried per method.
type MethodFlags struct {
	IsVirtual bool
	IsNative  bool
	IsFunc    bool // static
	IsLambda  bool
	HasAndOr  bool
}

// JumpTable maps a LABEL's id to its instruction-array index, built once
// at load time by the loader's label pass.
type JumpTable map[int64]int

// Method is identified by a (class id, method id) pair. The encoded
// name embeds the parameter types and return type; Name stores that
// canonical string as-is.
type Method struct {
	ClassID ClassID
	ID      MethodID
	Name    string // canonical encoded name, e.g. "Shape:area:"

	Return     ReturnKind
	NumParams  int
	LocalWords int

	ParamDecls []Decl

	Instructions []Instruction
	Jumps        JumpTable

	Flags MethodFlags

	// Native holds a JIT-installed entry point. The loader leaves it nil
	// and the interpreter does not consult it: every call is dispatched
	// as bytecode.
	Native nativeabi.NativeEntry
}

// InstructionCount implements nativeabi.MethodSource.
func (m *Method) InstructionCount() int {
	return len(m.Instructions)
}

// DispatchSuffix returns the portion of the encoded name used as the
// virtual-dispatch cache key: everything after the leading class
// segment, which distinguishes overloads by parameter/return encoding.
func (m *Method) DispatchSuffix() string {
	// Name is "<ClassName>:<MethodName>:<ParamTypes>"; the suffix is
	// "<MethodName>:<ParamTypes>".
	depth := 0
	for i, r := range m.Name {
		if r == ':' {
			depth++
			if depth == 1 {
				return m.Name[i+1:]
			}
		}
	}
	return m.Name
}

// BuildJumpTable scans the method's instructions once, recording each
// LABEL id's array index.
func BuildJumpTable(instrs []Instruction) JumpTable {
	jt := make(JumpTable)
	for idx, instr := range instrs {
		if instr.Op == Lbl {
			jt[instr.Op1] = idx
		}
	}
	return jt
}
