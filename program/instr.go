package program

import "fmt"

// Opcode is the runtime-visible instruction tag. Variants that differ
// only by word-kind (int/float) or by access context (local/instance/
// class) are folded into one opcode carrying that distinction as an
// operand, rather than minting a new opcode per variant.
type Opcode uint16

const (
	Nop Opcode = iota

	// Literals
	LoadIntLit
	LoadCharLit
	LoadFloatLit

	// Variable access: Op1 = slot, Op2 = VarContext, Op3 = VarKind
	LoadVar
	StorVar
	CopyVar

	// Arithmetic/logic: Op1 = NumKind
	Add
	Sub
	Mul
	Div
	Mod
	BitAnd
	BitOr
	BitXor
	Shl
	Shr

	// Relationals: Op1 = NumKind
	Eql
	Neql
	Les
	Gtr
	LesEql
	GtrEql

	// Conversions
	I2F
	F2I
	S2I
	S2F
	I2S
	F2S

	// Stack ops
	Swap
	PopOp

	// Array creation: Op1 = ElemKind, Op2 = dims
	NewArray

	// Array access: Op1 = ElemKind, Op2 = dims, Op3 = VarContext
	LoadArrayElem
	StorArrayElem

	// Object allocation
	NewObjInst  // Op1 = class id
	NewFuncInst // Op1 = class id, Op2 = method id

	// Casts and introspection: Op1 = target class id
	ObjInstCast
	ObjTypeOf

	// Calls
	MthdCall      // Op1 = class id, Op2 = method id, Op3 = is_native
	DynMthdCall   // Op1 = param count, Op2 = return kind
	AsyncMthdCall // Op1 = class id, Op2 = method id
	Rtrn

	// Control flow
	Lbl // Op1 = label id
	Jmp // Op1 = label id, Op2 = predicate (-1, 0, 1)

	// Critical sections
	CriticalStart
	CriticalEnd

	// Traps: Op1 = selector, Op2 = arg count
	Trap
	TrapRtrn

	// Pre-link forms, rewritten in place by the linker
	LibNewObjInst // Str1 = class name
	LibObjInstCast
	LibObjTypeOf
	LibMthdCall // Str1 = class name, Str2 = method name
	LibFuncDef
)

var opcodeNames = map[Opcode]string{
	Nop:            "nop",
	LoadIntLit:     "LOAD_INT_LIT",
	LoadCharLit:    "LOAD_CHAR_LIT",
	LoadFloatLit:   "LOAD_FLOAT_LIT",
	LoadVar:        "LOAD_VAR",
	StorVar:        "STOR_VAR",
	CopyVar:        "COPY_VAR",
	Add:            "ADD",
	Sub:            "SUB",
	Mul:            "MUL",
	Div:            "DIV",
	Mod:            "MOD",
	BitAnd:         "BIT_AND",
	BitOr:          "BIT_OR",
	BitXor:         "BIT_XOR",
	Shl:            "SHL",
	Shr:            "SHR",
	Eql:            "EQL",
	Neql:           "NEQL",
	Les:            "LES",
	Gtr:            "GTR",
	LesEql:         "LES_EQL",
	GtrEql:         "GTR_EQL",
	I2F:            "I2F",
	F2I:            "F2I",
	S2I:            "S2I",
	S2F:            "S2F",
	I2S:            "I2S",
	F2S:            "F2S",
	Swap:           "SWAP_INT",
	PopOp:          "POP",
	NewArray:       "NEW_ARY",
	LoadArrayElem:  "LOAD_ARY_ELM",
	StorArrayElem:  "STOR_ARY_ELM",
	NewObjInst:     "NEW_OBJ_INST",
	NewFuncInst:    "NEW_FUNC_INST",
	ObjInstCast:    "OBJ_INST_CAST",
	ObjTypeOf:      "OBJ_TYPE_OF",
	MthdCall:       "MTHD_CALL",
	DynMthdCall:    "DYN_MTHD_CALL",
	AsyncMthdCall:  "ASYNC_MTHD_CALL",
	Rtrn:           "RTRN",
	Lbl:            "LBL",
	Jmp:            "JMP",
	CriticalStart:  "CRITICAL_START",
	CriticalEnd:    "CRITICAL_END",
	Trap:           "TRAP",
	TrapRtrn:       "TRAP_RTRN",
	LibNewObjInst:  "LIB_NEW_OBJ_INST",
	LibObjInstCast: "LIB_OBJ_INST_CAST",
	LibObjTypeOf:   "LIB_OBJ_TYPE_OF",
	LibMthdCall:    "LIB_MTHD_CALL",
	LibFuncDef:     "LIB_FUNC_DEF",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return "?unknown?"
}

// IsLibForm reports whether this is a pre-link instruction that the
// linker must rewrite before the program can execute.
func (o Opcode) IsLibForm() bool {
	switch o {
	case LibNewObjInst, LibObjInstCast, LibObjTypeOf, LibMthdCall, LibFuncDef:
		return true
	default:
		return false
	}
}

// VarContext distinguishes local, instance, and class-static variable
// access.
type VarContext int32

const (
	Local VarContext = iota
	Instance
	ClassCtx
)

// VarKind distinguishes int-like, float, and function-pair variables.
type VarKind int32

const (
	IntVar VarKind = iota
	FloatVar
	FuncVar
)

// NumKind selects the int or float arithmetic/comparison path.
type NumKind int32

const (
	IntNum NumKind = iota
	FloatNum
)

// ElemKind is an array's element kind, used both for payload width and
// for whether the collector must trace elements as references.
type ElemKind int32

const (
	ByteElem ElemKind = iota
	CharElem
	IntElem
	FloatElem
	ObjElem
	FuncElem
)

// Width reports the payload element size in bytes for this kind: 1
// byte for byte/char elements, or one 8-byte word for everything else
// (floats are normalized to a one-word representation).
func (k ElemKind) Width() int {
	switch k {
	case ByteElem, CharElem:
		return 1
	default:
		return 8
	}
}

// IsReference reports whether elements of this kind must be traced by
// the collector as heap references.
func (k ElemKind) IsReference() bool {
	return k == ObjElem || k == FuncElem
}

// Instruction is a tag plus a handful of typed operand slots, laid out
// so one struct shape covers every opcode's needs.
type Instruction struct {
	Op   Opcode
	Op1  int64
	Op2  int64
	Op3  int64
	Flt  float64
	Str1 string
	Str2 string

	// Line is the source line number, populated only in debug-build
	// images.
	Line int32
}

func (i Instruction) String() string {
	switch i.Op {
	case LoadIntLit:
		return fmt.Sprintf("%s %d", i.Op, i.Op1)
	case LoadFloatLit:
		return fmt.Sprintf("%s %v", i.Op, i.Flt)
	case Jmp:
		return fmt.Sprintf("%s label=%d pred=%d", i.Op, i.Op1, i.Op2)
	case Lbl:
		return fmt.Sprintf("%s %d", i.Op, i.Op1)
	case MthdCall:
		return fmt.Sprintf("%s cls=%d mthd=%d native=%d", i.Op, i.Op1, i.Op2, i.Op3)
	case LibMthdCall, LibNewObjInst, LibObjInstCast, LibObjTypeOf, LibFuncDef:
		return fmt.Sprintf("%s %s.%s", i.Op, i.Str1, i.Str2)
	default:
		return i.Op.String()
	}
}
