package program

import (
	"fmt"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/image"
)

// ErrVersionMismatch is the loader-level fatal kind that is not shared
// with the raw codec.
var (
	ErrVersionMismatch = fmt.Errorf("loader: version mismatch")
)

// AliasEncoding is an optional name-to-type mapping consulted during
// class-name resolution. Resolved in DESIGN.md: aliases are consulted
// only when a plain-name lookup fails, never required.
type AliasEncoding struct {
	Name       string
	TargetType string
}

// Loader reads a bytecode image in its fixed field order and produces a
// linked Program. LibPath is the colon/semicolon separated library
// search path; it is only reported in ErrUnresolvedSymbol. The linker
// does not search it and does not open any library image.
type Loader struct {
	LibPath []string
}

// NewLoader returns a Loader with no search path configured.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads path, decompresses it, and parses it into a Program. Only
// the image at path is loaded; library images it references are not
// located or linked in, so their classes must already be in that image.
func (l *Loader) Load(path string, args []string) (*Program, error) {
	raw, err := l.loadRaw(path)
	if err != nil {
		return nil, err
	}

	prog := NewProgram()
	prog.Kind = raw.kind
	prog.StringClassID = raw.stringClassID
	prog.StartClassID = raw.startClassID
	prog.StartMethodID = raw.startMethodID
	prog.Constants = raw.constants

	for _, e := range raw.enums {
		prog.AddEnum(e)
	}
	for _, c := range raw.classes {
		prog.AddClass(c)
	}

	link := &linker{prog: prog, loader: l, aliases: raw.aliases}
	if err := link.resolve(); err != nil {
		return nil, err
	}

	if raw.kind == Executable {
		prog.BootstrapMethod = buildBootstrap(prog, args)
	}

	return prog, nil
}

// rawImage is the direct, unlinked result of parsing the wire format —
// kept separate from Program so the linker can freely rewrite LIB_*
// instructions across every class without the rest of the package
// needing to know about that intermediate state.
type rawImage struct {
	kind          Kind
	stringClassID ClassID
	startClassID  ClassID
	startMethodID MethodID
	constants     ConstantPools
	bundleNames   []string
	aliases       []AliasEncoding
	enums         []*Enum
	classes       []*Class
}

func (l *Loader) loadRaw(path string) (*rawImage, error) {
	r, closer, err := image.Open(path)
	if err != nil {
		return nil, err
	}
	defer closer()

	ver, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if ver != VerNum {
		return nil, fmt.Errorf("%w: image version %d, runtime expects %d", ErrVersionMismatch, ver, VerNum)
	}

	magic, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	raw := &rawImage{startClassID: NoParent}
	switch magic {
	case MagicExe:
		raw.kind = Executable
	case MagicLib:
		raw.kind = Library
	default:
		return nil, fmt.Errorf("%w: unrecognized magic 0x%X", image.ErrInvalid, magic)
	}

	if raw.kind == Executable {
		id, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		raw.stringClassID = ClassID(id)
	}

	if raw.constants.Floats, err = readFloatPool(r); err != nil {
		return nil, err
	}
	if raw.constants.Ints, err = readIntPool(r); err != nil {
		return nil, err
	}
	if raw.constants.Chars, err = readCharPool(r); err != nil {
		return nil, err
	}

	if raw.kind == Library {
		if raw.bundleNames, err = readStringList(r); err != nil {
			return nil, err
		}
		if raw.aliases, err = readAliasList(r); err != nil {
			return nil, err
		}
	}

	if raw.kind == Executable {
		startClass, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		startMethod, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		raw.startClassID = ClassID(startClass)
		raw.startMethodID = MethodID(startMethod)
	}

	if raw.kind == Library {
		if raw.enums, err = readEnumTable(r); err != nil {
			return nil, err
		}
	}

	if raw.classes, err = readClassTable(r); err != nil {
		return nil, err
	}

	return raw, nil
}

func readFloatPool(r *image.Reader) ([]float64, error) {
	chunks, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	var out []float64
	for i := int32(0); i < chunks; i++ {
		n, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		for j := int32(0); j < n; j++ {
			v, err := r.ReadFloat64()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func readIntPool(r *image.Reader) ([]int64, error) {
	chunks, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	var out []int64
	for i := int32(0); i < chunks; i++ {
		n, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		for j := int32(0); j < n; j++ {
			v, err := r.ReadInt64()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func readCharPool(r *image.Reader) ([]string, error) {
	return readStringList(r)
}

func readStringList(r *image.Reader) ([]string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func readAliasList(r *image.Reader) ([]AliasEncoding, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	out := make([]AliasEncoding, 0, n)
	for i := int32(0); i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		target, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		out = append(out, AliasEncoding{Name: name, TargetType: target})
	}
	return out, nil
}

func readEnumTable(r *image.Reader) ([]*Enum, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	out := make([]*Enum, 0, n)
	for i := int32(0); i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		offset, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		itemCount, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		items := make([]EnumItem, 0, itemCount)
		for j := int32(0); j < itemCount; j++ {
			itemName, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			val, err := r.ReadInt64()
			if err != nil {
				return nil, err
			}
			items = append(items, EnumItem{Name: itemName, Value: val})
		}
		out = append(out, &Enum{Name: name, Offset: offset, Items: items})
	}
	return out, nil
}

func readDeclList(r *image.Reader) ([]Decl, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	out := make([]Decl, 0, n)
	for i := int32(0); i < n; i++ {
		slot, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		kind, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		out = append(out, Decl{Slot: int(slot), Kind: ParmKind(kind)})
	}
	return out, nil
}

func readClassTable(r *image.Reader) ([]*Class, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	out := make([]*Class, 0, n)
	for i := int32(0); i < n; i++ {
		cls, err := readClass(r)
		if err != nil {
			return nil, err
		}
		out = append(out, cls)
	}
	return out, nil
}

func readClass(r *image.Reader) (*Class, error) {
	id, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	name, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	fileName, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	parentID, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}

	ifaceCount, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	ifaces := make([]ClassID, 0, ifaceCount)
	for i := int32(0); i < ifaceCount; i++ {
		v, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		ifaces = append(ifaces, ClassID(v))
	}

	classSize, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	instSize, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}

	cls := NewClass(ClassID(id), name, fileName, int(classSize), int(instSize))
	cls.ParentID = ClassID(parentID)
	cls.Ifaces = ifaces

	if cls.ClassDecls, err = readDeclList(r); err != nil {
		return nil, err
	}
	if cls.InstDecls, err = readDeclList(r); err != nil {
		return nil, err
	}

	closureCount, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	for i := int32(0); i < closureCount; i++ {
		mthdID, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		decls, err := readDeclList(r)
		if err != nil {
			return nil, err
		}
		cls.ClosureDecls[MethodID(mthdID)] = decls
	}

	flagByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	cls.Flags = decodeClassFlags(flagByte)

	methodCount, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	for i := int32(0); i < methodCount; i++ {
		m, err := readMethod(r, cls.ID)
		if err != nil {
			return nil, err
		}
		cls.Methods[m.ID] = m
	}

	return cls, nil
}

func readMethod(r *image.Reader, classID ClassID) (*Method, error) {
	id, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	name, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	retKind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	numParams, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	localWords, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}

	paramDecls, err := readDeclList(r)
	if err != nil {
		return nil, err
	}

	flagByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	instrCount, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	instrs := make([]Instruction, 0, instrCount)
	for i := int32(0); i < instrCount; i++ {
		instr, err := readInstruction(r)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, instr)
	}

	m := &Method{
		ClassID:      classID,
		ID:           MethodID(id),
		Name:         name,
		Return:       ReturnKind(retKind),
		NumParams:    int(numParams),
		LocalWords:   int(localWords),
		ParamDecls:   paramDecls,
		Instructions: instrs,
		Flags:        decodeMethodFlags(flagByte),
	}
	m.Jumps = BuildJumpTable(m.Instructions)
	return m, nil
}

func readInstruction(r *image.Reader) (Instruction, error) {
	var instr Instruction
	op, err := r.ReadUint32()
	if err != nil {
		return instr, err
	}
	instr.Op = Opcode(op)

	if instr.Op1, err = r.ReadInt64(); err != nil {
		return instr, err
	}
	if instr.Op2, err = r.ReadInt64(); err != nil {
		return instr, err
	}
	if instr.Op3, err = r.ReadInt64(); err != nil {
		return instr, err
	}
	if instr.Flt, err = r.ReadFloat64(); err != nil {
		return instr, err
	}
	if instr.Str1, err = r.ReadString(); err != nil {
		return instr, err
	}
	if instr.Str2, err = r.ReadString(); err != nil {
		return instr, err
	}
	line, err := r.ReadInt32()
	if err != nil {
		return instr, err
	}
	instr.Line = line

	return instr, nil
}

func decodeClassFlags(b byte) ClassFlags {
	return ClassFlags{
		IsVirtual:   b&0x01 != 0,
		IsInterface: b&0x02 != 0,
		IsDebug:     b&0x04 != 0,
		IsPublic:    b&0x08 != 0,
		IsLibrary:   b&0x10 != 0,
	}
}

func encodeClassFlags(f ClassFlags) byte {
	var b byte
	if f.IsVirtual {
		b |= 0x01
	}
	if f.IsInterface {
		b |= 0x02
	}
	if f.IsDebug {
		b |= 0x04
	}
	if f.IsPublic {
		b |= 0x08
	}
	if f.IsLibrary {
		b |= 0x10
	}
	return b
}

func decodeMethodFlags(b byte) MethodFlags {
	return MethodFlags{
		IsVirtual: b&0x01 != 0,
		IsNative:  b&0x02 != 0,
		IsFunc:    b&0x04 != 0,
		IsLambda:  b&0x08 != 0,
		HasAndOr:  b&0x10 != 0,
	}
}

func encodeMethodFlags(f MethodFlags) byte {
	var b byte
	if f.IsVirtual {
		b |= 0x01
	}
	if f.IsNative {
		b |= 0x02
	}
	if f.IsFunc {
		b |= 0x04
	}
	if f.IsLambda {
		b |= 0x08
	}
	if f.HasAndOr {
		b |= 0x10
	}
	return b
}
