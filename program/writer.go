package program

import (
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/image"
)

// Save writes prog back out in the exact field order Load expects,
// supporting invariant 1 (round-trip image) and the `verify` CLI
// subcommand.
func Save(prog *Program, path string) error {
	w := image.NewWriter()

	if err := w.WriteInt32(VerNum); err != nil {
		return err
	}

	magic := MagicExe
	if prog.Kind == Library {
		magic = MagicLib
	}
	if err := w.WriteUint32(magic); err != nil {
		return err
	}

	if prog.Kind == Executable {
		if err := w.WriteInt32(int32(prog.StringClassID)); err != nil {
			return err
		}
	}

	if err := writeFloatPool(w, prog.Constants.Floats); err != nil {
		return err
	}
	if err := writeIntPool(w, prog.Constants.Ints); err != nil {
		return err
	}
	if err := writeStringList(w, prog.Constants.Chars); err != nil {
		return err
	}

	if prog.Kind == Library {
		if err := writeStringList(w, nil); err != nil {
			return err
		}
		if err := writeAliasList(w, nil); err != nil {
			return err
		}
	}

	if prog.Kind == Executable {
		if err := w.WriteInt32(int32(prog.StartClassID)); err != nil {
			return err
		}
		if err := w.WriteInt32(int32(prog.StartMethodID)); err != nil {
			return err
		}
	}

	if prog.Kind == Library {
		if err := writeEnumTable(w, prog); err != nil {
			return err
		}
	}

	if err := writeClassTable(w, prog); err != nil {
		return err
	}

	return image.Write(path, w)
}

func writeFloatPool(w *image.Writer, vals []float64) error {
	if err := w.WriteInt32(1); err != nil { // one chunk
		return err
	}
	if err := w.WriteInt32(int32(len(vals))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := w.WriteFloat64(v); err != nil {
			return err
		}
	}
	return nil
}

func writeIntPool(w *image.Writer, vals []int64) error {
	if err := w.WriteInt32(1); err != nil {
		return err
	}
	if err := w.WriteInt32(int32(len(vals))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := w.WriteInt64(v); err != nil {
			return err
		}
	}
	return nil
}

func writeStringList(w *image.Writer, vals []string) error {
	if err := w.WriteInt32(int32(len(vals))); err != nil {
		return err
	}
	for _, s := range vals {
		if err := w.WriteString(s); err != nil {
			return err
		}
	}
	return nil
}

func writeAliasList(w *image.Writer, vals []AliasEncoding) error {
	if err := w.WriteInt32(int32(len(vals))); err != nil {
		return err
	}
	for _, a := range vals {
		if err := w.WriteString(a.Name); err != nil {
			return err
		}
		if err := w.WriteString(a.TargetType); err != nil {
			return err
		}
	}
	return nil
}

func writeEnumTable(w *image.Writer, prog *Program) error {
	names := make([]string, 0)
	enums := make([]*Enum, 0)
	for name, e := range prog.enums {
		names = append(names, name)
		enums = append(enums, e)
	}
	_ = names
	if err := w.WriteInt32(int32(len(enums))); err != nil {
		return err
	}
	for _, e := range enums {
		if err := w.WriteString(e.Name); err != nil {
			return err
		}
		if err := w.WriteInt32(e.Offset); err != nil {
			return err
		}
		if err := w.WriteInt32(int32(len(e.Items))); err != nil {
			return err
		}
		for _, it := range e.Items {
			if err := w.WriteString(it.Name); err != nil {
				return err
			}
			if err := w.WriteInt64(it.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDeclList(w *image.Writer, decls []Decl) error {
	if err := w.WriteInt32(int32(len(decls))); err != nil {
		return err
	}
	for _, d := range decls {
		if err := w.WriteInt32(int32(d.Slot)); err != nil {
			return err
		}
		if err := w.WriteInt32(int32(d.Kind)); err != nil {
			return err
		}
	}
	return nil
}

func writeClassTable(w *image.Writer, prog *Program) error {
	ids := prog.ClassIDs()
	if err := w.WriteInt32(int32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		cls, _ := prog.GetClass(id)
		if err := writeClass(w, cls); err != nil {
			return err
		}
	}
	return nil
}

func writeClass(w *image.Writer, cls *Class) error {
	if err := w.WriteInt32(int32(cls.ID)); err != nil {
		return err
	}
	if err := w.WriteString(cls.Name); err != nil {
		return err
	}
	if err := w.WriteString(cls.FileName); err != nil {
		return err
	}
	if err := w.WriteInt32(int32(cls.ParentID)); err != nil {
		return err
	}

	if err := w.WriteInt32(int32(len(cls.Ifaces))); err != nil {
		return err
	}
	for _, id := range cls.Ifaces {
		if err := w.WriteInt32(int32(id)); err != nil {
			return err
		}
	}

	if err := w.WriteInt32(int32(cls.ClassSize)); err != nil {
		return err
	}
	if err := w.WriteInt32(int32(cls.InstSize)); err != nil {
		return err
	}

	if err := writeDeclList(w, cls.ClassDecls); err != nil {
		return err
	}
	if err := writeDeclList(w, cls.InstDecls); err != nil {
		return err
	}

	if err := w.WriteInt32(int32(len(cls.ClosureDecls))); err != nil {
		return err
	}
	for mthdID, decls := range cls.ClosureDecls {
		if err := w.WriteInt32(int32(mthdID)); err != nil {
			return err
		}
		if err := writeDeclList(w, decls); err != nil {
			return err
		}
	}

	if err := w.WriteByte(encodeClassFlags(cls.Flags)); err != nil {
		return err
	}

	if err := w.WriteInt32(int32(len(cls.Methods))); err != nil {
		return err
	}
	for _, mthdID := range sortedMethodIDs(cls) {
		if err := writeMethod(w, cls.Methods[mthdID]); err != nil {
			return err
		}
	}

	return nil
}

func sortedMethodIDs(cls *Class) []MethodID {
	ids := make([]MethodID, 0, len(cls.Methods))
	for id := range cls.Methods {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

func writeMethod(w *image.Writer, m *Method) error {
	if err := w.WriteInt32(int32(m.ID)); err != nil {
		return err
	}
	if err := w.WriteString(m.Name); err != nil {
		return err
	}
	if err := w.WriteByte(byte(m.Return)); err != nil {
		return err
	}
	if err := w.WriteInt32(int32(m.NumParams)); err != nil {
		return err
	}
	if err := w.WriteInt32(int32(m.LocalWords)); err != nil {
		return err
	}
	if err := writeDeclList(w, m.ParamDecls); err != nil {
		return err
	}
	if err := w.WriteByte(encodeMethodFlags(m.Flags)); err != nil {
		return err
	}

	if err := w.WriteInt32(int32(len(m.Instructions))); err != nil {
		return err
	}
	for _, instr := range m.Instructions {
		if err := writeInstruction(w, instr); err != nil {
			return err
		}
	}
	return nil
}

func writeInstruction(w *image.Writer, instr Instruction) error {
	if err := w.WriteUint32(uint32(instr.Op)); err != nil {
		return err
	}
	if err := w.WriteInt64(instr.Op1); err != nil {
		return err
	}
	if err := w.WriteInt64(instr.Op2); err != nil {
		return err
	}
	if err := w.WriteInt64(instr.Op3); err != nil {
		return err
	}
	if err := w.WriteFloat64(instr.Flt); err != nil {
		return err
	}
	if err := w.WriteString(instr.Str1); err != nil {
		return err
	}
	if err := w.WriteString(instr.Str2); err != nil {
		return err
	}
	return w.WriteInt32(instr.Line)
}
