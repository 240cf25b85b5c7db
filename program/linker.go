package program

import "fmt"

// ErrUnresolvedSymbol is fatal at link time when a referenced library
// symbol cannot be found.
type ErrUnresolvedSymbol struct {
	Symbol     string
	SearchedIn []string
}

func (e *ErrUnresolvedSymbol) Error() string {
	return fmt.Sprintf("unresolved symbol %q (searched: %v)", e.Symbol, e.SearchedIn)
}

// linker rewrites LIB_* instructions to their resolved id-based
// counterparts and prunes unreferenced library classes.
type linker struct {
	prog    *Program
	loader  *Loader
	aliases []AliasEncoding
}

// resolve runs the reachability fix-point and the LIB_* rewrite pass.
func (l *linker) resolve() error {
	called := l.markReachable()
	l.pruneUnreachable(called)
	return l.rewriteAll()
}

// markReachable computes the fix-point of classes transitively
// referenced from the executable's start class (or, for a library being
// linked standalone, every class it defines) plus the hard-coded
// reflective classes.
func (l *linker) markReachable() map[ClassID]bool {
	called := make(map[ClassID]bool)

	seed := func(name string) {
		if cls, ok := l.prog.GetClassByName(name); ok {
			called[cls.ID] = true
		}
	}
	seed("System.Introspection.Class")
	seed("System.Introspection.Method")
	seed("System.Introspection.DataType")

	if l.prog.Kind == Executable {
		called[l.prog.StartClassID] = true
	} else {
		for _, id := range l.prog.ClassIDs() {
			called[id] = true
		}
	}

	// Fix-point: scan every newly-marked class's instructions for
	// additional LIB_* or already-resolved class references, marking
	// the classes they touch, until nothing new is added.
	for {
		added := false
		for id := range called {
			cls, ok := l.prog.GetClass(id)
			if !ok {
				continue
			}
			for _, m := range cls.Methods {
				for _, instr := range m.Instructions {
					for _, refID := range referencedClasses(l.prog, instr) {
						if !called[refID] {
							called[refID] = true
							added = true
						}
					}
				}
			}
		}
		if !added {
			break
		}
	}

	return called
}

// referencedClasses returns the class ids an instruction touches,
// either directly (already-resolved id forms) or via name (LIB_* forms,
// resolved through the name table if already loaded).
func referencedClasses(prog *Program, instr Instruction) []ClassID {
	switch instr.Op {
	case NewObjInst, ObjInstCast, ObjTypeOf:
		return []ClassID{ClassID(instr.Op1)}
	case MthdCall, NewFuncInst, AsyncMthdCall:
		return []ClassID{ClassID(instr.Op1)}
	case LibNewObjInst, LibObjInstCast, LibObjTypeOf:
		if cls, ok := prog.GetClassByName(instr.Str1); ok {
			return []ClassID{cls.ID}
		}
	case LibMthdCall, LibFuncDef:
		if cls, ok := prog.GetClassByName(instr.Str1); ok {
			return []ClassID{cls.ID}
		}
	}
	return nil
}

// pruneUnreachable removes every library class not marked "called".
func (l *linker) pruneUnreachable(called map[ClassID]bool) {
	if l.prog.Kind != Executable {
		return
	}
	for _, id := range l.prog.ClassIDs() {
		cls, ok := l.prog.GetClass(id)
		if !ok || !cls.Flags.IsLibrary {
			continue
		}
		if !called[id] {
			delete(l.prog.classes, id)
			delete(l.prog.byName, cls.Name)
		}
	}
}

// rewriteAll rewrites every LIB_* instruction in every surviving class
// to its resolved id-based counterpart.
func (l *linker) rewriteAll() error {
	for _, id := range l.prog.ClassIDs() {
		cls, _ := l.prog.GetClass(id)
		for _, m := range cls.Methods {
			for i, instr := range m.Instructions {
				rewritten, err := l.rewriteOne(instr)
				if err != nil {
					return err
				}
				m.Instructions[i] = rewritten
			}
			m.Jumps = BuildJumpTable(m.Instructions)
		}
	}
	return nil
}

func (l *linker) resolveClassName(name string) (*Class, bool) {
	if cls, ok := l.prog.GetClassByName(name); ok {
		return cls, true
	}
	// Open Question 1: consult aliases only as a fallback.
	for _, a := range l.aliases {
		if a.Name == name {
			if cls, ok := l.prog.GetClassByName(a.TargetType); ok {
				return cls, true
			}
		}
	}
	return nil, false
}

func (l *linker) rewriteOne(instr Instruction) (Instruction, error) {
	switch instr.Op {
	case LibNewObjInst:
		cls, ok := l.resolveClassName(instr.Str1)
		if !ok {
			return instr, &ErrUnresolvedSymbol{Symbol: instr.Str1, SearchedIn: l.loader.LibPath}
		}
		return Instruction{Op: NewObjInst, Op1: int64(cls.ID), Line: instr.Line}, nil

	case LibObjInstCast:
		cls, ok := l.resolveClassName(instr.Str1)
		if !ok {
			return instr, &ErrUnresolvedSymbol{Symbol: instr.Str1, SearchedIn: l.loader.LibPath}
		}
		return Instruction{Op: ObjInstCast, Op1: int64(cls.ID), Line: instr.Line}, nil

	case LibObjTypeOf:
		cls, ok := l.resolveClassName(instr.Str1)
		if !ok {
			return instr, &ErrUnresolvedSymbol{Symbol: instr.Str1, SearchedIn: l.loader.LibPath}
		}
		return Instruction{Op: ObjTypeOf, Op1: int64(cls.ID), Line: instr.Line}, nil

	case LibMthdCall:
		cls, ok := l.resolveClassName(instr.Str1)
		if !ok {
			return instr, &ErrUnresolvedSymbol{Symbol: instr.Str1, SearchedIn: l.loader.LibPath}
		}
		mthdID, ok := findMethodByName(cls, instr.Str2)
		if !ok {
			return instr, &ErrUnresolvedSymbol{Symbol: instr.Str1 + ":" + instr.Str2, SearchedIn: l.loader.LibPath}
		}
		return Instruction{Op: MthdCall, Op1: int64(cls.ID), Op2: int64(mthdID), Op3: instr.Op3, Line: instr.Line}, nil

	case LibFuncDef:
		// Materializes a function-pointer literal: packs (cls_id, mthd_id)
		// into a LOAD_INT_LIT so the closure can be built from an ordinary
		// NEW_FUNC_INST downstream. Packing matches heap.PackFuncPair
		// (class id in the high 32 bits, method id in the low 32 bits) so
		// both sides agree on the wire shape of a function-pair word.
		cls, ok := l.resolveClassName(instr.Str1)
		if !ok {
			return instr, &ErrUnresolvedSymbol{Symbol: instr.Str1, SearchedIn: l.loader.LibPath}
		}
		mthdID, ok := findMethodByName(cls, instr.Str2)
		if !ok {
			return instr, &ErrUnresolvedSymbol{Symbol: instr.Str1 + ":" + instr.Str2, SearchedIn: l.loader.LibPath}
		}
		packed := int64(uint64(uint32(cls.ID))<<32 | uint64(uint32(mthdID)))
		return Instruction{Op: LoadIntLit, Op1: packed, Line: instr.Line}, nil

	default:
		return instr, nil
	}
}

func findMethodByName(cls *Class, name string) (MethodID, bool) {
	for id, m := range cls.Methods {
		if m.Name == name {
			return id, true
		}
	}
	return 0, false
}
