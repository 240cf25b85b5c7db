package trap

// registerReflect wires LOAD_CLS_INST_ID/LOAD_NEW_OBJ_INST/
// LOAD_CLS_BY_INST, the trap-level counterpart of the linker's
// hard-coded reachability roots for
// System.Introspection.Class/Method/DataType.
func registerReflect(t Table) {
	t[LoadClsInstID] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil {
			return ctx.PushInt(-1)
		}
		return ctx.PushInt(int64(ref.ClassID))
	}
	t[LoadNewObjInst] = func(ctx Context) error {
		nameRef, err := ctx.PopRef()
		if err != nil {
			return err
		}
		cls, ok := ctx.Program().GetClassByName(charArrayToString(nameRef))
		if !ok {
			return ctx.PushRef(nil)
		}
		a, aerr := ctx.AllocObject(cls.ID, cls.InstSize)
		if aerr != nil {
			return ctx.PushRef(nil)
		}
		return ctx.PushRef(a)
	}
	t[LoadClsByInst] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil {
			return ctx.PushRef(nil)
		}
		cls, ok := ctx.Program().GetClass(ref.ClassID)
		if !ok {
			return ctx.PushRef(nil)
		}
		introCls, ok := ctx.Program().GetClassByName("System.Introspection.Class")
		if !ok {
			return ctx.PushRef(nil)
		}
		// Materialize a minimal System.Introspection.Class instance:
		// slot 0 holds the class id, slot 1 the name as a char array.
		// Field layout beyond that is owned by the compiler's emitted
		// class declaration, which this narrow trap surface does not
		// reach into further — no compiler front-end exists in this repo.
		obj, oerr := ctx.AllocObject(introCls.ID, introCls.InstSize)
		if oerr != nil {
			return ctx.PushRef(nil)
		}
		if len(obj.Words) > 0 {
			obj.Words[0] = uint64(cls.ID)
		}
		if len(obj.Refs) > 1 {
			obj.Refs[1] = stringToCharArray(ctx, cls.Name)
		}
		return ctx.PushRef(obj)
	}
}
