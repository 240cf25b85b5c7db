package program

// buildBootstrap synthesizes the method the loader attaches at the end
// of loading: it allocates an object array sized to argc, wraps each
// argument's characters in a new string-class instance, and issues
// MTHD_CALL to the image's start method with that array, ending in
// RTRN. The actual heap allocation and CPY_CHAR_STR_ARY trap happen
// when interp executes these instructions — this function only emits
// the instruction stream rather than performing the allocation itself.
func buildBootstrap(prog *Program, args []string) *Method {
	var instrs []Instruction

	// Seed the char constant pool with the argument strings so
	// CPY_CHAR_STR_ARY has somewhere to copy from, and remember each
	// one's pool index.
	argIndices := make([]int64, len(args))
	for i, a := range args {
		argIndices[i] = int64(len(prog.Constants.Chars))
		prog.Constants.Chars = append(prog.Constants.Chars, a)
	}

	// new object array sized len(args), stashed in declared local 0 so
	// the loop below and the final MTHD_CALL can both reload it.
	instrs = append(instrs, Instruction{Op: LoadIntLit, Op1: int64(len(args))})
	instrs = append(instrs, Instruction{Op: NewArray, Op1: int64(ObjElem), Op2: 1})
	instrs = append(instrs, Instruction{Op: StorVar, Op1: 0, Op2: int64(Local), Op3: int64(IntVar)})

	for i, idx := range argIndices {
		// STOR_ARY_ELM consumes (array, index, value) off the stack,
		// so re-push the array reference (held in declared local 0,
		// which sits one past the receiver slot every frame reserves)
		// before each store.
		instrs = append(instrs, Instruction{Op: LoadVar, Op1: 0, Op2: int64(Local), Op3: int64(IntVar)})
		instrs = append(instrs, Instruction{Op: LoadIntLit, Op1: int64(i)})
		instrs = append(instrs, Instruction{Op: LoadIntLit, Op1: idx})
		instrs = append(instrs, Instruction{Op: Trap, Op1: int64(trapCpyCharStrAry), Op2: 1})
		instrs = append(instrs, Instruction{Op: NewObjInst, Op1: int64(prog.StringClassID)})
		instrs = append(instrs, Instruction{Op: StorArrayElem, Op1: int64(ObjElem), Op2: 1, Op3: int64(Local)})
	}

	instrs = append(instrs, Instruction{Op: LoadVar, Op1: 0, Op2: int64(Local), Op3: int64(IntVar)})
	instrs = append(instrs, Instruction{Op: MthdCall, Op1: int64(prog.StartClassID), Op2: int64(prog.StartMethodID)})
	instrs = append(instrs, Instruction{Op: Rtrn})

	return &Method{
		ClassID:      NoParent,
		ID:           -1,
		Name:         "$Bootstrap:main:",
		Return:       ReturnNil,
		NumParams:    0,
		LocalWords:   1,
		Instructions: instrs,
		Jumps:        BuildJumpTable(instrs),
		Flags:        MethodFlags{IsFunc: true},
	}
}

// trapCpyCharStrAry is the CPY_CHAR_STR_ARY trap selector, duplicated
// here (rather than imported from package trap) to avoid a program<->trap
// import cycle — trap already imports program for Program/Class/Method.
// The numeric value is kept in sync with trap.CpyCharStrAry; loader_test.go
// exercises this bootstrap path end to end through the real trap table.
const trapCpyCharStrAry = 0x0304
