package interp

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/trap"
)

// Run boots a fresh root interpreter against an already-loaded program
// and drives it to completion: enter the synthesized bootstrap method
// and dispatch until the call stack empties, driven from outside by one
// top-level caller instead of a recursive re-entry.
func Run(prog *program.Program, hp *heap.Heap, traps trap.Table, stdout, stderr io.Writer, stdin io.Reader) *Fatal {
	in := NewInterp(prog, hp, traps, stdout, stderr, stdin, DefaultConfig())
	defer hp.Unregister(in)
	if _, err := in.calls.enter(prog.BootstrapMethod, nil); err != nil {
		return in.fatal(err)
	}
	return in.run()
}

// run is the threaded dispatcher: fetch, advance the instruction
// pointer, execute, repeat until the call stack empties (the outermost
// RTRN) or a fatal error occurs. The safepoint check runs between every
// two instructions, never mid-instruction.
func (in *Interp) run() *Fatal {
	for {
		f := in.calls.current()
		if f == nil {
			return nil
		}
		in.safepoint()
		if f.IP < 0 || f.IP >= len(f.Method.Instructions) {
			return in.fatal(ErrUnknownInstruction)
		}
		instr := f.Method.Instructions[f.IP]
		f.IP++
		if fatal := in.step(f, instr); fatal != nil {
			return fatal
		}
	}
}

// step executes one instruction against frame f, returning a non-nil
// *Fatal for any fatal condition. Most arithmetic and stack-shuffling
// cases are a handful of lines; calls, arrays, and object allocation
// carry the bulk of the bookkeeping.
func (in *Interp) step(f *Frame, instr program.Instruction) *Fatal {
	switch instr.Op {

	case program.Nop, program.Lbl:
		// LBL is a marker only — jump targets are resolved once into
		// f.Method.Jumps at load time.

	case program.LoadIntLit, program.LoadCharLit:
		if err := in.ops.PushInt(instr.Op1); err != nil {
			return in.fatal(err)
		}

	case program.LoadFloatLit:
		if err := in.ops.PushFloat(instr.Flt); err != nil {
			return in.fatal(err)
		}

	case program.LoadVar:
		if fatal := in.loadVar(f, instr); fatal != nil {
			return fatal
		}

	case program.StorVar:
		if fatal := in.storVar(f, instr); fatal != nil {
			return fatal
		}

	case program.CopyVar:
		if fatal := in.copyVar(f, instr); fatal != nil {
			return fatal
		}

	case program.Add, program.Sub, program.Mul, program.Div, program.Mod,
		program.BitAnd, program.BitOr, program.BitXor, program.Shl, program.Shr:
		if fatal := in.arith(instr); fatal != nil {
			return fatal
		}

	case program.Eql, program.Neql, program.Les, program.Gtr, program.LesEql, program.GtrEql:
		if fatal := in.relational(instr); fatal != nil {
			return fatal
		}

	case program.I2F:
		v, err := in.ops.PopInt()
		if err != nil {
			return in.fatal(err)
		}
		if err := in.ops.PushFloat(float64(v)); err != nil {
			return in.fatal(err)
		}

	case program.F2I:
		v, err := in.ops.PopFloat()
		if err != nil {
			return in.fatal(err)
		}
		if err := in.ops.PushInt(int64(v)); err != nil {
			return in.fatal(err)
		}

	case program.S2I:
		ref, err := in.ops.PopRef()
		if err != nil {
			return in.fatal(err)
		}
		n, _ := strconv.ParseInt(stringFromObj(ref), 10, 64)
		if err := in.ops.PushInt(n); err != nil {
			return in.fatal(err)
		}

	case program.S2F:
		ref, err := in.ops.PopRef()
		if err != nil {
			return in.fatal(err)
		}
		n, _ := strconv.ParseFloat(stringFromObj(ref), 64)
		if err := in.ops.PushFloat(n); err != nil {
			return in.fatal(err)
		}

	case program.I2S:
		v, err := in.ops.PopInt()
		if err != nil {
			return in.fatal(err)
		}
		obj, fatal := in.newString(strconv.FormatInt(v, 10))
		if fatal != nil {
			return fatal
		}
		if err := in.ops.PushRef(obj); err != nil {
			return in.fatal(err)
		}

	case program.F2S:
		v, err := in.ops.PopFloat()
		if err != nil {
			return in.fatal(err)
		}
		obj, fatal := in.newString(strconv.FormatFloat(v, 'f', in.precision(), 64))
		if fatal != nil {
			return fatal
		}
		if err := in.ops.PushRef(obj); err != nil {
			return in.fatal(err)
		}

	case program.Swap:
		if err := in.ops.Swap(); err != nil {
			return in.fatal(err)
		}

	case program.PopOp:
		if _, _, err := in.ops.pop(); err != nil {
			return in.fatal(err)
		}

	case program.NewArray:
		if fatal := in.newArray(instr); fatal != nil {
			return fatal
		}

	case program.LoadArrayElem:
		if fatal := in.loadArrayElem(instr); fatal != nil {
			return fatal
		}

	case program.StorArrayElem:
		if fatal := in.storArrayElem(instr); fatal != nil {
			return fatal
		}

	case program.NewObjInst:
		if fatal := in.newObjInst(instr); fatal != nil {
			return fatal
		}

	case program.NewFuncInst:
		if fatal := in.newFuncInst(instr); fatal != nil {
			return fatal
		}

	case program.ObjInstCast:
		ref, err := in.ops.PopRef()
		if err != nil {
			return in.fatal(err)
		}
		if ref != nil && !classIsA(in.prog, ref.ClassID, program.ClassID(instr.Op1)) {
			return in.fatal(ErrInvalidCast)
		}
		if err := in.ops.PushRef(ref); err != nil {
			return in.fatal(err)
		}

	case program.ObjTypeOf:
		ref, err := in.ops.PopRef()
		if err != nil {
			return in.fatal(err)
		}
		match := ref != nil && classIsA(in.prog, ref.ClassID, program.ClassID(instr.Op1))
		if err := in.ops.PushInt(boolWord(match)); err != nil {
			return in.fatal(err)
		}

	case program.MthdCall:
		if fatal := in.mthdCall(instr); fatal != nil {
			return fatal
		}

	case program.DynMthdCall:
		if fatal := in.dynMthdCall(instr); fatal != nil {
			return fatal
		}

	case program.AsyncMthdCall:
		if fatal := in.asyncMthdCall(instr); fatal != nil {
			return fatal
		}

	case program.Rtrn:
		in.calls.leave()

	case program.Jmp:
		doJump := instr.Op2 == -1
		if !doJump {
			v, err := in.ops.PopInt()
			if err != nil {
				return in.fatal(err)
			}
			doJump = v == instr.Op2
		}
		if doJump {
			target, ok := f.Method.Jumps[instr.Op1]
			if !ok {
				return in.fatal(ErrUnknownInstruction)
			}
			f.IP = target
		}

	case program.CriticalStart:
		ref, err := in.ops.PopRef()
		if err != nil {
			return in.fatal(err)
		}
		if err := in.criticalStart(ref); err != nil {
			return in.fatal(err)
		}

	case program.CriticalEnd:
		ref, err := in.ops.PopRef()
		if err != nil {
			return in.fatal(err)
		}
		if err := in.criticalEnd(ref); err != nil {
			return in.fatal(err)
		}

	case program.Trap, program.TrapRtrn:
		fn, ok := in.traps[trap.Selector(instr.Op1)]
		if !ok {
			return in.fatal(ErrUnresolvedTrap)
		}
		if err := fn(in); err != nil {
			return in.fatal(err)
		}

	default:
		return in.fatal(ErrUnknownInstruction)
	}
	return nil
}

// boolWord renders a bool as the interpreter's canonical 0/1 int word.
func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// classIsA walks classID's own id, then its parent chain, checking at
// each step whether the class itself or one of its implemented
// interfaces equals targetID.
func classIsA(prog *program.Program, classID, targetID program.ClassID) bool {
	id := classID
	for id != program.NoParent {
		if id == targetID {
			return true
		}
		cls, ok := prog.GetClass(id)
		if !ok {
			return false
		}
		if cls.Implements(targetID) {
			return true
		}
		id = cls.ParentID
	}
	return false
}

// localIndex maps a declared local slot to its raw Frame.Locals index:
// raw index 0 is reserved for the receiver (see newFrame), so every
// declared slot sits one past where the bytecode numbers it.
func localIndex(slot int64) int { return int(slot) + 1 }

func (in *Interp) loadVar(f *Frame, instr program.Instruction) *Fatal {
	switch program.VarContext(instr.Op2) {
	case program.Local:
		idx := localIndex(instr.Op1)
		if idx < 0 || idx >= len(f.Locals) {
			return in.fatal(ErrUnknownInstruction)
		}
		if err := in.ops.push(f.Locals[idx], f.LocalRefs[idx]); err != nil {
			return in.fatal(err)
		}
	case program.Instance:
		if f.Instance == nil {
			return in.fatal(ErrNilDereference)
		}
		idx := int(instr.Op1)
		if idx < 0 || idx >= len(f.Instance.Words) {
			return in.fatal(ErrUnknownInstruction)
		}
		if err := in.ops.push(f.Instance.Words[idx], f.Instance.Refs[idx]); err != nil {
			return in.fatal(err)
		}
	case program.ClassCtx:
		cls, ok := in.prog.GetClass(f.Method.ClassID)
		if !ok {
			return in.fatal(ErrUnknownInstruction)
		}
		idx := int(instr.Op1)
		if idx < 0 || idx >= len(cls.ClassMemory) {
			return in.fatal(ErrUnknownInstruction)
		}
		ref, _ := cls.ClassMemoryRefs[idx].(*heap.Allocation)
		if err := in.ops.push(cls.ClassMemory[idx], ref); err != nil {
			return in.fatal(err)
		}
	default:
		return in.fatal(ErrUnknownInstruction)
	}
	return nil
}

func (in *Interp) storVar(f *Frame, instr program.Instruction) *Fatal {
	word, ref, err := in.ops.pop()
	if err != nil {
		return in.fatal(err)
	}
	return in.writeVar(f, instr, word, ref)
}

// copyVar peeks the stack top instead of popping it, so COPY_*_VAR reads
// and writes a declared slot without disturbing what the caller's next
// instruction expects to still find there.
func (in *Interp) copyVar(f *Frame, instr program.Instruction) *Fatal {
	word, ref, err := in.ops.top()
	if err != nil {
		return in.fatal(err)
	}
	return in.writeVar(f, instr, word, ref)
}

func (in *Interp) writeVar(f *Frame, instr program.Instruction, word uint64, ref *heap.Allocation) *Fatal {
	switch program.VarContext(instr.Op2) {
	case program.Local:
		idx := localIndex(instr.Op1)
		if idx < 0 || idx >= len(f.Locals) {
			return in.fatal(ErrUnknownInstruction)
		}
		f.Locals[idx], f.LocalRefs[idx] = word, ref
	case program.Instance:
		if f.Instance == nil {
			return in.fatal(ErrNilDereference)
		}
		idx := int(instr.Op1)
		if idx < 0 || idx >= len(f.Instance.Words) {
			return in.fatal(ErrUnknownInstruction)
		}
		f.Instance.Words[idx], f.Instance.Refs[idx] = word, ref
	case program.ClassCtx:
		cls, ok := in.prog.GetClass(f.Method.ClassID)
		if !ok {
			return in.fatal(ErrUnknownInstruction)
		}
		idx := int(instr.Op1)
		if idx < 0 || idx >= len(cls.ClassMemory) {
			return in.fatal(ErrUnknownInstruction)
		}
		cls.ClassMemory[idx] = word
		cls.ClassMemoryRefs[idx] = ref
	default:
		return in.fatal(ErrUnknownInstruction)
	}
	return nil
}

func (in *Interp) arith(instr program.Instruction) *Fatal {
	if program.NumKind(instr.Op1) == program.FloatNum {
		b, err := in.ops.PopFloat()
		if err != nil {
			return in.fatal(err)
		}
		a, err := in.ops.PopFloat()
		if err != nil {
			return in.fatal(err)
		}
		var r float64
		switch instr.Op {
		case program.Add:
			r = a + b
		case program.Sub:
			r = a - b
		case program.Mul:
			r = a * b
		case program.Div:
			r = a / b
		default:
			return in.fatal(ErrUnknownInstruction)
		}
		if err := in.ops.PushFloat(r); err != nil {
			return in.fatal(err)
		}
		return nil
	}

	b, err := in.ops.PopInt()
	if err != nil {
		return in.fatal(err)
	}
	a, err := in.ops.PopInt()
	if err != nil {
		return in.fatal(err)
	}
	var r int64
	switch instr.Op {
	case program.Add:
		r = a + b
	case program.Sub:
		r = a - b
	case program.Mul:
		r = a * b
	case program.Div:
		if b == 0 {
			return in.fatal(ErrDivisionByZero)
		}
		r = a / b
	case program.Mod:
		if b == 0 {
			return in.fatal(ErrDivisionByZero)
		}
		r = a % b
	case program.BitAnd:
		r = a & b
	case program.BitOr:
		r = a | b
	case program.BitXor:
		r = a ^ b
	case program.Shl:
		r = a << uint64(b)
	case program.Shr:
		r = a >> uint64(b)
	default:
		return in.fatal(ErrUnknownInstruction)
	}
	if err := in.ops.PushInt(r); err != nil {
		return in.fatal(err)
	}
	return nil
}

func (in *Interp) relational(instr program.Instruction) *Fatal {
	var less, equal bool
	if program.NumKind(instr.Op1) == program.FloatNum {
		b, err := in.ops.PopFloat()
		if err != nil {
			return in.fatal(err)
		}
		a, err := in.ops.PopFloat()
		if err != nil {
			return in.fatal(err)
		}
		less, equal = a < b, a == b
	} else {
		b, err := in.ops.PopInt()
		if err != nil {
			return in.fatal(err)
		}
		a, err := in.ops.PopInt()
		if err != nil {
			return in.fatal(err)
		}
		less, equal = a < b, a == b
	}
	var result bool
	switch instr.Op {
	case program.Eql:
		result = equal
	case program.Neql:
		result = !equal
	case program.Les:
		result = less
	case program.Gtr:
		result = !less && !equal
	case program.LesEql:
		result = less || equal
	case program.GtrEql:
		result = !less
	default:
		return in.fatal(ErrUnknownInstruction)
	}
	if err := in.ops.PushInt(boolWord(result)); err != nil {
		return in.fatal(err)
	}
	return nil
}

// popDimsOutermostFirst pops n stack words as dimension sizes or array
// indices. The compiler pushes them outermost-dimension-first, so the
// last one pushed (the innermost) is the first one popped; reverse-
// accumulating into a pre-sized slice restores outermost-first order
// without needing a second pass.
func (in *Interp) popDimsOutermostFirst(n int) ([]int, error) {
	out := make([]int, n)
	for k := n - 1; k >= 0; k-- {
		v, err := in.ops.PopInt()
		if err != nil {
			return nil, err
		}
		out[k] = int(v)
	}
	return out, nil
}

func (in *Interp) newArray(instr program.Instruction) *Fatal {
	dims, err := in.popDimsOutermostFirst(int(instr.Op2))
	if err != nil {
		return in.fatal(err)
	}
	a, err := in.AllocArray(program.ElemKind(instr.Op1), dims)
	if err != nil {
		return in.fatal(err)
	}
	if err := in.ops.PushRef(a); err != nil {
		return in.fatal(err)
	}
	return nil
}

// arrayElem resolves the array reference and flat index shared by
// LOAD_ARY_ELM/STOR_ARY_ELM. Only VarContext Local is implemented: every
// emitted instruction stream (the loader's bootstrap method and anything
// a compiler targeting this machine would produce) addresses the array
// via a stack operand rather than an instance/class-memory slot, since
// the array reference is itself just another local value loaded before
// the access. Instance/ClassCtx array access is therefore out of scope
// (documented in DESIGN.md) and reports ErrUnknownInstruction.
func (in *Interp) arrayElem(instr program.Instruction) (*heap.Allocation, int, *Fatal) {
	if program.VarContext(instr.Op3) != program.Local {
		return nil, 0, in.fatal(ErrUnknownInstruction)
	}
	idxs, err := in.popDimsOutermostFirst(int(instr.Op2))
	if err != nil {
		return nil, 0, in.fatal(err)
	}
	arr, err := in.ops.PopRef()
	if err != nil {
		return nil, 0, in.fatal(err)
	}
	if arr == nil {
		return nil, 0, in.fatal(ErrNilDereference)
	}
	flat := arr.FlatIndex(idxs)
	if !arr.Bounds(flat) {
		return nil, 0, in.fatal(&ErrArrayBounds{Index: flat, Size: arr.TotalCount})
	}
	return arr, flat, nil
}

func (in *Interp) loadArrayElem(instr program.Instruction) *Fatal {
	arr, flat, fatal := in.arrayElem(instr)
	if fatal != nil {
		return fatal
	}
	kind := program.ElemKind(instr.Op1)
	var err error
	switch {
	case kind == program.ByteElem || kind == program.CharElem:
		err = in.ops.PushInt(int64(arr.Bytes[flat]))
	case kind == program.FloatElem:
		err = in.ops.PushFloat(wordToFloat(arr.AryWords[flat]))
	case kind.IsReference():
		err = in.ops.PushRef(arr.AryRefs[flat])
	default:
		err = in.ops.PushInt(int64(arr.AryWords[flat]))
	}
	if err != nil {
		return in.fatal(err)
	}
	return nil
}

func (in *Interp) storArrayElem(instr program.Instruction) *Fatal {
	kind := program.ElemKind(instr.Op1)

	var byteVal byte
	var wordVal uint64
	var refVal *heap.Allocation
	switch {
	case kind == program.ByteElem || kind == program.CharElem:
		v, err := in.ops.PopInt()
		if err != nil {
			return in.fatal(err)
		}
		byteVal = byte(v)
	case kind == program.FloatElem:
		v, err := in.ops.PopFloat()
		if err != nil {
			return in.fatal(err)
		}
		wordVal = floatToWord(v)
	case kind.IsReference():
		v, err := in.ops.PopRef()
		if err != nil {
			return in.fatal(err)
		}
		refVal = v
	default:
		v, err := in.ops.PopInt()
		if err != nil {
			return in.fatal(err)
		}
		wordVal = uint64(v)
	}

	arr, flat, fatal := in.arrayElem(instr)
	if fatal != nil {
		return fatal
	}
	switch {
	case kind == program.ByteElem || kind == program.CharElem:
		arr.Bytes[flat] = byteVal
	case kind.IsReference():
		arr.AryRefs[flat] = refVal
	default:
		arr.AryWords[flat] = wordVal
	}
	return nil
}

func (in *Interp) newObjInst(instr program.Instruction) *Fatal {
	classID := program.ClassID(instr.Op1)
	cls, ok := in.prog.GetClass(classID)
	if !ok {
		return in.fatal(ErrUnknownInstruction)
	}

	// The loader's synthesized bootstrap method (and any compiler
	// targeting this image format) emits a CPY_CHAR_STR_ARY/CPY_*_ARY
	// trap to build a char array immediately before wrapping it in a
	// string instance; NEW_OBJ_INST on the string class consumes that
	// array reference as the new instance's backing field (InstDecls[0])
	// rather than leaving it to a separate STOR_VAR.
	var backing *heap.Allocation
	if classID == in.prog.StringClassID {
		var err error
		backing, err = in.ops.PopRef()
		if err != nil {
			return in.fatal(err)
		}
	}

	obj, err := in.AllocObject(classID, cls.InstSize)
	if err != nil {
		return in.fatal(err)
	}
	if backing != nil && len(obj.Refs) > 0 {
		obj.Refs[0] = backing
	}
	if err := in.ops.PushRef(obj); err != nil {
		return in.fatal(err)
	}
	return nil
}

// newFuncInst materializes a closure over the captured environment
// sitting on top of the stack — the receiver a subsequent DYN_MTHD_CALL
// dispatches against, nil for a closure over a static function.
func (in *Interp) newFuncInst(instr program.Instruction) *Fatal {
	env, err := in.ops.PopRef()
	if err != nil {
		return in.fatal(err)
	}
	closure := heap.NewClosure(program.ClassID(instr.Op1), program.MethodID(instr.Op2), env)
	in.hp.Adopt(closure, 1)
	if err := in.ops.PushRef(closure); err != nil {
		return in.fatal(err)
	}
	return nil
}

// popArgsReverse pops n (word, ref) operand pairs in call-argument order:
// arguments are pushed left-to-right so the last one pushed (the
// rightmost) sits on top; reverse-accumulating restores left-to-right
// order in the returned slices the same way popDimsOutermostFirst does
// for array operands.
func (in *Interp) popArgsReverse(n int) ([]uint64, []*heap.Allocation, error) {
	words := make([]uint64, n)
	refs := make([]*heap.Allocation, n)
	for k := n - 1; k >= 0; k-- {
		w, r, err := in.ops.pop()
		if err != nil {
			return nil, nil, err
		}
		words[k], refs[k] = w, r
	}
	return words, refs, nil
}

// enterWithArgs pushes a new frame for target and copies the popped
// argument words/refs into its declared local slots, which sit one past
// the reserved receiver slot (localIndex).
func (in *Interp) enterWithArgs(target *program.Method, receiver *heap.Allocation, words []uint64, refs []*heap.Allocation) *Fatal {
	nf, err := in.calls.enter(target, receiver)
	if err != nil {
		return in.fatal(err)
	}
	for i := range words {
		idx := localIndex(int64(i))
		if idx >= len(nf.Locals) {
			break
		}
		nf.Locals[idx], nf.LocalRefs[idx] = words[i], refs[i]
	}
	return nil
}

// mthdCall resolves and enters a statically-declared call target, taking
// the virtual-dispatch path when the declared method is virtual and a
// receiver is present.
func (in *Interp) mthdCall(instr program.Instruction) *Fatal {
	classID := program.ClassID(instr.Op1)
	methodID := program.MethodID(instr.Op2)
	decl, ok := in.prog.GetMethod(classID, methodID)
	if !ok {
		return in.fatal(ErrUnresolvedMethod)
	}

	words, refs, err := in.popArgsReverse(decl.NumParams)
	if err != nil {
		return in.fatal(err)
	}

	var receiver *heap.Allocation
	if !decl.Flags.IsFunc {
		receiver, err = in.ops.PopRef()
		if err != nil {
			return in.fatal(err)
		}
		if receiver == nil {
			return in.fatal(ErrNilDereference)
		}
	}

	target := decl
	if decl.Flags.IsVirtual && receiver != nil {
		if resolved, ok := program.ResolveVirtual(in.prog, receiver.ClassID, decl.DispatchSuffix()); ok {
			target = resolved
		}
	}

	return in.enterWithArgs(target, receiver, words, refs)
}

// dynMthdCall dispatches through a closure reference: the (class id,
// method id) pair the closure packs is resolved directly, not through
// virtual dispatch, since NEW_FUNC_INST already bound a concrete method.
func (in *Interp) dynMthdCall(instr program.Instruction) *Fatal {
	words, refs, err := in.popArgsReverse(int(instr.Op1))
	if err != nil {
		return in.fatal(err)
	}
	closure, err := in.ops.PopRef()
	if err != nil {
		return in.fatal(err)
	}
	if closure == nil {
		return in.fatal(ErrNilDereference)
	}
	env, classID, methodID := closure.Env()
	target, ok := in.prog.GetMethod(classID, methodID)
	if !ok {
		return in.fatal(ErrUnresolvedMethod)
	}
	return in.enterWithArgs(target, env, words, refs)
}

// asyncMthdCall spawns a fresh child interpreter running target on its
// own operand/call stacks and lets the caller continue immediately:
// it pops exactly one argument plus the receiver
// (unless the target is static); callers needing more than one value
// across the boundary pass an object or array.
func (in *Interp) asyncMthdCall(instr program.Instruction) *Fatal {
	classID := program.ClassID(instr.Op1)
	methodID := program.MethodID(instr.Op2)
	target, ok := in.prog.GetMethod(classID, methodID)
	if !ok {
		return in.fatal(ErrUnresolvedMethod)
	}

	argWord, argRef, err := in.ops.pop()
	if err != nil {
		return in.fatal(err)
	}

	var receiver *heap.Allocation
	if !target.Flags.IsFunc {
		receiver, err = in.ops.PopRef()
		if err != nil {
			return in.fatal(err)
		}
		if receiver == nil {
			return in.fatal(ErrNilDereference)
		}
	}

	child := in.spawnChild()
	in.asyncWG.Add(1)
	go func() {
		defer in.asyncWG.Done()
		defer in.hp.Unregister(child)
		if fatal := child.enterWithArgs(target, receiver, []uint64{argWord}, []*heap.Allocation{argRef}); fatal != nil {
			fmt.Fprintln(child.stderr, fatal.Error())
			return
		}
		if fatal := child.run(); fatal != nil {
			fmt.Fprintln(child.stderr, fatal.Error())
		}
	}()
	return nil
}

func (in *Interp) precision() int {
	v, ok := in.prog.Properties.Get("precision")
	if !ok {
		return 6
	}
	p, err := strconv.Atoi(v)
	if err != nil {
		return 6
	}
	return p
}

func (in *Interp) newCharArray(s string) (*heap.Allocation, error) {
	b := []byte(s)
	a, err := in.AllocArray(program.CharElem, []int{len(b)})
	if err != nil {
		return nil, err
	}
	copy(a.Bytes, b)
	return a, nil
}

// newString wraps s in a char array and a string-class instance, the
// same shape NEW_OBJ_INST builds for the string class.
func (in *Interp) newString(s string) (*heap.Allocation, *Fatal) {
	chars, err := in.newCharArray(s)
	if err != nil {
		return nil, in.fatal(err)
	}
	cls, ok := in.prog.GetClass(in.prog.StringClassID)
	if !ok {
		return nil, in.fatal(ErrUnknownInstruction)
	}
	obj, err := in.AllocObject(in.prog.StringClassID, cls.InstSize)
	if err != nil {
		return nil, in.fatal(err)
	}
	if len(obj.Refs) > 0 {
		obj.Refs[0] = chars
	}
	return obj, nil
}

// stringFromObj reads a string-class instance's backing char array back
// out as a Go string, for S2I/S2F. A nil instance or backing array reads
// as empty rather than faulting: conversions are a value operation, not
// a dereference the nil-check rule (item 8) governs.
func stringFromObj(ref *heap.Allocation) string {
	if ref == nil || len(ref.Refs) == 0 || ref.Refs[0] == nil {
		return ""
	}
	return string(ref.Refs[0].Bytes)
}

// wordToFloat/floatToWord convert an array slot's raw word to/from the
// float64 it represents, the array-element counterpart of the operand
// stack's own math.Float64bits encoding (interp/stack.go).
func wordToFloat(w uint64) float64 { return math.Float64frombits(w) }
func floatToWord(v float64) uint64 { return math.Float64bits(v) }
