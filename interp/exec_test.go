package interp

import (
	"errors"
	"testing"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/trap"
)

func TestArithmeticAndStdout(t *testing.T) {
	prog := newTestProgram()
	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.LoadIntLit, 2, 0, 0),
		ins(program.LoadIntLit, 3, 0, 0),
		ins(program.Add, int64(program.IntNum), 0, 0),
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "5", "expected stdout %q, got %q", "5", out)
}

func TestIntStringRoundTrip(t *testing.T) {
	prog := newTestProgram()
	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.LoadIntLit, 123, 0, 0),
		ins(program.I2S, 0, 0, 0), // wraps 123 in a string instance
		ins(program.S2I, 0, 0, 0), // unwraps it back to an int
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "123", "expected stdout %q, got %q", "123", out)
}

func TestFloatIntConversion(t *testing.T) {
	prog := newTestProgram()
	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		flit(1.5),
		flit(2.25),
		ins(program.Add, int64(program.FloatNum), 0, 0),
		ins(program.F2I, 0, 0, 0),
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "3", "expected 1.5+2.25 truncated to 3, got %q", out)
}

func TestDivisionByZeroFatal(t *testing.T) {
	prog := newTestProgram()
	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.LoadIntLit, 1, 0, 0),
		ins(program.LoadIntLit, 0, 0, 0),
		ins(program.Div, int64(program.IntNum), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	_, fatal := runProgram(t, prog)
	assert(t, fatal != nil, "expected division-by-zero to be fatal")
	assert(t, errors.Is(fatal, ErrDivisionByZero), "expected ErrDivisionByZero, got %v", fatal.Err)
}

func TestNilDereferenceOnInstanceAccess(t *testing.T) {
	prog := newTestProgram()
	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.LoadVar, 0, int64(program.Instance), int64(program.IntVar)),
		ins(program.Rtrn, 0, 0, 0),
	)

	_, fatal := runProgram(t, prog)
	assert(t, fatal != nil, "expected nil-instance access to be fatal")
	assert(t, errors.Is(fatal, ErrNilDereference), "expected ErrNilDereference, got %v", fatal.Err)
}

func TestStaticMethodCallReturnsValue(t *testing.T) {
	prog := newTestProgram()
	utilID := program.ClassID(1)
	util := program.NewClass(utilID, "Util", "test.obs", 0, 0)
	addID := program.MethodID(0)
	util.Methods[addID] = newMethod(utilID, addID, "Util:Add:I:I:", 2, 2, program.MethodFlags{IsFunc: true},
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadVar, 1, int64(program.Local), int64(program.IntVar)),
		ins(program.Add, int64(program.IntNum), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)
	prog.AddClass(util)

	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.LoadIntLit, 4, 0, 0),
		ins(program.LoadIntLit, 5, 0, 0),
		ins(program.MthdCall, int64(utilID), int64(addID), 0),
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "9", "expected stdout %q, got %q", "9", out)
}

func TestRecursiveMethodCall(t *testing.T) {
	// fib(n) = n < 2 ? n : fib(n-1) + fib(n-2), computed entirely through
	// MTHD_CALL recursion to exercise the call-stack free list across
	// more than one live depth.
	prog := newTestProgram()
	fibClassID := program.ClassID(1)
	fibClass := program.NewClass(fibClassID, "Fib", "test.obs", 0, 0)
	fibID := program.MethodID(0)
	fibClass.Methods[fibID] = newMethod(fibClassID, fibID, "Fib:Compute:I:I:", 1, 1, program.MethodFlags{IsFunc: true},
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)), // n
		ins(program.LoadIntLit, 2, 0, 0),
		ins(program.Les, int64(program.IntNum), 0, 0),
		ins(program.Jmp, 10, 1, 0), // jump to the base-case label when n < 2 (LES pushed 1)
		// recursive case: fib(n-1) + fib(n-2)
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadIntLit, 1, 0, 0),
		ins(program.Sub, int64(program.IntNum), 0, 0),
		ins(program.MthdCall, int64(fibClassID), int64(fibID), 0),
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadIntLit, 2, 0, 0),
		ins(program.Sub, int64(program.IntNum), 0, 0),
		ins(program.MthdCall, int64(fibClassID), int64(fibID), 0),
		ins(program.Add, int64(program.IntNum), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
		ins(program.Lbl, 10, 0, 0),
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.Rtrn, 0, 0, 0),
	)
	prog.AddClass(fibClass)

	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.LoadIntLit, 10, 0, 0),
		ins(program.MthdCall, int64(fibClassID), int64(fibID), 0),
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "55", "expected fib(10) == 55, got %q", out)
}

func TestVirtualDispatchResolvesOverride(t *testing.T) {
	prog := newTestProgram()
	baseID := program.ClassID(1)
	subID := program.ClassID(2)
	base := program.NewClass(baseID, "Base", "test.obs", 0, 0)
	sub := program.NewClass(subID, "Sub", "test.obs", 0, 0)
	sub.ParentID = baseID

	areaID := program.MethodID(0)
	base.Methods[areaID] = newMethod(baseID, areaID, "Base:Area:", 0, 0, program.MethodFlags{IsVirtual: true},
		ins(program.LoadIntLit, 1, 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)
	sub.Methods[areaID] = newMethod(subID, areaID, "Sub:Area:", 0, 0, program.MethodFlags{IsVirtual: true},
		ins(program.LoadIntLit, 42, 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)
	prog.AddClass(base)
	prog.AddClass(sub)

	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.NewObjInst, int64(subID), 0, 0),
		ins(program.MthdCall, int64(baseID), int64(areaID), 0),
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "42", "expected the override's value 42, got %q", out)
}

func TestObjInstCastAndTypeOf(t *testing.T) {
	prog := newTestProgram()
	a := program.ClassID(1)
	b := program.ClassID(2)
	c := program.ClassID(3)
	clsA := program.NewClass(a, "A", "test.obs", 0, 0)
	clsB := program.NewClass(b, "B", "test.obs", 0, 0)
	clsB.ParentID = a
	clsC := program.NewClass(c, "C", "test.obs", 0, 0)
	prog.AddClass(clsA)
	prog.AddClass(clsB)
	prog.AddClass(clsC)

	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.NewObjInst, int64(b), 0, 0),
		ins(program.ObjInstCast, int64(a), 0, 0), // B is-a A: succeeds, leaves ref on stack
		ins(program.ObjTypeOf, int64(c), 0, 0),   // B is not a C: pushes 0
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "0", "expected stdout %q, got %q", "0", out)
}

func TestObjInstCastFailureFatal(t *testing.T) {
	prog := newTestProgram()
	a := program.ClassID(1)
	c := program.ClassID(2)
	prog.AddClass(program.NewClass(a, "A", "test.obs", 0, 0))
	prog.AddClass(program.NewClass(c, "C", "test.obs", 0, 0))

	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.NewObjInst, int64(c), 0, 0),
		ins(program.ObjInstCast, int64(a), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	_, fatal := runProgram(t, prog)
	assert(t, fatal != nil, "expected an unrelated-class cast to be fatal")
	assert(t, errors.Is(fatal, ErrInvalidCast), "expected ErrInvalidCast, got %v", fatal.Err)
}

func TestCriticalSectionEntryAndExit(t *testing.T) {
	prog := newTestProgram()
	objID := program.ClassID(1)
	prog.AddClass(program.NewClass(objID, "Lock", "test.obs", 0, 0))

	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 1, program.MethodFlags{IsFunc: true},
		ins(program.NewObjInst, int64(objID), 0, 0),
		ins(program.StorVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.CriticalStart, 0, 0, 0),
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.CriticalEnd, 0, 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	_, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
}

func TestAsyncMthdCallJoins(t *testing.T) {
	prog := newTestProgram()
	workerID := program.ClassID(1)
	worker := program.NewClass(workerID, "Worker", "test.obs", 0, 0)
	runID := program.MethodID(0)
	worker.Methods[runID] = newMethod(workerID, runID, "Worker:Run:I:", 1, 1, program.MethodFlags{IsFunc: true},
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)
	prog.AddClass(worker)

	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.LoadIntLit, 7, 0, 0),
		ins(program.AsyncMthdCall, int64(workerID), int64(runID), 0),
		ins(program.Trap, int64(trap.ThreadJoin), 0, 0),
		ins(program.LoadIntLit, 99, 0, 0),
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "799", "expected the worker's output before the join-point print, got %q", out)
}
