package interp

import (
	"testing"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/trap"
)

// TestAsyncWorkersShareClassMemoryUnderCriticalSection spawns four
// ASYNC_MTHD_CALL workers, each looping 1000 times incrementing a
// class-static counter guarded by CRITICAL_START/END around a shared
// Lock instance, then joins and reads the counter back. Class-level
// storage lives on the *program.Class itself, so every spawned child
// Interp (each a fresh goroutine, per asyncMthdCall) sees the same
// backing array; the critical section is what keeps the three
// load-increment-store steps from racing across workers. A lost update
// anywhere would show up as a final count below 4000.
func TestAsyncWorkersShareClassMemoryUnderCriticalSection(t *testing.T) {
	prog := newTestProgram()

	lockID := program.ClassID(1)
	prog.AddClass(program.NewClass(lockID, "Lock", "test.obs", 0, 0))

	workerID := program.ClassID(2)
	worker := program.NewClass(workerID, "Worker", "test.obs", 1, 0)
	worker.ClassDecls = []program.Decl{{Slot: 0, Kind: program.IntParm}}

	const loopTop, loopExit = 1, 2
	runID := program.MethodID(0)
	worker.Methods[runID] = newMethod(workerID, runID, "Worker:Run:I:", 1, 2, program.MethodFlags{IsFunc: true},
		ins(program.Lbl, loopTop, 0, 0),
		ins(program.LoadVar, 1, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadIntLit, 1000, 0, 0),
		ins(program.Les, int64(program.IntNum), 0, 0),
		ins(program.Jmp, loopExit, 0, 0),

		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.CriticalStart, 0, 0, 0),
		ins(program.LoadVar, 0, int64(program.ClassCtx), int64(program.IntVar)),
		ins(program.LoadIntLit, 1, 0, 0),
		ins(program.Add, int64(program.IntNum), 0, 0),
		ins(program.StorVar, 0, int64(program.ClassCtx), int64(program.IntVar)),
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.CriticalEnd, 0, 0, 0),

		ins(program.LoadVar, 1, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadIntLit, 1, 0, 0),
		ins(program.Add, int64(program.IntNum), 0, 0),
		ins(program.StorVar, 1, int64(program.Local), int64(program.IntVar)),
		ins(program.Jmp, loopTop, -1, 0),

		ins(program.Lbl, loopExit, 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	totalID := program.MethodID(1)
	worker.Methods[totalID] = newMethod(workerID, totalID, "Worker:Total:I", 0, 0, program.MethodFlags{IsFunc: true},
		ins(program.LoadVar, 0, int64(program.ClassCtx), int64(program.IntVar)),
		ins(program.Rtrn, 0, 0, 0),
	)
	prog.AddClass(worker)

	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 1, program.MethodFlags{IsFunc: true},
		ins(program.NewObjInst, int64(lockID), 0, 0),
		ins(program.StorVar, 0, int64(program.Local), int64(program.IntVar)),

		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.AsyncMthdCall, int64(workerID), int64(runID), 0),
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.AsyncMthdCall, int64(workerID), int64(runID), 0),
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.AsyncMthdCall, int64(workerID), int64(runID), 0),
		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.AsyncMthdCall, int64(workerID), int64(runID), 0),

		ins(program.Trap, int64(trap.ThreadJoin), 0, 0),
		ins(program.MthdCall, int64(workerID), int64(totalID), 0),
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "4000", "expected all 4000 increments to land, got %q", out)
}
