package interp

import (
	"bufio"
	"io"
	"sync"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/trap"
)

// Config bounds one interpreter instance's operand stack and call
// depth.
type Config struct {
	OperandStackWords int
	CallStackLimit    int
}

// DefaultConfig returns the limits Run gives every root interpreter;
// Run does not read overrides from Properties.
func DefaultConfig() Config {
	return Config{OperandStackWords: 16 * 1024, CallStackLimit: 4096}
}

// Interp is one bytecode interpreter instance: each goroutine that runs
// bytecode owns exactly one. ASYNC_MTHD_CALL spawns a fresh one per
// worker thread, sharing the program, heap, and trap table but never an
// operand/call stack.
type Interp struct {
	prog  *program.Program
	hp    *heap.Heap
	traps trap.Table

	ops   *OperandStack
	calls *callStack

	stdout io.Writer
	stderr io.Writer
	stdin  *bufio.Reader

	// Channel rendezvous for GC safe points: Quiesce sends on
	// quiesceReq and blocks on quiesced; the dispatch loop's safepoint
	// check answers by sending on quiesced, then blocks on resumeCh
	// until Release sends there.
	quiesceReq chan struct{}
	quiesced   chan struct{}
	resumeCh   chan struct{}

	// asyncWG tracks every ASYNC_MTHD_CALL spawned anywhere in this
	// run; THREAD_JOIN waits on it. Shared across every Interp spawned
	// for one program run (see spawnChild), so joining from any thread
	// waits for work spawned from any other.
	asyncWG *sync.WaitGroup
}

// NewInterp builds the root interpreter instance for a run.
func NewInterp(prog *program.Program, hp *heap.Heap, traps trap.Table, stdout, stderr io.Writer, stdin io.Reader, cfg Config) *Interp {
	in := &Interp{
		prog:       prog,
		hp:         hp,
		traps:      traps,
		ops:        NewOperandStack(cfg.OperandStackWords),
		calls:      newCallStack(cfg.CallStackLimit),
		stdout:     stdout,
		stderr:     stderr,
		stdin:      bufio.NewReader(stdin),
		quiesceReq: make(chan struct{}),
		quiesced:   make(chan struct{}),
		resumeCh:   make(chan struct{}),
		asyncWG:    &sync.WaitGroup{},
	}
	hp.Register(in)
	return in
}

// spawnChild builds a sibling Interp for an ASYNC_MTHD_CALL worker: same
// program/heap/traps/io, fresh stacks, sharing the root's asyncWG.
func (in *Interp) spawnChild() *Interp {
	child := &Interp{
		prog:       in.prog,
		hp:         in.hp,
		traps:      in.traps,
		ops:        NewOperandStack(len(in.ops.words)),
		calls:      newCallStack(in.calls.limit),
		stdout:     in.stdout,
		stderr:     in.stderr,
		stdin:      in.stdin,
		quiesceReq: make(chan struct{}),
		quiesced:   make(chan struct{}),
		resumeCh:   make(chan struct{}),
		asyncWG:    in.asyncWG,
	}
	in.hp.Register(child)
	return child
}

// ScanRoots implements heap.Monitor: every live frame's locals (exact,
// via TraceFrameLocals) plus the operand stack (conservative).
func (in *Interp) ScanRoots(mark func(*heap.Allocation)) {
	for _, f := range in.calls.snapshot() {
		heap.TraceFrameLocals(f.Method, f.LocalRefs, mark)
	}
	heap.TraceConservative(in.ops.Refs(), in.ops.Pos(), mark)
}

// Quiesce implements heap.Monitor, answering the collector's rendezvous
// at this interpreter's next safepoint check.
func (in *Interp) Quiesce() {
	in.quiesceReq <- struct{}{}
	<-in.quiesced
}

// Release implements heap.Monitor, letting a quiesced interpreter resume.
func (in *Interp) Release() {
	in.resumeCh <- struct{}{}
}

// safepoint answers a pending Quiesce rendezvous, if any, between
// instructions — the only point at which this interpreter's state is
// known consistent for root scanning.
func (in *Interp) safepoint() {
	select {
	case <-in.quiesceReq:
		in.quiesced <- struct{}{}
		<-in.resumeCh
	default:
	}
}

// Program/Heap/Stdout/Stderr/Stdin implement trap.Context.
func (in *Interp) Program() *program.Program { return in.prog }
func (in *Interp) Heap() *heap.Heap          { return in.hp }
func (in *Interp) Stdout() io.Writer         { return in.stdout }
func (in *Interp) Stderr() io.Writer         { return in.stderr }
func (in *Interp) Stdin() *bufio.Reader      { return in.stdin }

// PopInt/PopFloat/PopRef/PushInt/PushFloat/PushRef implement
// trap.Context by delegating to this interpreter's own operand stack —
// the same stack bytecode dispatch pops args from and pushes results
// to, so a trap's side effects land exactly where TRAP_RTRN expects them.
func (in *Interp) PopInt() (int64, error)            { return in.ops.PopInt() }
func (in *Interp) PopFloat() (float64, error)        { return in.ops.PopFloat() }
func (in *Interp) PopRef() (*heap.Allocation, error) { return in.ops.PopRef() }
func (in *Interp) PushInt(v int64) error             { return in.ops.PushInt(v) }
func (in *Interp) PushFloat(v float64) error         { return in.ops.PushFloat(v) }
func (in *Interp) PushRef(r *heap.Allocation) error  { return in.ops.PushRef(r) }

// AllocObject/AllocArray implement trap.Context, threading this
// interpreter's own monitor identity through to the heap so a collection
// triggered mid-trap never asks this goroutine to quiesce itself.
func (in *Interp) AllocObject(classID program.ClassID, instWords int) (*heap.Allocation, error) {
	return in.hp.AllocObject(in.prog, classID, instWords, in)
}

func (in *Interp) AllocArray(kind program.ElemKind, dims []int) (*heap.Allocation, error) {
	return in.hp.AllocArray(in.prog, kind, dims, in)
}

// AsMonitor implements trap.Context, exposing this interpreter's
// heap.Monitor identity to package objser via the serialization traps.
func (in *Interp) AsMonitor() heap.Monitor { return in }

// JoinAsync implements trap.Context for THREAD_JOIN: block until every
// ASYNC_MTHD_CALL spawned anywhere in this run has returned.
func (in *Interp) JoinAsync() error {
	in.asyncWG.Wait()
	return nil
}
