package interp

import (
	"errors"
	"testing"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/trap"
)

func TestArrayStoreLoadRoundTrip(t *testing.T) {
	prog := newTestProgram()
	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 1, program.MethodFlags{IsFunc: true},
		ins(program.LoadIntLit, 3, 0, 0),
		ins(program.NewArray, int64(program.IntElem), 1, 0),
		ins(program.StorVar, 0, int64(program.Local), int64(program.IntVar)),

		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadIntLit, 1, 0, 0),
		ins(program.LoadIntLit, 42, 0, 0),
		ins(program.StorArrayElem, int64(program.IntElem), 1, int64(program.Local)),

		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadIntLit, 1, 0, 0),
		ins(program.LoadArrayElem, int64(program.IntElem), 1, int64(program.Local)),
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "42", "expected stdout %q, got %q", "42", out)
}

// TestMultiDimArrayStoreLoadRoundTrip exercises a 2-D array (outer size
// 2, inner size 3): indices are pushed outermost-first and FlatIndex
// folds them into a single offset, so a store at [1][2] must read back
// from [1][2].
func TestMultiDimArrayStoreLoadRoundTrip(t *testing.T) {
	prog := newTestProgram()
	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 1, program.MethodFlags{IsFunc: true},
		ins(program.LoadIntLit, 2, 0, 0),
		ins(program.LoadIntLit, 3, 0, 0),
		ins(program.NewArray, int64(program.IntElem), 2, 0),
		ins(program.StorVar, 0, int64(program.Local), int64(program.IntVar)),

		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadIntLit, 1, 0, 0),
		ins(program.LoadIntLit, 2, 0, 0),
		ins(program.LoadIntLit, 77, 0, 0),
		ins(program.StorArrayElem, int64(program.IntElem), 2, int64(program.Local)),

		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadIntLit, 1, 0, 0),
		ins(program.LoadIntLit, 2, 0, 0),
		ins(program.LoadArrayElem, int64(program.IntElem), 2, int64(program.Local)),
		ins(program.Trap, int64(trap.StdOutInt), 0, 0),
		ins(program.Rtrn, 0, 0, 0),
	)

	out, fatal := runProgram(t, prog)
	assert(t, fatal == nil, "unexpected fatal: %v", fatal)
	assert(t, out == "77", "expected stdout %q, got %q", "77", out)
}

func TestArrayBoundsViolationFatal(t *testing.T) {
	prog := newTestProgram()
	prog.BootstrapMethod = newMethod(program.NoParent, -1, "Bootstrap:Main:", 0, 1, program.MethodFlags{IsFunc: true},
		ins(program.LoadIntLit, 3, 0, 0),
		ins(program.NewArray, int64(program.IntElem), 1, 0),
		ins(program.StorVar, 0, int64(program.Local), int64(program.IntVar)),

		ins(program.LoadVar, 0, int64(program.Local), int64(program.IntVar)),
		ins(program.LoadIntLit, 5, 0, 0),
		ins(program.LoadArrayElem, int64(program.IntElem), 1, int64(program.Local)),
		ins(program.Rtrn, 0, 0, 0),
	)

	_, fatal := runProgram(t, prog)
	assert(t, fatal != nil, "expected an out-of-bounds index to be fatal")
	var bounds *ErrArrayBounds
	assert(t, errors.As(fatal, &bounds), "expected *ErrArrayBounds, got %v", fatal.Err)
	assert(t, bounds.Index == 5 && bounds.Size == 3, "expected index=5 size=3, got index=%d size=%d", bounds.Index, bounds.Size)
	want := ">>> Index out of bounds: 5,3 <<<"
	assert(t, fatal.Err.Error() == want, "expected message %q, got %q", want, fatal.Err.Error())
}
