package interp

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/trap"
)

// assert is a terse condition-plus-format failure helper, not a
// third-party assertion library.
func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

// newTestProgram returns an empty program with a minimal string class
// registered at id 0, since I2S/F2S/S2I/S2F always wrap or unwrap
// Program.StringClassID regardless of what a given test actually
// exercises.
func newTestProgram() *program.Program {
	prog := program.NewProgram()
	str := program.NewClass(0, "String", "test.obs", 0, 1)
	prog.AddClass(str)
	prog.StringClassID = 0
	return prog
}

func newMethod(classID program.ClassID, id program.MethodID, name string, numParams, localWords int, flags program.MethodFlags, instrs ...program.Instruction) *program.Method {
	return &program.Method{
		ClassID:      classID,
		ID:           id,
		Name:         name,
		NumParams:    numParams,
		LocalWords:   localWords,
		Flags:        flags,
		Instructions: instrs,
		Jumps:        program.BuildJumpTable(instrs),
	}
}

func ins(op program.Opcode, op1, op2, op3 int64) program.Instruction {
	return program.Instruction{Op: op, Op1: op1, Op2: op2, Op3: op3}
}

func flit(v float64) program.Instruction {
	return program.Instruction{Op: program.LoadFloatLit, Flt: v}
}

// runProgram drives prog through a fresh Run, returning captured stdout
// alongside any fatal error.
func runProgram(t *testing.T, prog *program.Program) (string, *Fatal) {
	t.Helper()
	var out, errOut bytes.Buffer
	hp := heap.New(0)
	traps := trap.NewTable()
	fatal := Run(prog, hp, traps, &out, &errOut, bytes.NewReader(nil))
	return out.String(), fatal
}
