package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
)

// Fatal wraps a runtime error kind with the frame trace captured at the
// point of failure. Rather than calling os.Exit itself, the
// interpreter's step function returns this; a single top-level loop
// (cmd/objrun) formats and exits so embedding callers can instead
// surface the error.
type Fatal struct {
	Err    error
	Frames []FrameTrace
}

// FrameTrace is one printable call-stack entry: the owning class/method
// name, and the source line if the image carries debug info.
type FrameTrace struct {
	ClassName  string
	MethodName string
	Line       int32
	HasLine    bool
}

func (f *Fatal) Error() string {
	var b strings.Builder
	b.WriteString(f.Err.Error())
	for _, fr := range f.Frames {
		b.WriteString("\n\tat ")
		b.WriteString(fr.ClassName)
		b.WriteString(".")
		b.WriteString(fr.MethodName)
		if fr.HasLine {
			fmt.Fprintf(&b, " (line %d)", fr.Line)
		}
	}
	return b.String()
}

func (f *Fatal) Unwrap() error { return f.Err }

var (
	ErrImageInvalid          = errors.New("invalid image")
	ErrImageVersionMismatch  = program.ErrVersionMismatch
	ErrStackOverflowKind     = errors.New("stack overflow")
	ErrCallDepthExceededKind = errors.New("call depth exceeded")
	ErrNilDereference        = errors.New("nil dereference")
	ErrInvalidCast           = errors.New("invalid cast")
	ErrDivisionByZero        = errors.New("division by zero")
	ErrOutOfMemory           = heap.ErrOutOfMemory
	ErrUnknownInstruction    = errors.New("unknown instruction")
	ErrUnresolvedMethod      = errors.New("unresolved method")
	ErrUnresolvedTrap        = errors.New("unresolved trap selector")
)

// ErrArrayBounds carries the failing flat index and the array's element
// count so the formatted message matches the runtime's own wording for
// an out-of-range array access.
type ErrArrayBounds struct {
	Index int
	Size  int
}

func (e *ErrArrayBounds) Error() string {
	return fmt.Sprintf(">>> Index out of bounds: %d,%d <<<", e.Index, e.Size)
}

// traceFrames walks the call stack for a diagnostic, outermost frame
// last so the immediate point of failure reads first when printed.
func traceFrames(prog *program.Program, frames []*Frame) []FrameTrace {
	out := make([]FrameTrace, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		fr := frames[i]
		cls, ok := prog.GetClass(fr.Method.ClassID)
		name := "?"
		if ok {
			name = cls.Name
		}
		t := FrameTrace{ClassName: name, MethodName: fr.Method.Name}
		instrs := fr.Method.Instructions
		if fr.IP > 0 && fr.IP-1 < len(instrs) && instrs[fr.IP-1].Line != 0 {
			t.Line = instrs[fr.IP-1].Line
			t.HasLine = true
		}
		out = append(out, t)
	}
	return out
}

func (in *Interp) fatal(err error) *Fatal {
	return &Fatal{Err: err, Frames: traceFrames(in.prog, in.calls.snapshot())}
}
