package heap

import "github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"

// TraceFrameLocals marks the reference-typed local slots of one
// interpreter frame. Slot 0 (the receiver/closure-self slot every frame
// reserves) is traced unconditionally when non-nil; the remaining
// NumParams slots are traced exactly via the method's parameter
// declarations. Any local slots beyond the parameters are not
// individually typed in a loaded image and are not traced here or by any
// other pass; a reference held only in such a slot is not marked.
func TraceFrameLocals(m *program.Method, localRefs []*Allocation, mark func(*Allocation)) {
	if len(localRefs) > 0 {
		mark(localRefs[0])
	}
	for _, d := range m.ParamDecls {
		if !d.Kind.IsReference() {
			continue
		}
		slot := d.Slot + 1 // slot 0 reserved for the receiver
		if slot >= 0 && slot < len(localRefs) {
			mark(localRefs[slot])
		}
	}
}

// TraceConservative marks every non-nil entry of a conservatively-scanned
// region (an operand stack's ref-shadow array, up to the live position).
func TraceConservative(refs []*Allocation, pos int, mark func(*Allocation)) {
	if pos > len(refs) {
		pos = len(refs)
	}
	for i := 0; i < pos; i++ {
		mark(refs[i])
	}
}
