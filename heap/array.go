package heap

import "github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"

// NewArray allocates an array of the given element kind with the stated
// dimension sizes. dims[0] is the outermost dimension; TotalCount is the
// product of every dims entry.
func NewArray(kind program.ElemKind, dims []int) *Allocation {
	total := 1
	for _, d := range dims {
		total *= d
	}
	outer := 0
	if len(dims) > 0 {
		outer = dims[0]
	}

	sizes := make([]int, len(dims))
	copy(sizes, dims)

	a := &Allocation{
		Kind:       ArrayKind,
		ElemKind:   kind,
		TotalCount: total,
		Dims:       len(dims),
		OuterSize:  outer,
		Sizes:      sizes,
	}
	switch {
	case kind.Width() == 1:
		a.Bytes = make([]byte, total)
	case kind.IsReference():
		a.AryRefs = make([]*Allocation, total)
	default:
		a.AryWords = make([]uint64, total)
	}
	return a
}

// Bounds reports whether idx is a valid element index for this array.
func (a *Allocation) Bounds(idx int) bool {
	return idx >= 0 && idx < a.TotalCount
}

// FlatIndex computes idx = Σ (i_k · prod-of-upper-sizes) from a
// per-dimension index list, outermost first. The operand stack yields
// indices innermost-first; callers (interp's popDimsOutermostFirst)
// reorder them to outermost-first before calling this.
func (a *Allocation) FlatIndex(idxs []int) int {
	idx := 0
	for k, i := range idxs {
		stride := 1
		for _, s := range a.Sizes[k+1:] {
			stride *= s
		}
		idx += i * stride
	}
	return idx
}
