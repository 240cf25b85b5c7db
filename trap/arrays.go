package trap

import (
	"unicode/utf16"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
)

// registerArrays wires LOAD_MULTI_ARY_SIZE, the CPY_*_ARY / CPY_*_STR_ARY
// copy traps, the ZERO_*_ARY traps, and BYTES_TO_UNICODE/
// UNICODE_TO_BYTES.
func registerArrays(t Table) {
	t[LoadMultiArySize] = func(ctx Context) error {
		dim, err := ctx.PopInt()
		if err != nil {
			return err
		}
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil || int(dim) < 0 || int(dim) >= len(ref.Sizes) {
			return ctx.PushInt(0)
		}
		return ctx.PushInt(int64(ref.Sizes[dim]))
	}

	t[CpyCharAry] = cpyAryToAry()
	t[CpyIntAry] = cpyAryToAry()
	t[CpyFloatAry] = cpyAryToAry()

	t[CpyCharStrAry] = func(ctx Context) error {
		idx, err := ctx.PopInt()
		if err != nil {
			return err
		}
		pool := ctx.Program().Constants.Chars
		if int(idx) < 0 || int(idx) >= len(pool) {
			return ctx.PushRef(nil)
		}
		return ctx.PushRef(stringToCharArray(ctx, pool[idx]))
	}
	t[CpyIntStrAry] = func(ctx Context) error {
		idx, err := ctx.PopInt()
		if err != nil {
			return err
		}
		pool := ctx.Program().Constants.Ints
		if int(idx) < 0 || int(idx) >= len(pool) {
			return ctx.PushInt(0)
		}
		return ctx.PushInt(pool[idx])
	}
	t[CpyFloatStrAry] = func(ctx Context) error {
		idx, err := ctx.PopInt()
		if err != nil {
			return err
		}
		pool := ctx.Program().Constants.Floats
		if int(idx) < 0 || int(idx) >= len(pool) {
			return ctx.PushFloat(0)
		}
		return ctx.PushFloat(pool[idx])
	}

	t[ZeroByteAry] = zeroAry()
	t[ZeroCharAry] = zeroAry()
	t[ZeroIntAry] = zeroAry()
	t[ZeroFloatAry] = zeroAry()

	t[BytesToUnicode] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil {
			return ctx.PushRef(nil)
		}
		units := utf16.Encode([]rune(string(ref.Bytes)))
		out := make([]byte, len(units)*2)
		for i, u := range units {
			out[i*2] = byte(u)
			out[i*2+1] = byte(u >> 8)
		}
		return ctx.PushRef(stringToCharArray(ctx, string(out)))
	}
	t[UnicodeToBytes] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil {
			return ctx.PushRef(nil)
		}
		raw := ref.Bytes
		units := make([]uint16, len(raw)/2)
		for i := range units {
			units[i] = uint16(raw[i*2]) | uint16(raw[i*2+1])<<8
		}
		return ctx.PushRef(stringToCharArray(ctx, string(utf16.Decode(units))))
	}
}

// cpyAryToAry copies src into dst starting at dstIdx, srcIdx for srcLen
// elements, matching CPY_*_ARY's "array-to-array copy" contract;
// out-of-range recovers by clamping rather than faulting (TrapFailure).
func cpyAryToAry() Func {
	return func(ctx Context) error {
		srcLen, err := ctx.PopInt()
		if err != nil {
			return err
		}
		srcIdx, err := ctx.PopInt()
		if err != nil {
			return err
		}
		src, err := ctx.PopRef()
		if err != nil {
			return err
		}
		dstIdx, err := ctx.PopInt()
		if err != nil {
			return err
		}
		dst, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if src == nil || dst == nil {
			return nil
		}
		n := int(srcLen)
		switch {
		case src.Bytes != nil && dst.Bytes != nil:
			copyClamped(dst.Bytes, int(dstIdx), src.Bytes, int(srcIdx), n)
		case src.AryWords != nil && dst.AryWords != nil:
			copyClampedWords(dst.AryWords, int(dstIdx), src.AryWords, int(srcIdx), n)
		case src.AryRefs != nil && dst.AryRefs != nil:
			copyClampedRefs(dst.AryRefs, int(dstIdx), src.AryRefs, int(srcIdx), n)
		}
		return nil
	}
}

func zeroAry() Func {
	return func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil {
			return nil
		}
		for i := range ref.Bytes {
			ref.Bytes[i] = 0
		}
		for i := range ref.AryWords {
			ref.AryWords[i] = 0
		}
		for i := range ref.AryRefs {
			ref.AryRefs[i] = nil
		}
		return nil
	}
}

func copyClamped(dst []byte, dstIdx int, src []byte, srcIdx, n int) {
	for i := 0; i < n; i++ {
		if srcIdx+i >= len(src) || dstIdx+i >= len(dst) || srcIdx+i < 0 || dstIdx+i < 0 {
			continue
		}
		dst[dstIdx+i] = src[srcIdx+i]
	}
}

func copyClampedWords(dst []uint64, dstIdx int, src []uint64, srcIdx, n int) {
	for i := 0; i < n; i++ {
		if srcIdx+i >= len(src) || dstIdx+i >= len(dst) || srcIdx+i < 0 || dstIdx+i < 0 {
			continue
		}
		dst[dstIdx+i] = src[srcIdx+i]
	}
}

func copyClampedRefs(dst []*heap.Allocation, dstIdx int, src []*heap.Allocation, srcIdx, n int) {
	for i := 0; i < n; i++ {
		if srcIdx+i >= len(src) || dstIdx+i >= len(dst) || srcIdx+i < 0 || dstIdx+i < 0 {
			continue
		}
		dst[dstIdx+i] = src[srcIdx+i]
	}
}
