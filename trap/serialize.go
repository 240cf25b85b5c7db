package trap

import "github.com/000MatthewJamesKalasky/objeck-lang-sub000/objser"

// registerSerialize wires SERL_*/DESERL_* onto package objser's
// tag+value codec. Every encode pushes a fresh char array holding the
// encoded bytes; every decode pops one and allocates the reconstructed
// value straight against ctx.Heap(), then pushes it onto the operand
// stack, where it is a traced root from then on.
func registerSerialize(t Table) {
	t[SerlChar] = func(ctx Context) error {
		v, err := ctx.PopInt()
		if err != nil {
			return err
		}
		b, eerr := objser.EncodeChar(int32(v))
		if eerr != nil {
			return ctx.PushRef(nil)
		}
		return ctx.PushRef(stringToCharArray(ctx, string(b)))
	}
	t[DeserlChar] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		v, derr := objser.DecodeChar([]byte(charArrayToString(ref)))
		if derr != nil {
			return ctx.PushInt(0)
		}
		return ctx.PushInt(int64(v))
	}

	t[SerlInt] = func(ctx Context) error {
		v, err := ctx.PopInt()
		if err != nil {
			return err
		}
		b, eerr := objser.EncodeInt(v)
		if eerr != nil {
			return ctx.PushRef(nil)
		}
		return ctx.PushRef(stringToCharArray(ctx, string(b)))
	}
	t[DeserlInt] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		v, derr := objser.DecodeInt([]byte(charArrayToString(ref)))
		if derr != nil {
			return ctx.PushInt(0)
		}
		return ctx.PushInt(v)
	}

	t[SerlFloat] = func(ctx Context) error {
		v, err := ctx.PopFloat()
		if err != nil {
			return err
		}
		b, eerr := objser.EncodeFloat(v)
		if eerr != nil {
			return ctx.PushRef(nil)
		}
		return ctx.PushRef(stringToCharArray(ctx, string(b)))
	}
	t[DeserlFloat] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		v, derr := objser.DecodeFloat([]byte(charArrayToString(ref)))
		if derr != nil {
			return ctx.PushFloat(0)
		}
		return ctx.PushFloat(v)
	}

	graphEncode := func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		b, eerr := objser.Encode(ctx.Program(), ref)
		if eerr != nil {
			return ctx.PushRef(nil)
		}
		return ctx.PushRef(stringToCharArray(ctx, string(b)))
	}
	t[SerlObjInst] = graphEncode
	t[SerlByteAry] = graphEncode
	t[SerlCharAry] = graphEncode
	t[SerlIntAry] = graphEncode
	t[SerlObjAry] = graphEncode
	t[SerlFloatAry] = graphEncode

	graphDecode := func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		out, derr := objser.Decode(ctx.Program(), ctx.Heap(), ctx.AsMonitor(), []byte(charArrayToString(ref)))
		if derr != nil {
			return ctx.PushRef(nil)
		}
		return ctx.PushRef(out)
	}
	t[DeserlObjInst] = graphDecode
	t[DeserlByteAry] = graphDecode
	t[DeserlCharAry] = graphDecode
	t[DeserlIntAry] = graphDecode
	t[DeserlObjAry] = graphDecode
	t[DeserlFloatAry] = graphDecode
}
