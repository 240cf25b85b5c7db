package trap

import "fmt"

// registerStdio wires the console trap group. STD_OUT_CHAR_ARY/
// STD_ERR_CHAR_ARY on a nil array push nothing and write nothing,
// recovering rather than faulting.
func registerStdio(t Table) {
	t[StdOutBool] = func(ctx Context) error {
		v, err := ctx.PopInt()
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout(), "%t", v != 0)
		return nil
	}
	t[StdOutByte] = stdOutInt(StdOutByte, "%d")
	t[StdOutChar] = func(ctx Context) error {
		v, err := ctx.PopInt()
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout(), "%c", rune(v))
		return nil
	}
	t[StdOutInt] = stdOutInt(StdOutInt, "%d")
	t[StdOutFloat] = func(ctx Context) error {
		v, err := ctx.PopFloat()
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout(), "%v", v)
		return nil
	}
	t[StdOutCharAry] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil {
			return nil
		}
		fmt.Fprint(ctx.Stdout(), string(ref.Bytes))
		return nil
	}
	t[StdInString] = func(ctx Context) error {
		line, _ := readLine(ctx.Stdin())
		ref := stringToCharArray(ctx, line)
		return ctx.PushRef(ref)
	}
	t[StdFlush] = func(ctx Context) error { return nil }

	t[StdErrBool] = func(ctx Context) error {
		v, err := ctx.PopInt()
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stderr(), "%t", v != 0)
		return nil
	}
	t[StdErrByte] = stdErrInt("%d")
	t[StdErrChar] = func(ctx Context) error {
		v, err := ctx.PopInt()
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stderr(), "%c", rune(v))
		return nil
	}
	t[StdErrInt] = stdErrInt("%d")
	t[StdErrFloat] = func(ctx Context) error {
		v, err := ctx.PopFloat()
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stderr(), "%v", v)
		return nil
	}
	t[StdErrCharAry] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil {
			return nil
		}
		fmt.Fprint(ctx.Stderr(), string(ref.Bytes))
		return nil
	}
}

func stdOutInt(_ Selector, format string) Func {
	return func(ctx Context) error {
		v, err := ctx.PopInt()
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout(), format, v)
		return nil
	}
}

func stdErrInt(format string) Func {
	return func(ctx Context) error {
		v, err := ctx.PopInt()
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stderr(), format, v)
		return nil
	}
}
