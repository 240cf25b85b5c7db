package trap

import (
	"os"
	"runtime"
)

// registerEnv wires GET_PLTFRM/GET_VERSION/GET_SYS_PROP/SET_SYS_PROP/
// EXIT. GET_SYS_PROP/SET_SYS_PROP read and write the properties map a
// *program.Program already owns. Nothing in the runtime reads an
// `obr.conf` file or OBR_LIB_PATH into that map, so it holds only its
// defaults and what SET_SYS_PROP stores.
func registerEnv(t Table) {
	t[GetPlatform] = func(ctx Context) error {
		return ctx.PushRef(stringToCharArray(ctx, runtime.GOOS+"/"+runtime.GOARCH))
	}
	t[GetVersion] = func(ctx Context) error {
		return ctx.PushRef(stringToCharArray(ctx, "1"))
	}
	t[GetSysProp] = func(ctx Context) error {
		keyRef, err := ctx.PopRef()
		if err != nil {
			return err
		}
		key := charArrayToString(keyRef)
		val, ok := ctx.Program().Properties.Get(key)
		if !ok {
			val = ""
		}
		return ctx.PushRef(stringToCharArray(ctx, val))
	}
	t[SetSysProp] = func(ctx Context) error {
		valRef, err := ctx.PopRef()
		if err != nil {
			return err
		}
		keyRef, err := ctx.PopRef()
		if err != nil {
			return err
		}
		ctx.Program().Properties.Set(charArrayToString(keyRef), charArrayToString(valRef))
		return nil
	}
	t[Exit] = func(ctx Context) error {
		code, err := ctx.PopInt()
		if err != nil {
			return err
		}
		os.Exit(int(code))
		return nil
	}
}
