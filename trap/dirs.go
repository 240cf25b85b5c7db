package trap

import (
	"os"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
)

// registerDirs wires DIR_CREATE/DIR_EXISTS/DIR_LIST. DIR_LIST returns
// an object array of char-array entry names, the same
// object-array-of-strings shape the bootstrap method builds for argv.
func registerDirs(t Table) {
	t[DirCreate] = pathTrap(func(path string) int64 {
		return boolWord(os.MkdirAll(path, 0o755) == nil)
	})
	t[DirExists] = pathTrap(func(path string) int64 {
		info, err := os.Stat(path)
		return boolWord(err == nil && info.IsDir())
	})
	t[DirList] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		entries, derr := os.ReadDir(charArrayToString(ref))
		if derr != nil {
			return ctx.PushRef(nil)
		}
		arr, aerr := ctx.AllocArray(program.ObjElem, []int{len(entries)})
		if aerr != nil {
			return ctx.PushRef(nil)
		}
		for i, e := range entries {
			arr.AryRefs[i] = stringToCharArray(ctx, e.Name())
		}
		return ctx.PushRef(arr)
	}
}
