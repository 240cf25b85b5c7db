package trap

import (
	"io"
	"os"
	"sync"
)

// fileTable maps the opaque handle word stored in a file object's first
// slot to the underlying *os.File, mutex-protected since file traps can
// be invoked from any interpreter thread, matching every other shared
// table's mutex-guarded convention.
type fileTable struct {
	mu      sync.Mutex
	files   map[int64]*os.File
	next    int64
}

var globalFiles = &fileTable{files: make(map[int64]*os.File)}

func (ft *fileTable) open(path string, flag int, perm os.FileMode) (int64, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return 0, err
	}
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.next++
	h := ft.next
	ft.files[h] = f
	return h, nil
}

func (ft *fileTable) get(h int64) (*os.File, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	f, ok := ft.files[h]
	return f, ok
}

func (ft *fileTable) close(h int64) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if f, ok := ft.files[h]; ok {
		f.Close()
		delete(ft.files, h)
	}
}

// registerFiles wires the files trap group. Every trap here recovers
// from a missing handle or OS error rather than faulting: result traps
// push a sentinel (0, -1, nil, or 1 for FILE_EOF) and the others do
// nothing.
func registerFiles(t Table) {
	t[FileOpenRead] = fileOpen(os.O_RDONLY, 0)
	t[FileOpenWrite] = fileOpen(os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	t[FileOpenAppend] = fileOpen(os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	t[FileOpenReadWrite] = fileOpen(os.O_RDWR|os.O_CREATE, 0o644)

	t[FileClose] = func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		globalFiles.close(h)
		return nil
	}
	t[FileFlush] = func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		if f, ok := globalFiles.get(h); ok {
			f.Sync()
		}
		return nil
	}
	t[FileInByte] = func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		f, ok := globalFiles.get(h)
		if !ok {
			return ctx.PushInt(-1)
		}
		var buf [1]byte
		if _, err := f.Read(buf[:]); err != nil {
			return ctx.PushInt(-1)
		}
		return ctx.PushInt(int64(buf[0]))
	}
	t[FileInCharAry] = func(ctx Context) error {
		n, err := ctx.PopInt()
		if err != nil {
			return err
		}
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		f, ok := globalFiles.get(h)
		if !ok {
			return ctx.PushRef(nil)
		}
		buf := make([]byte, n)
		read, _ := io.ReadFull(f, buf)
		return ctx.PushRef(stringToCharArray(ctx, string(buf[:read])))
	}
	t[FileInString] = func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		f, ok := globalFiles.get(h)
		if !ok {
			return ctx.PushRef(nil)
		}
		line, _ := readLine(newLineReader(f))
		return ctx.PushRef(stringToCharArray(ctx, line))
	}
	t[FileOutByte] = func(ctx Context) error {
		b, err := ctx.PopInt()
		if err != nil {
			return err
		}
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		if f, ok := globalFiles.get(h); ok {
			f.Write([]byte{byte(b)})
		}
		return nil
	}
	t[FileOutCharAry] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		if f, ok := globalFiles.get(h); ok && ref != nil {
			f.Write(ref.Bytes)
		}
		return nil
	}
	t[FileOutString] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		if f, ok := globalFiles.get(h); ok {
			f.WriteString(charArrayToString(ref))
		}
		return nil
	}
	t[FileSeek] = func(ctx Context) error {
		off, err := ctx.PopInt()
		if err != nil {
			return err
		}
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		if f, ok := globalFiles.get(h); ok {
			f.Seek(off, io.SeekStart)
		}
		return nil
	}
	t[FileEOF] = func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		f, ok := globalFiles.get(h)
		if !ok {
			return ctx.PushInt(1)
		}
		cur, _ := f.Seek(0, io.SeekCurrent)
		info, statErr := f.Stat()
		if statErr != nil {
			return ctx.PushInt(1)
		}
		if cur >= info.Size() {
			return ctx.PushInt(1)
		}
		return ctx.PushInt(0)
	}
	t[FileIsOpen] = func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		_, ok := globalFiles.get(h)
		return ctx.PushInt(boolWord(ok))
	}
	t[FileExists] = pathTrap(func(path string) int64 {
		_, err := os.Stat(path)
		return boolWord(err == nil)
	})
	t[FileSize] = pathTrap(func(path string) int64 {
		info, err := os.Stat(path)
		if err != nil {
			return -1
		}
		return info.Size()
	})
	t[FileFullPath] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		abs, aerr := absPath(charArrayToString(ref))
		if aerr != nil {
			return ctx.PushRef(nil)
		}
		return ctx.PushRef(stringToCharArray(ctx, abs))
	}
	t[FileDelete] = pathTrap(func(path string) int64 {
		return boolWord(os.Remove(path) == nil)
	})
	t[FileRename] = func(ctx Context) error {
		toRef, err := ctx.PopRef()
		if err != nil {
			return err
		}
		fromRef, err := ctx.PopRef()
		if err != nil {
			return err
		}
		ok := os.Rename(charArrayToString(fromRef), charArrayToString(toRef)) == nil
		return ctx.PushInt(boolWord(ok))
	}
	t[FileCreateTime] = statTimeTrap(func(i os.FileInfo) int64 { return i.ModTime().Unix() })
	t[FileModifiedTime] = statTimeTrap(func(i os.FileInfo) int64 { return i.ModTime().Unix() })
	t[FileAccessedTime] = statTimeTrap(func(i os.FileInfo) int64 { return i.ModTime().Unix() })
	t[FileCanRead] = pathTrap(func(path string) int64 {
		f, err := os.Open(path)
		if err != nil {
			return 0
		}
		f.Close()
		return 1
	})
	t[FileCanWrite] = pathTrap(func(path string) int64 {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return 0
		}
		f.Close()
		return 1
	})
	t[FileCanExecute] = pathTrap(func(path string) int64 {
		info, err := os.Stat(path)
		if err != nil {
			return 0
		}
		return boolWord(info.Mode()&0o111 != 0)
	})
	t[FileOwnerName] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		_ = ref
		// Ownership lookup is host/user-database specific and out of
		// scope for this narrow I/O trap surface; recover with an empty
		// string rather than faulting.
		return ctx.PushRef(stringToCharArray(ctx, ""))
	}
}

func fileOpen(flag int, perm os.FileMode) Func {
	return func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		h, oerr := globalFiles.open(charArrayToString(ref), flag, perm)
		if oerr != nil {
			return ctx.PushInt(-1)
		}
		return ctx.PushInt(h)
	}
}

func pathTrap(f func(string) int64) Func {
	return func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		return ctx.PushInt(f(charArrayToString(ref)))
	}
}

func statTimeTrap(f func(os.FileInfo) int64) Func {
	return func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		info, serr := os.Stat(charArrayToString(ref))
		if serr != nil {
			return ctx.PushInt(0)
		}
		return ctx.PushInt(f(info))
	}
}

func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func absPath(path string) (string, error) {
	return filepathAbs(path)
}
