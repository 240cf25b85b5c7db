// Package trap implements the trap surface: the bridge between the
// interpreter's TRAP/TRAP_RTRN instructions and host-OS capabilities.
// Each trap is a numeric selector mapped to a Func that reads its own
// arguments off the operand stack and, for TRAP_RTRN, pushes its result
// the same way — a fixed slot -> handler dispatch table, guarded by the
// caller rather than by this package.
package trap

import (
	"bufio"
	"io"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
)

// Selector identifies a trap. Grouped into hex ranges by trap group so
// related traps sort and read together.
type Selector int64

const (
	// stdio: 0x01xx
	StdOutBool Selector = 0x0100 + iota
	StdOutByte
	StdOutChar
	StdOutInt
	StdOutFloat
	StdOutCharAry
	StdInString
	StdFlush
	StdErrBool
	StdErrByte
	StdErrChar
	StdErrInt
	StdErrFloat
	StdErrCharAry
)

const (
	// time: 0x02xx
	SysTime Selector = 0x0200 + iota
	GmtTime
	DateTimeSetAll
	DateTimeAddDays
	DateTimeAddHours
	DateTimeAddMins
	DateTimeAddSecs
	TimerStart
	TimerEnd
	TimerElapsed
)

const (
	// arrays and strings: 0x03xx
	LoadMultiArySize Selector = 0x0300 + iota
	CpyCharAry
	CpyIntAry
	CpyFloatAry
	CpyCharStrAry // = 0x0304; program.trapCpyCharStrAry is kept equal to this by hand
	CpyIntStrAry
	CpyFloatStrAry
	ZeroByteAry
	ZeroCharAry
	ZeroIntAry
	ZeroFloatAry
	BytesToUnicode
	UnicodeToBytes
)

const (
	// environment: 0x04xx
	GetPlatform Selector = 0x0400 + iota
	GetVersion
	GetSysProp
	SetSysProp
	Exit
)

const (
	// files: 0x05xx
	FileOpenRead Selector = 0x0500 + iota
	FileOpenWrite
	FileOpenAppend
	FileOpenReadWrite
	FileClose
	FileFlush
	FileInByte
	FileInCharAry
	FileInString
	FileOutByte
	FileOutCharAry
	FileOutString
	FileSeek
	FileEOF
	FileIsOpen
	FileExists
	FileSize
	FileFullPath
	FileDelete
	FileRename
	FileCreateTime
	FileModifiedTime
	FileAccessedTime
	FileCanRead
	FileCanWrite
	FileCanExecute
	FileOwnerName
)

const (
	// directories: 0x06xx
	DirCreate Selector = 0x0600 + iota
	DirExists
	DirList
)

const (
	// sockets, plain and TLS: 0x07xx
	SockTCPConnect Selector = 0x0700 + iota
	SockTCPBind
	SockTCPListen
	SockTCPAccept
	SockTCPClose
	SockTCPInByte
	SockTCPInCharAry
	SockTCPInString
	SockTCPOutByte
	SockTCPOutCharAry
	SockTCPOutString
	SockTCPSSLConnect
	SockTCPSSLClose
	SockTCPSSLInByte
	SockTCPSSLInCharAry
	SockTCPSSLInString
	SockTCPSSLOutByte
	SockTCPSSLOutCharAry
	SockTCPSSLOutString
)

const (
	// reflection: 0x08xx
	LoadClsInstID Selector = 0x0800 + iota
	LoadNewObjInst
	LoadClsByInst
)

const (
	// compression: 0x09xx
	CompressBytes Selector = 0x0900 + iota
	UncompressBytes
	CRC32Bytes
)

const (
	// concurrency: 0x0Bxx
	ThreadSleep Selector = 0x0B00 + iota
	ThreadJoin
)

const (
	// serialization: 0x0Axx
	SerlChar Selector = 0x0A00 + iota
	SerlInt
	SerlFloat
	SerlObjInst
	SerlByteAry
	SerlCharAry
	SerlIntAry
	SerlObjAry
	SerlFloatAry
	DeserlChar
	DeserlInt
	DeserlFloat
	DeserlObjInst
	DeserlByteAry
	DeserlCharAry
	DeserlIntAry
	DeserlObjAry
	DeserlFloatAry
)

// Context is the narrow surface a Func needs: operand-stack access plus
// the program/heap/io handles required to do host-OS work. Package
// interp's *Interp implements this interface (accept-interface,
// return-struct) so this package never imports interp, avoiding an
// import cycle while still letting trap funcs drive the same stack the
// interpreter does.
type Context interface {
	Program() *program.Program
	Heap() *heap.Heap

	// AllocObject/AllocArray allocate against this interpreter's heap,
	// passing its own monitor identity through so a collection
	// triggered mid-trap never deadlocks waiting on itself (see
	// heap.Heap.Collect). AsMonitor exposes that same identity for
	// trap funcs (serialization) that hand the heap to another package.
	AllocObject(classID program.ClassID, instWords int) (*heap.Allocation, error)
	AllocArray(kind program.ElemKind, dims []int) (*heap.Allocation, error)
	AsMonitor() heap.Monitor

	// JoinAsync backs THREAD_JOIN: block until every ASYNC_MTHD_CALL
	// spawned anywhere in this run has returned.
	JoinAsync() error

	PopInt() (int64, error)
	PopFloat() (float64, error)
	PopRef() (*heap.Allocation, error)
	PushInt(int64) error
	PushFloat(float64) error
	PushRef(*heap.Allocation) error

	Stdout() io.Writer
	Stderr() io.Writer
	Stdin() *bufio.Reader
}

// Func is one trap procedure. It pops exactly the arguments its
// selector contract documents and, if invoked via TRAP_RTRN, pushes
// exactly one result; traps accept and return via the operand stack.
// Recoverable failure kinds (I/O, serialization, decompress) recover by
// pushing a zero/nil result and returning nil — a non-nil error comes
// only from the trap's own operand-stack pops and pushes.
type Func func(ctx Context) error

// Table is the selector-keyed dispatch table the interpreter's
// TRAP/TRAP_RTRN instructions consult.
type Table map[Selector]Func

// NewTable builds the full trap table across every group.
func NewTable() Table {
	t := make(Table)
	registerStdio(t)
	registerTime(t)
	registerEnv(t)
	registerFiles(t)
	registerDirs(t)
	registerSockets(t)
	registerReflect(t)
	registerArrays(t)
	registerCompress(t)
	registerSerialize(t)
	registerThreads(t)
	return t
}
