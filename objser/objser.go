// Package objser implements the object-graph serializer: a
// typed tag+value byte-stream encoder/decoder that preserves sharing
// and cycles via a memory-identity (sharing-id) table, built on the
// same little-endian primitive codec package image already applies to
// whole bytecode images — just without image's outer zlib envelope,
// since a serialized object graph is its own self-contained grammar,
// not an on-disk program.
package objser

import (
	"bytes"
	"fmt"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/image"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
)

// ErrUnknownClass is fatal at decode time: an unknown class name
// encountered during decode aborts the decode.
var ErrUnknownClass = fmt.Errorf("objser: unknown class name in stream")

// tag identifies the shape of the value that follows, the "tag + value"
// grammar's leading byte.
type tag byte

const (
	tagNilRef tag = iota
	tagObj
	tagByteAry
	tagCharAry
	tagIntAry
	tagFloatAry
	tagObjAry
)

func tagForArray(k program.ElemKind) tag {
	switch k {
	case program.ByteElem:
		return tagByteAry
	case program.CharElem:
		return tagCharAry
	case program.IntElem:
		return tagIntAry
	case program.FloatElem:
		return tagFloatAry
	default:
		return tagObjAry
	}
}

func arrayElemKind(t tag) program.ElemKind {
	switch t {
	case tagByteAry:
		return program.ByteElem
	case tagCharAry:
		return program.CharElem
	case tagIntAry:
		return program.IntElem
	case tagFloatAry:
		return program.FloatElem
	default:
		return program.ObjElem
	}
}

// encoder walks a heap reference graph, assigning a fresh sharing id the
// first time it encounters each *heap.Allocation and writing only the
// id (not the full value) on every later encounter — the mechanism that
// preserves sharing and terminates cycles.
type encoder struct {
	prog *program.Program
	w    *image.Writer
	ids  map[*heap.Allocation]int32
	next int32
}

// Encode serializes root — an object, array, or nil reference — into a
// byte stream.
func Encode(prog *program.Program, root *heap.Allocation) ([]byte, error) {
	e := &encoder{prog: prog, w: image.NewWriter(), ids: make(map[*heap.Allocation]int32)}
	if err := e.encodeRef(root); err != nil {
		return nil, err
	}
	return e.w.RawBytes()
}

func (e *encoder) encodeRef(a *heap.Allocation) error {
	if a == nil {
		return e.w.WriteByte(byte(tagNilRef))
	}
	if a.Kind == heap.ObjKind {
		return e.encodeObj(a)
	}
	return e.encodeArray(a)
}

func (e *encoder) encodeObj(a *heap.Allocation) error {
	if err := e.w.WriteByte(byte(tagObj)); err != nil {
		return err
	}
	if id, seen := e.ids[a]; seen {
		return e.w.WriteInt32(id)
	}
	e.next++
	id := e.next
	e.ids[a] = id
	if err := e.w.WriteInt32(-id); err != nil {
		return err
	}

	if a.ClassID == heap.ClosureClassID {
		if err := e.w.WriteString("$Closure"); err != nil {
			return err
		}
		if err := e.w.WriteInt64(int64(a.Words[0])); err != nil {
			return err
		}
		env, _, _ := a.Env()
		return e.encodeRef(env)
	}

	cls, ok := e.prog.GetClass(a.ClassID)
	if !ok {
		return ErrUnknownClass
	}
	if err := e.w.WriteString(cls.Name); err != nil {
		return err
	}
	for _, d := range cls.InstDecls {
		if err := e.encodeField(d, a); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeField(d program.Decl, a *heap.Allocation) error {
	if err := e.w.WriteByte(byte(d.Kind)); err != nil {
		return err
	}
	if d.Kind.IsReference() {
		var ref *heap.Allocation
		if d.Slot >= 0 && d.Slot < len(a.Refs) {
			ref = a.Refs[d.Slot]
		}
		return e.encodeRef(ref)
	}
	var word uint64
	if d.Slot >= 0 && d.Slot < len(a.Words) {
		word = a.Words[d.Slot]
	}
	return e.w.WriteInt64(int64(word))
}

func (e *encoder) encodeArray(a *heap.Allocation) error {
	t := tagForArray(a.ElemKind)
	if err := e.w.WriteByte(byte(t)); err != nil {
		return err
	}
	if id, seen := e.ids[a]; seen {
		return e.w.WriteInt32(id)
	}
	e.next++
	id := e.next
	e.ids[a] = id
	if err := e.w.WriteInt32(-id); err != nil {
		return err
	}

	if err := e.w.WriteInt32(int32(a.TotalCount)); err != nil {
		return err
	}
	if err := e.w.WriteInt32(int32(a.Dims)); err != nil {
		return err
	}
	if err := e.w.WriteInt32(int32(a.OuterSize)); err != nil {
		return err
	}
	if err := e.w.WriteInt32(int32(len(a.Sizes))); err != nil {
		return err
	}
	for _, s := range a.Sizes {
		if err := e.w.WriteInt32(int32(s)); err != nil {
			return err
		}
	}

	switch t {
	case tagByteAry, tagCharAry:
		for _, b := range a.Bytes {
			if err := e.w.WriteByte(b); err != nil {
				return err
			}
		}
	case tagIntAry, tagFloatAry:
		for _, word := range a.AryWords {
			if err := e.w.WriteInt64(int64(word)); err != nil {
				return err
			}
		}
	case tagObjAry:
		for _, ref := range a.AryRefs {
			if err := e.encodeRef(ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// decoder mirrors encoder, maintaining an id -> *heap.Allocation map so
// a later positive sharing id resolves to the same allocation rather
// than a fresh copy.
type decoder struct {
	prog *program.Program
	heap *heap.Heap
	self heap.Monitor
	r    *image.Reader
	refs map[int32]*heap.Allocation
}

// Decode reconstructs the reference Encode produced, allocating every
// object/array against h so they are heap-tracked immediately — the
// caller's interpreter registers h as its monitor's root source, and
// pushes the returned ref onto its own operand stack right after Decode
// returns, which is what actually publishes it as a root. self is the
// calling interpreter's own monitor, threaded down to every AllocObject
// call so a collection triggered mid-decode never asks the decoding
// goroutine to quiesce itself.
func Decode(prog *program.Program, h *heap.Heap, self heap.Monitor, data []byte) (*heap.Allocation, error) {
	d := &decoder{prog: prog, heap: h, self: self, r: image.NewReader(bytes.NewReader(data)), refs: make(map[int32]*heap.Allocation)}
	return d.decodeRef()
}

func (d *decoder) decodeRef() (*heap.Allocation, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag(b) {
	case tagNilRef:
		return nil, nil
	case tagObj:
		return d.decodeObj()
	default:
		return d.decodeArray(tag(b))
	}
}

func (d *decoder) decodeObj() (*heap.Allocation, error) {
	id, err := d.r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if id > 0 {
		if a, ok := d.refs[id]; ok {
			return a, nil
		}
		return nil, fmt.Errorf("objser: sharing id %d referenced before definition", id)
	}
	freshID := -id

	name, err := d.r.ReadString()
	if err != nil {
		return nil, err
	}

	if name == "$Closure" {
		packed, err := d.r.ReadInt64()
		if err != nil {
			return nil, err
		}
		a := &heap.Allocation{Kind: heap.ObjKind, ClassID: heap.ClosureClassID, Words: []uint64{uint64(packed)}, Refs: make([]*heap.Allocation, 1)}
		d.heap.Adopt(a, 1)
		d.refs[freshID] = a
		env, err := d.decodeRef()
		if err != nil {
			return nil, err
		}
		a.Refs[0] = env
		return a, nil
	}

	cls, ok := d.prog.GetClassByName(name)
	if !ok {
		return nil, ErrUnknownClass
	}
	a, err := d.heap.AllocObject(d.prog, cls.ID, cls.InstSize, d.self)
	if err != nil {
		return nil, err
	}
	d.refs[freshID] = a

	for _, decl := range cls.InstDecls {
		if err := d.decodeField(decl, a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (d *decoder) decodeField(expected program.Decl, a *heap.Allocation) error {
	kindByte, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	kind := program.ParmKind(kindByte)
	if kind.IsReference() {
		ref, err := d.decodeRef()
		if err != nil {
			return err
		}
		if expected.Slot >= 0 && expected.Slot < len(a.Refs) {
			a.Refs[expected.Slot] = ref
		}
		return nil
	}
	word, err := d.r.ReadInt64()
	if err != nil {
		return err
	}
	if expected.Slot >= 0 && expected.Slot < len(a.Words) {
		a.Words[expected.Slot] = uint64(word)
	}
	return nil
}

func (d *decoder) decodeArray(t tag) (*heap.Allocation, error) {
	id, err := d.r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if id > 0 {
		if a, ok := d.refs[id]; ok {
			return a, nil
		}
		return nil, fmt.Errorf("objser: sharing id %d referenced before definition", id)
	}
	freshID := -id

	total, err := d.r.ReadInt32()
	if err != nil {
		return nil, err
	}
	dims, err := d.r.ReadInt32()
	if err != nil {
		return nil, err
	}
	outer, err := d.r.ReadInt32()
	if err != nil {
		return nil, err
	}
	sizeCount, err := d.r.ReadInt32()
	if err != nil {
		return nil, err
	}
	sizes := make([]int, sizeCount)
	for i := range sizes {
		s, err := d.r.ReadInt32()
		if err != nil {
			return nil, err
		}
		sizes[i] = int(s)
	}

	a := heap.NewArray(arrayElemKind(t), sizes)
	a.TotalCount = int(total)
	a.Dims = int(dims)
	a.OuterSize = int(outer)
	d.heap.Adopt(a, int64(total))
	d.refs[freshID] = a

	switch t {
	case tagByteAry, tagCharAry:
		for i := range a.Bytes {
			b, err := d.r.ReadByte()
			if err != nil {
				return nil, err
			}
			a.Bytes[i] = b
		}
	case tagIntAry, tagFloatAry:
		for i := range a.AryWords {
			w, err := d.r.ReadInt64()
			if err != nil {
				return nil, err
			}
			a.AryWords[i] = uint64(w)
		}
	case tagObjAry:
		for i := range a.AryRefs {
			ref, err := d.decodeRef()
			if err != nil {
				return nil, err
			}
			a.AryRefs[i] = ref
		}
	}
	return a, nil
}
