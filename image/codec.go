// Package image implements the bytecode image codec: little-endian
// primitive encoding/decoding and the zlib envelope every .obe/.obl
// file is wrapped in. It owns no knowledge of classes or instructions —
// package program builds the program model on top of these primitives.
package image

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// ErrInvalid is returned for truncated input, decompression failure, or
// a malformed length prefix anywhere in the image.
var ErrInvalid = errors.New("image: invalid or truncated image")

// Writer accumulates a bytecode image body. The zlib envelope is applied
// by Bytes, once writing is complete, wrapping a single bufio.Writer
// around the whole output stream.
type Writer struct {
	buf *bufio.Writer
	out *bytes.Buffer
}

// NewWriter returns a Writer ready to accept primitives in on-disk order.
func NewWriter() *Writer {
	out := &bytes.Buffer{}
	return &Writer{buf: bufio.NewWriter(out), out: out}
}

func (w *Writer) WriteByte(b byte) error {
	return w.buf.WriteByte(b)
}

func (w *Writer) WriteInt32(v int32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	_, err := w.buf.Write(tmp[:])
	return err
}

func (w *Writer) WriteUint32(v uint32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	_, err := w.buf.Write(tmp[:])
	return err
}

func (w *Writer) WriteInt64(v int64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	_, err := w.buf.Write(tmp[:])
	return err
}

func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteInt64(int64(math.Float64bits(v)))
}

// WriteUTF16 writes a single UTF-16 code unit widened to 32 bits, the
// on-wire width every primitive in this format uses.
func (w *Writer) WriteUTF16(v uint16) error {
	return w.WriteUint32(uint32(v))
}

// WriteString writes a signed 32-bit byte count followed by the UTF-8
// payload decoded from s.
func (w *Writer) WriteString(s string) error {
	b := []byte(s)
	if err := w.WriteInt32(int32(len(b))); err != nil {
		return err
	}
	_, err := w.buf.Write(b)
	return err
}

// RawBytes flushes the writer and returns the accumulated body without
// the zlib envelope — used by package objser, which applies this same
// primitive codec to serialized object graphs but frames them with its
// own tag+sharing-id grammar instead of the whole-image zlib wrapper.
func (w *Writer) RawBytes() ([]byte, error) {
	if err := w.buf.Flush(); err != nil {
		return nil, err
	}
	out := make([]byte, w.out.Len())
	copy(out, w.out.Bytes())
	return out, nil
}

// Bytes flushes the writer and zlib-deflates the accumulated body,
// returning the final on-disk image contents.
func (w *Writer) Bytes() ([]byte, error) {
	if err := w.buf.Flush(); err != nil {
		return nil, err
	}

	compressed := &bytes.Buffer{}
	zw := zlib.NewWriter(compressed)
	if _, err := zw.Write(w.out.Bytes()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return compressed.Bytes(), nil
}

// Reader decodes little-endian primitives from an already-decompressed
// image body.
type Reader struct {
	buf *bufio.Reader
}

// NewReader wraps a decompressed image body for primitive decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{buf: bufio.NewReader(r)}
}

func (r *Reader) ReadByte() (byte, error) {
	b, err := r.buf.ReadByte()
	if err != nil {
		return 0, ErrInvalid
	}
	return b, nil
}

func (r *Reader) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.buf, buf); err != nil {
		return nil, ErrInvalid
	}
	return buf, nil
}

func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadInt64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(v)), nil
}

func (r *Reader) ReadUTF16() (uint16, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// ReadString reads a signed 32-bit byte count followed by that many
// UTF-8 bytes, decoded to a Go string (Go strings are already UTF-8, so
// no wide-character transcode is needed here — it happens at the
// CHAR_ARY boundary in package trap instead).
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrInvalid
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Open memory-maps path and returns a Reader over its zlib-inflated
// contents. Mirrors saferwall-pe's File.Open: mmap first, fall back to
// a plain read when mmap is unavailable (e.g. a zero-length file or an
// unsupported filesystem).
func Open(path string) (*Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	var body []byte
	m, mmapErr := mmap.Map(f, mmap.RDONLY, 0)
	closer := func() error { return f.Close() }
	if mmapErr == nil && len(m) > 0 {
		body = []byte(m)
		closer = func() error {
			m.Unmap()
			return f.Close()
		}
	} else {
		data, readErr := io.ReadAll(f)
		if readErr != nil {
			f.Close()
			return nil, nil, readErr
		}
		body = data
	}

	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		closer()
		return nil, nil, ErrInvalid
	}

	return NewReader(zr), closer, nil
}

// Write deflates the writer's accumulated body and writes it to path
// with os.WriteFile (not atomically: a failed write can leave a partial
// file).
func Write(path string, w *Writer) error {
	data, err := w.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
