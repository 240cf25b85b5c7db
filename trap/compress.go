package trap

import (
	"bytes"
	"compress/zlib"
	"hash/crc32"
	"io"
)

// registerCompress wires COMPRESS_BYTES/UNCOMPRESS_BYTES/CRC32_BYTES,
// reusing the same compress/zlib envelope package image already
// applies to whole program images, now exposed to bytecode as an
// on-demand trap.
func registerCompress(t Table) {
	t[CompressBytes] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil {
			return ctx.PushRef(nil)
		}
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, werr := zw.Write(ref.Bytes); werr != nil {
			zw.Close()
			return ctx.PushRef(nil)
		}
		zw.Close()
		return ctx.PushRef(stringToCharArray(ctx, buf.String()))
	}
	t[UncompressBytes] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil {
			return ctx.PushRef(nil)
		}
		zr, zerr := zlib.NewReader(bytes.NewReader(ref.Bytes))
		if zerr != nil {
			return ctx.PushRef(nil)
		}
		defer zr.Close()
		out, rerr := io.ReadAll(zr)
		if rerr != nil {
			return ctx.PushRef(nil)
		}
		return ctx.PushRef(stringToCharArray(ctx, string(out)))
	}
	t[CRC32Bytes] = func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		if ref == nil {
			return ctx.PushInt(0)
		}
		return ctx.PushInt(int64(crc32.ChecksumIEEE(ref.Bytes)))
	}
}
