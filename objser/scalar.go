package objser

import (
	"bytes"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/image"
)

// EncodeInt/EncodeFloat/EncodeChar and their Decode counterparts back
// SERL_INT/SERL_FLOAT/SERL_CHAR and their DESERL_* counterparts — plain
// scalars carry no sharing id, since nothing downstream can alias a
// bare int/float/char value.

func EncodeInt(v int64) ([]byte, error) {
	w := image.NewWriter()
	if err := w.WriteInt64(v); err != nil {
		return nil, err
	}
	return w.RawBytes()
}

func DecodeInt(data []byte) (int64, error) {
	return image.NewReader(bytes.NewReader(data)).ReadInt64()
}

func EncodeFloat(v float64) ([]byte, error) {
	w := image.NewWriter()
	if err := w.WriteFloat64(v); err != nil {
		return nil, err
	}
	return w.RawBytes()
}

func DecodeFloat(data []byte) (float64, error) {
	return image.NewReader(bytes.NewReader(data)).ReadFloat64()
}

func EncodeChar(v int32) ([]byte, error) {
	w := image.NewWriter()
	if err := w.WriteInt32(v); err != nil {
		return nil, err
	}
	return w.RawBytes()
}

func DecodeChar(data []byte) (int32, error) {
	return image.NewReader(bytes.NewReader(data)).ReadInt32()
}
