package wire

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/danmuck/gridlink/internal/protocol/value"
)

// Marshal encodes v. Int values use fixint or signed formats and Uint values
// always use unsigned formats, so Decode(Marshal(v)) keeps the kind.
func Marshal(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encodeValue(enc, &buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes v to w with a single Write call.
func Encode(w io.Writer, v value.Value) error {
	b, err := Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func encodeValue(enc *msgpack.Encoder, buf *bytes.Buffer, v value.Value) error {
	switch v.Kind() {
	case value.KindNil:
		return enc.EncodeNil()
	case value.KindBool:
		b, _ := v.AsBool()
		return enc.EncodeBool(b)
	case value.KindInt:
		i, _ := v.AsInt()
		return encodeInt(enc, i)
	case value.KindUint:
		u, _ := v.AsUint()
		return encodeUint(enc, u)
	case value.KindFloat:
		f, _ := v.AsFloat()
		return enc.EncodeFloat64(f)
	case value.KindString:
		s, _ := v.AsString()
		return enc.EncodeString(s)
	case value.KindBytes:
		b, _ := v.AsBytes()
		return enc.EncodeBytes(b)
	case value.KindArray:
		items, _ := v.AsArray()
		if err := enc.EncodeArrayLen(len(items)); err != nil {
			return err
		}
		for _, item := range items {
			if err := encodeValue(enc, buf, item); err != nil {
				return err
			}
		}
		return nil
	case value.KindMap:
		entries, _ := v.AsMap()
		if err := enc.EncodeMapLen(len(entries)); err != nil {
			return err
		}
		for _, e := range entries {
			if err := enc.EncodeString(e.Key); err != nil {
				return err
			}
			if err := encodeValue(enc, buf, e.Value); err != nil {
				return err
			}
		}
		return nil
	case value.KindExt:
		typ, data, _ := v.Ext()
		if err := enc.EncodeExtHeader(typ, len(data)); err != nil {
			return err
		}
		_, err := buf.Write(data)
		return err
	default:
		return fmt.Errorf("wire: cannot encode kind %s", v.Kind())
	}
}

func encodeInt(enc *msgpack.Encoder, i int64) error {
	switch {
	case i >= -32 && i <= math.MaxInt8:
		// Compact form is fixint for this range, which decodes back to Int.
		return enc.EncodeInt(i)
	case i < 0:
		return enc.EncodeInt(i)
	case i <= math.MaxInt16:
		return enc.EncodeInt16(int16(i))
	case i <= math.MaxInt32:
		return enc.EncodeInt32(int32(i))
	default:
		return enc.EncodeInt64(i)
	}
}

func encodeUint(enc *msgpack.Encoder, u uint64) error {
	switch {
	case u <= math.MaxUint8:
		return enc.EncodeUint8(uint8(u))
	case u <= math.MaxUint16:
		return enc.EncodeUint16(uint16(u))
	case u <= math.MaxUint32:
		return enc.EncodeUint32(uint32(u))
	default:
		return enc.EncodeUint64(u)
	}
}
