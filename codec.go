package accumulate

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Codec identifies the wire encoding used for a field value.
type Codec uint8

const (
	CodecInt Codec = iota + 1
	CodecUint
	CodecBool
	CodecString
	CodecBytes
	CodecHash
	CodecURL
	CodecTxID
	CodecTime
	CodecBigInt
	CodecEnum
	CodecUnion
	CodecReference
	CodecEmbedded
	CodecDuration
	CodecFloat
)

var codecNames = map[Codec]string{
	CodecInt:       "int",
	CodecUint:      "uint",
	CodecBool:      "bool",
	CodecString:    "string",
	CodecBytes:     "bytes",
	CodecHash:      "hash",
	CodecURL:       "url",
	CodecTxID:      "txid",
	CodecTime:      "time",
	CodecBigInt:    "bigint",
	CodecEnum:      "enum",
	CodecUnion:     "union",
	CodecReference: "reference",
	CodecEmbedded:  "embedded",
	CodecDuration:  "duration",
	CodecFloat:     "float",
}

func (c Codec) String() string {
	if name, ok := codecNames[c]; ok {
		return name
	}
	return "codec(" + strconv.Itoa(int(c)) + ")"
}

// Supported reports whether values of this codec can be written canonically.
func (c Codec) Supported() bool {
	return c != CodecDuration && c != CodecFloat
}

const HashSize = 32

// EnumValue is implemented by enumerations so the encoder can write their
// ordinal without knowing the concrete type.
type EnumValue interface {
	GetEnumValue() uint64
}

// RecursiveEncoder encodes a nested registered value. Composite codecs receive
// it explicitly rather than reaching for a package level encoder.
type RecursiveEncoder interface {
	Encode(v any) ([]byte, error)
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	buf.Write(binary.AppendUvarint(nil, v))
}

func writeVarint(buf *bytes.Buffer, v int64) {
	buf.Write(binary.AppendVarint(nil, v))
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func isZeroHash(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// isEmpty applies the omission rule: hashes are empty when all zero, every
// other kind is empty when it holds its zero value.
func isEmpty(c Codec, v any) bool {
	if v == nil {
		return true
	}
	switch c {
	case CodecHash:
		b, ok := v.([]byte)
		return ok && isZeroHash(b)
	case CodecBigInt:
		n, ok := v.(*big.Int)
		return ok && (n == nil || n.Sign() == 0)
	}

	switch value := v.(type) {
	case uint64:
		return value == 0
	case int64:
		return value == 0
	case bool:
		return !value
	case string:
		return value == ""
	case []byte:
		return len(value) == 0
	case *URL:
		return value == nil
	case *TxID:
		return value == nil
	case time.Time:
		return value.IsZero()
	case EnumValue:
		return value.GetEnumValue() == 0
	case time.Duration:
		return value == 0
	case float64:
		return value == 0
	}
	return false
}

func mismatch(c Codec, v any) error {
	return errors.Wrapf(ErrFieldTypeMismatch, "%s codec cannot encode %T", c, v)
}

// encodeValue writes the body of a single field value, without its field number.
func encodeValue(enc RecursiveEncoder, c Codec, v any, buf *bytes.Buffer) (err error) {
	switch c {
	case CodecInt:
		n, ok := v.(int64)
		if !ok {
			return mismatch(c, v)
		}
		writeVarint(buf, n)

	case CodecUint, CodecEnum:
		switch n := v.(type) {
		case uint64:
			writeUvarint(buf, n)
		case EnumValue:
			writeUvarint(buf, n.GetEnumValue())
		case nil:
			writeUvarint(buf, 0)
		default:
			return mismatch(c, v)
		}

	case CodecBool:
		b, ok := v.(bool)
		if !ok {
			return mismatch(c, v)
		}
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case CodecString:
		s, ok := v.(string)
		if !ok {
			return mismatch(c, v)
		}
		writeBytes(buf, []byte(s))

	case CodecBytes:
		b, ok := v.([]byte)
		if !ok && v != nil {
			return mismatch(c, v)
		}
		writeBytes(buf, b)

	case CodecHash:
		b, ok := v.([]byte)
		if !ok && v != nil {
			return mismatch(c, v)
		}
		if len(b) == 0 {
			b = make([]byte, HashSize)
		}
		if len(b) != HashSize {
			return errors.Wrapf(ErrInvalidHashLength, "expected %d bytes, got %d", HashSize, len(b))
		}
		buf.Write(b)

	case CodecURL:
		u, ok := v.(*URL)
		if !ok && v != nil {
			return mismatch(c, v)
		}
		writeBytes(buf, []byte(u.String()))

	case CodecTxID:
		id, ok := v.(*TxID)
		if !ok && v != nil {
			return mismatch(c, v)
		}
		writeBytes(buf, []byte(id.String()))

	case CodecTime:
		t, ok := v.(time.Time)
		if !ok {
			return mismatch(c, v)
		}
		var seconds uint64
		if !t.IsZero() {
			if t.Unix() < 0 {
				return errors.Wrapf(ErrFieldTypeMismatch, "time codec cannot encode %s, it is before the unix epoch", t.UTC().Format(time.RFC3339))
			}
			seconds = uint64(t.Unix())
		}
		writeUvarint(buf, seconds)

	case CodecBigInt:
		n, ok := v.(*big.Int)
		if !ok && v != nil {
			return mismatch(c, v)
		}
		if n == nil {
			n = new(big.Int)
		}
		if n.Sign() < 0 {
			return errors.Wrapf(ErrFieldTypeMismatch, "bigint codec cannot encode negative value %s", n)
		}
		writeBytes(buf, n.Bytes())

	case CodecUnion, CodecReference:
		if v == nil {
			writeBytes(buf, nil)
			return
		}
		nested, err2 := enc.Encode(v)
		if err2 != nil {
			return err2
		}
		writeBytes(buf, nested)

	case CodecDuration, CodecFloat:
		return errors.Wrapf(ErrUnsupportedCodec, "%s values have no canonical encoding", c)

	default:
		return errors.Wrapf(ErrUnsupportedCodec, "unknown codec %d", uint8(c))
	}

	return
}
