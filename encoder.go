package accumulate

import (
	"bytes"

	"github.com/pkg/errors"
)

// Encoder produces the canonical binary form of registered values.
type Encoder struct {
	registry *Registry
}

var _ RecursiveEncoder = &Encoder{}

func NewEncoder(registry *Registry) *Encoder {
	return &Encoder{registry: registry}
}

var defaultEncoder = NewEncoder(DefaultRegistry())

// DefaultEncoder returns the encoder bound to the protocol catalogue.
func DefaultEncoder() *Encoder {
	return defaultEncoder
}

// Encode encodes v with the default encoder.
func Encode(v any) ([]byte, error) {
	return defaultEncoder.Encode(v)
}

// Encode writes every non-empty field of v in ascending field number order.
// Any failure discards the partial output.
func (e *Encoder) Encode(v any) (out []byte, err error) {
	schema, err := e.registry.Lookup(v)
	if err != nil {
		return
	}
	if v == schema.probe {
		return nil, errors.Wrapf(ErrFieldTypeMismatch, "nil %s", schema.Name)
	}

	buf := new(bytes.Buffer)
	if err = e.encodeFields(schema, v, schema.fields, buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (e *Encoder) encodeFields(schema *Schema, v any, fields []FieldDescriptor, buf *bytes.Buffer) (err error) {
	for _, f := range fields {
		if !f.Codec.Supported() {
			return errors.Wrapf(ErrUnsupportedCodec, "%s.%s uses %s", schema.Name, f.Name, f.Codec)
		}

		switch {
		case f.Codec == CodecEmbedded:
			// embedded members read from the enclosing value
			inner := new(bytes.Buffer)
			if err = e.encodeFields(schema, v, f.Fields, inner); err != nil {
				return
			}
			if inner.Len() == 0 && !f.KeepEmpty {
				continue
			}
			writeUvarint(buf, uint64(f.Number))
			writeBytes(buf, inner.Bytes())

		case f.Repeatable:
			var values []any
			values, err = f.getAll(v)
			if err != nil {
				return
			}
			for _, value := range values {
				if !f.KeepEmpty && isEmpty(f.Codec, value) {
					continue
				}
				writeUvarint(buf, uint64(f.Number))
				if err = encodeValue(e, f.Codec, value, buf); err != nil {
					return errors.Wrapf(err, "%s.%s", schema.Name, f.Name)
				}
			}

		default:
			var value any
			value, err = f.get(v)
			if err != nil {
				return
			}
			if !f.KeepEmpty && isEmpty(f.Codec, value) {
				continue
			}
			writeUvarint(buf, uint64(f.Number))
			if err = encodeValue(e, f.Codec, value, buf); err != nil {
				return errors.Wrapf(err, "%s.%s", schema.Name, f.Name)
			}
		}
	}

	return
}
