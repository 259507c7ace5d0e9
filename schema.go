package accumulate

import (
	"math/big"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// FieldDescriptor describes one encodable field. Descriptors are built with
// the typed constructors below and never inspect struct tags.
type FieldDescriptor struct {
	Number     uint
	Major      uint
	Name       string
	Codec      Codec
	Repeatable bool
	KeepEmpty  bool

	// Fields holds the members of an embedded group, ordered by number.
	Fields []FieldDescriptor

	get    func(v any) (any, error)
	getAll func(v any) ([]any, error)
}

type FieldOption func(f *FieldDescriptor)

// KeepEmpty forces the field to be written even when it holds its zero value.
func KeepEmpty(f *FieldDescriptor) {
	f.KeepEmpty = true
}

// Within places the field in the embedded group identified by major. The
// field's own number becomes its minor number inside that group.
func Within(major uint) FieldOption {
	return func(f *FieldDescriptor) {
		f.Major = major
	}
}

func accessor[T, V any](name string, get func(T) V) func(v any) (any, error) {
	return func(v any) (any, error) {
		typed, ok := v.(T)
		if !ok {
			return nil, errors.Wrapf(ErrFieldTypeMismatch, "field %s cannot read from %T", name, v)
		}
		return get(typed), nil
	}
}

func newField[T, V any](number uint, name string, codec Codec, get func(T) V, opts []FieldOption) FieldDescriptor {
	f := FieldDescriptor{
		Number: number,
		Name:   name,
		Codec:  codec,
		get:    accessor(name, get),
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func Int[T any](number uint, name string, get func(T) int64, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecInt, get, opts)
}

func Uint[T any](number uint, name string, get func(T) uint64, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecUint, get, opts)
}

func Bool[T any](number uint, name string, get func(T) bool, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecBool, get, opts)
}

func String[T any](number uint, name string, get func(T) string, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecString, get, opts)
}

func Bytes[T any](number uint, name string, get func(T) []byte, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecBytes, get, opts)
}

func Hash[T any](number uint, name string, get func(T) []byte, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecHash, get, opts)
}

func URLField[T any](number uint, name string, get func(T) *URL, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecURL, get, opts)
}

func TxIDField[T any](number uint, name string, get func(T) *TxID, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecTxID, get, opts)
}

func Time[T any](number uint, name string, get func(T) time.Time, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecTime, get, opts)
}

func BigInt[T any](number uint, name string, get func(T) *big.Int, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecBigInt, get, opts)
}

func Enum[T any, E EnumValue](number uint, name string, get func(T) E, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecEnum, func(v T) uint64 { return get(v).GetEnumValue() }, opts)
}

// Union fields hold one member of a tagged family. The accessor must return a
// nil interface when the field is unset.
func Union[T any](number uint, name string, get func(T) any, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecUnion, get, opts)
}

func Reference[T any](number uint, name string, get func(T) any, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecReference, get, opts)
}

func Duration[T any](number uint, name string, get func(T) time.Duration, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecDuration, get, opts)
}

func Float[T any](number uint, name string, get func(T) float64, opts ...FieldOption) FieldDescriptor {
	return newField(number, name, CodecFloat, get, opts)
}

// Repeated describes a field written once per element, in slice order.
func Repeated[T, E any](number uint, name string, codec Codec, get func(T) []E, opts ...FieldOption) FieldDescriptor {
	f := FieldDescriptor{
		Number:     number,
		Name:       name,
		Codec:      codec,
		Repeatable: true,
		getAll: func(v any) ([]any, error) {
			typed, ok := v.(T)
			if !ok {
				return nil, errors.Wrapf(ErrFieldTypeMismatch, "field %s cannot read from %T", name, v)
			}
			elements := get(typed)
			values := make([]any, 0, len(elements))
			for _, el := range elements {
				values = append(values, normalizeElement(el))
			}
			return values, nil
		},
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// normalizeElement converts named slice and interface element types into the
// plain values the codecs switch on.
func normalizeElement(el any) any {
	switch value := el.(type) {
	case HexBytes:
		return []byte(value)
	}
	return el
}

// Schema is the ordered field table of one encodable type.
type Schema struct {
	Name   string
	fields []FieldDescriptor
	match  func(v any) bool
	probe  any
}

// NewSchema builds the field table for values of type T, normally a pointer.
// A value equal to the zero T, such as a typed nil pointer, cannot be encoded.
// Fields declared Within a major number are collected into one embedded group
// ordered by minor number. Duplicate numbers are a programming error and panic.
func NewSchema[T comparable](name string, fields ...FieldDescriptor) *Schema {
	groups := map[uint]*FieldDescriptor{}
	var top []FieldDescriptor

	for _, f := range fields {
		if f.Major == 0 {
			top = append(top, f)
			continue
		}
		group, ok := groups[f.Major]
		if !ok {
			group = &FieldDescriptor{Number: f.Major, Codec: CodecEmbedded}
			groups[f.Major] = group
		}
		member := f
		member.Major = 0
		group.Fields = append(group.Fields, member)
	}

	for _, group := range groups {
		sortFields(name, group.Fields)
		top = append(top, *group)
	}
	sortFields(name, top)

	return &Schema{
		Name:   name,
		fields: top,
		match: func(v any) bool {
			_, ok := v.(T)
			return ok
		},
		probe: *new(T),
	}
}

func sortFields(schema string, fields []FieldDescriptor) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Number < fields[j].Number
	})
	for i := 1; i < len(fields); i++ {
		if fields[i].Number == fields[i-1].Number {
			panic(errors.Errorf("schema %s: duplicate field number %d", schema, fields[i].Number))
		}
	}
	for _, f := range fields {
		if f.Number == 0 {
			panic(errors.Errorf("schema %s: field %s has no number", schema, f.Name))
		}
	}
}

// Registry maps runtime types to their schema. It is written during
// construction and read-only after the first lookup.
type Registry struct {
	mu      sync.Mutex
	sealed  atomic.Bool
	schemas []*Schema
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(schema *Schema) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return errors.Wrapf(ErrRegistrySealed, "cannot register %s", schema.Name)
	}

	for _, existing := range r.schemas {
		if existing.Name == schema.Name || (schema.probe != nil && existing.match(schema.probe)) {
			return errors.Wrapf(ErrSchemaExists, "%s", schema.Name)
		}
	}

	r.schemas = append(r.schemas, schema)
	return
}

func (r *Registry) MustRegister(schemas ...*Schema) {
	for _, schema := range schemas {
		if err := r.Register(schema); err != nil {
			panic(err)
		}
	}
}

// Seal stops further registration. Lookup seals implicitly.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed.Store(true)
	r.mu.Unlock()
}

func (r *Registry) Lookup(v any) (schema *Schema, err error) {
	if !r.sealed.Load() {
		r.Seal()
	}

	for _, s := range r.schemas {
		if s.match(v) {
			return s, nil
		}
	}

	return nil, errors.Wrapf(ErrSchemaNotFound, "no schema registered for %T", v)
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.schemas)
}
