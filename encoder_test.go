package accumulate

import (
	"bytes"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderedRecord struct {
	A uint64
	B string
	C bool
}

type groupedRecord struct {
	Top uint64
	X   uint64
	Y   string
}

type listRecord struct {
	Items [][]byte
	Child *orderedRecord
}

type keepRecord struct {
	Count uint64
	Hash  []byte
}

type durationRecord struct {
	D time.Duration
}

type causeRecord struct {
	Cause *TxID
	Note  string
}

func newTestEncoder(t *testing.T) *Encoder {
	t.Helper()

	r := NewRegistry()
	r.MustRegister(
		NewSchema[*orderedRecord]("orderedRecord",
			Bool(3, "c", func(r *orderedRecord) bool { return r.C }),
			Uint(1, "a", func(r *orderedRecord) uint64 { return r.A }),
			String(2, "b", func(r *orderedRecord) string { return r.B }),
		),
		NewSchema[*groupedRecord]("groupedRecord",
			Uint(1, "top", func(r *groupedRecord) uint64 { return r.Top }),
			String(2, "y", func(r *groupedRecord) string { return r.Y }, Within(5)),
			Uint(1, "x", func(r *groupedRecord) uint64 { return r.X }, Within(5)),
		),
		NewSchema[*listRecord]("listRecord",
			Repeated(1, "items", CodecBytes, func(r *listRecord) [][]byte { return r.Items }),
			Reference(2, "child", func(r *listRecord) any {
				if r.Child == nil {
					return nil
				}
				return r.Child
			}),
		),
		NewSchema[*keepRecord]("keepRecord",
			Uint(1, "count", func(r *keepRecord) uint64 { return r.Count }, KeepEmpty),
			Hash(2, "hash", func(r *keepRecord) []byte { return r.Hash }, KeepEmpty),
		),
		NewSchema[*durationRecord]("durationRecord",
			Duration(1, "d", func(r *durationRecord) time.Duration { return r.D }),
		),
		NewSchema[*causeRecord]("causeRecord",
			TxIDField(1, "cause", func(r *causeRecord) *TxID { return r.Cause }),
			String(2, "note", func(r *causeRecord) string { return r.Note }),
		),
	)
	return NewEncoder(r)
}

func TestEncoder_FieldOrder(t *testing.T) {
	enc := newTestEncoder(t)

	out, err := enc.Encode(&orderedRecord{A: 1, B: "x", C: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x01, 0x02, 0x01, 'x', 0x03, 0x01}, out)
}

func TestEncoder_OmitsEmptyFields(t *testing.T) {
	enc := newTestEncoder(t)

	out, err := enc.Encode(&orderedRecord{})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = enc.Encode(&orderedRecord{B: "x"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x01, 'x'}, out)
}

func TestEncoder_KeepEmpty(t *testing.T) {
	enc := newTestEncoder(t)

	out, err := enc.Encode(&keepRecord{})
	require.NoError(t, err)

	expected := append([]byte{0x01, 0x00, 0x02}, make([]byte, HashSize)...)
	assert.Equal(t, expected, out)
}

func TestEncoder_EmbeddedGroup(t *testing.T) {
	enc := newTestEncoder(t)

	out, err := enc.Encode(&groupedRecord{Top: 7, X: 9, Y: "z"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x07, 0x05, 0x05, 0x01, 0x09, 0x02, 0x01, 'z'}, out)

	out, err = enc.Encode(&groupedRecord{Top: 7})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x07}, out, "an empty group is omitted")
}

func TestEncoder_RepeatedAndNested(t *testing.T) {
	enc := newTestEncoder(t)

	out, err := enc.Encode(&listRecord{
		Items: [][]byte{{0xaa}, {0xbb, 0xcc}},
		Child: &orderedRecord{A: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x01, 0x01, 0xaa,
		0x01, 0x02, 0xbb, 0xcc,
		0x02, 0x02, 0x01, 0x02,
	}, out)
}

func TestEncoder_RepeatedSkipsEmptyElements(t *testing.T) {
	enc := newTestEncoder(t)

	out, err := enc.Encode(&listRecord{Items: [][]byte{{0xaa}, {}, nil, {0xbb}}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x01, 0xaa, 0x01, 0x01, 0xbb}, out)

	out, err = Encode(&CreateDataAccount{Url: MustParseURL("acc://a/data"), Authorities: []*URL{nil}})
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x01, 0x04, 0x02, 0x0c}, "acc://a/data"...), out, "a nil authority is not written")
}

func TestEncoder_TxID(t *testing.T) {
	enc := newTestEncoder(t)

	id := &TxID{Hash: HexBytes{0x01, 0x02}, Account: MustParseURL("acc://alice.acme/tokens")}

	out, err := enc.Encode(&causeRecord{Cause: id, Note: "x"})
	require.NoError(t, err)
	expected := append([]byte{0x01, 0x1c}, "acc://0102@alice.acme/tokens"...)
	expected = append(expected, 0x02, 0x01, 'x')
	assert.Equal(t, expected, out)

	out, err = enc.Encode(&causeRecord{Note: "x"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x01, 'x'}, out, "a nil txid is omitted")
}

func TestEncoder_NilPointers(t *testing.T) {
	testCases := []struct {
		name  string
		value any
	}{
		{"nil record", (*Transaction)(nil)},
		{"nil union member", &WriteData{Entry: (*DoubleHashDataEntry)(nil)}},
		{"nil repeated reference", &SendTokens{To: []*TokenRecipient{nil}}},
		{"nil delegated signature", &DelegatedSignature{Signature: (*ED25519Signature)(nil), Delegator: MustParseURL("acc://bob.acme/book/1")}},
		{"nil body", NewTransaction(MustParseURL("acc://a"), (*SendTokens)(nil))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out []byte
			var err error
			require.NotPanics(t, func() { out, err = Encode(tc.value) })
			assert.True(t, errors.Is(err, ErrFieldTypeMismatch), "%+v", err)
			assert.Nil(t, out)
		})
	}
}

func TestEncoder_Deterministic(t *testing.T) {
	enc := newTestEncoder(t)

	a, err := enc.Encode(&orderedRecord{A: 5, B: "same", C: true})
	require.NoError(t, err)
	b, err := enc.Encode(&orderedRecord{A: 5, B: "same", C: true})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncoder_Errors(t *testing.T) {
	enc := newTestEncoder(t)

	out, err := enc.Encode(&struct{ A int }{})
	assert.True(t, errors.Is(err, ErrSchemaNotFound), "%+v", err)
	assert.Nil(t, out)

	out, err = enc.Encode(&durationRecord{D: time.Second})
	assert.True(t, errors.Is(err, ErrUnsupportedCodec), "%+v", err)
	assert.Nil(t, out)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewSchema[*orderedRecord]("orderedRecord")))

	err := r.Register(NewSchema[*orderedRecord]("orderedRecordAgain"))
	assert.True(t, errors.Is(err, ErrSchemaExists), "%+v", err)

	_, err = r.Lookup(&orderedRecord{})
	require.NoError(t, err)

	err = r.Register(NewSchema[*groupedRecord]("groupedRecord"))
	assert.True(t, errors.Is(err, ErrRegistrySealed), "%+v", err)

	assert.Panics(t, func() {
		NewSchema[*orderedRecord]("duplicate",
			Uint(1, "a", func(r *orderedRecord) uint64 { return r.A }),
			String(1, "b", func(r *orderedRecord) string { return r.B }),
		)
	})
}

func TestCatalogue_WriteData(t *testing.T) {
	tx := NewTransaction(MustParseURL("acc://alice.acme/data"), &WriteData{
		Entry: &DoubleHashDataEntry{Data: []HexBytes{[]byte("hi")}},
	})

	body, err := Encode(tx.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x05, 0x02, 0x06, 0x01, 0x03, 0x02, 0x02, 'h', 'i'}, body)

	header, err := Encode(&tx.Header)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x01, 0x15}, "acc://alice.acme/data"...), header)

	encoded, err := Encode(tx)
	require.NoError(t, err)
	expected := append([]byte{0x01, byte(len(header))}, header...)
	expected = append(expected, 0x02, byte(len(body)))
	expected = append(expected, body...)
	assert.Equal(t, expected, encoded)

	hash, err := tx.Hash()
	require.NoError(t, err)
	assert.Equal(t, Sha256(Sha256(header), Sha256(body)), hash)
}

func TestCatalogue_HeaderExpireGroup(t *testing.T) {
	header := &TransactionHeader{
		Principal: MustParseURL("acc://a"),
		Expire:    &ExpireOptions{AtTime: time.Unix(1000, 0)},
	}

	out, err := Encode(header)
	require.NoError(t, err)

	expected := append([]byte{0x01, 0x07}, "acc://a"...)
	expected = append(expected, 0x05, 0x03, 0x01, 0xe8, 0x07)
	assert.Equal(t, expected, out)
}

func TestCatalogue_Envelope(t *testing.T) {
	tx := NewTransaction(MustParseURL("acc://a"), &CreateDataAccount{Url: MustParseURL("acc://a/data")})
	sig := &ED25519Signature{Signer: MustParseURL("acc://a/book/1"), Timestamp: 1}

	out, err := Encode(&Envelope{
		Signatures:  []Signature{sig},
		Transaction: []*Transaction{tx},
	})
	require.NoError(t, err)

	encodedSig, err := Encode(sig)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, append([]byte{0x01, byte(len(encodedSig))}, encodedSig...)))
}
