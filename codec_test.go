package accumulate

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeValue(t *testing.T) {
	hash := bytes.Repeat([]byte{0xab}, HashSize)

	testCases := []struct {
		name     string
		codec    Codec
		value    any
		expected []byte
	}{
		{"int negative", CodecInt, int64(-1), []byte{0x01}},
		{"int zigzag", CodecInt, int64(64), []byte{0x80, 0x01}},
		{"uint", CodecUint, uint64(300), []byte{0xac, 0x02}},
		{"bool true", CodecBool, true, []byte{0x01}},
		{"bool false", CodecBool, false, []byte{0x00}},
		{"string", CodecString, "hi", []byte{0x02, 'h', 'i'}},
		{"bytes", CodecBytes, []byte{1, 2}, []byte{0x02, 0x01, 0x02}},
		{"hash", CodecHash, hash, hash},
		{"url", CodecURL, MustParseURL("acc://foo"), append([]byte{0x09}, "acc://foo"...)},
		{"txid", CodecTxID, &TxID{Hash: HexBytes{0xab, 0xcd}, Account: MustParseURL("acc://foo/bar")}, append([]byte{0x12}, "acc://abcd@foo/bar"...)},
		{"time", CodecTime, time.Unix(1000, 0), []byte{0xe8, 0x07}},
		{"zero time", CodecTime, time.Time{}, []byte{0x00}},
		{"bigint", CodecBigInt, big.NewInt(256), []byte{0x02, 0x01, 0x00}},
		{"enum", CodecEnum, VoteTypeReject, []byte{0x01}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			err := encodeValue(DefaultEncoder(), tc.codec, tc.value, buf)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, buf.Bytes())
		})
	}
}

func TestEncodeValue_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		codec Codec
		value any
		err   error
	}{
		{"duration", CodecDuration, time.Second, ErrUnsupportedCodec},
		{"float", CodecFloat, 1.5, ErrUnsupportedCodec},
		{"short hash", CodecHash, make([]byte, 31), ErrInvalidHashLength},
		{"negative bigint", CodecBigInt, big.NewInt(-1), ErrFieldTypeMismatch},
		{"pre-epoch time", CodecTime, time.Unix(-1, 0), ErrFieldTypeMismatch},
		{"txid as url", CodecTxID, MustParseURL("acc://foo"), ErrFieldTypeMismatch},
		{"wrong type", CodecUint, "1", ErrFieldTypeMismatch},
		{"unregistered union", CodecUnion, struct{}{}, ErrSchemaNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := encodeValue(DefaultEncoder(), tc.codec, tc.value, new(bytes.Buffer))
			assert.True(t, errors.Is(err, tc.err), "expected %v, got %+v", tc.err, err)
		})
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, isEmpty(CodecHash, make([]byte, HashSize)), "all zero hash is empty")
	assert.False(t, isEmpty(CodecHash, append(make([]byte, HashSize-1), 1)))
	assert.True(t, isEmpty(CodecUint, uint64(0)))
	assert.True(t, isEmpty(CodecString, ""))
	assert.True(t, isEmpty(CodecBytes, []byte{}))
	assert.True(t, isEmpty(CodecURL, (*URL)(nil)))
	assert.True(t, isEmpty(CodecBigInt, new(big.Int)))
	assert.True(t, isEmpty(CodecTime, time.Time{}))
	assert.True(t, isEmpty(CodecUnion, nil))
	assert.True(t, isEmpty(CodecTxID, (*TxID)(nil)))
	assert.False(t, isEmpty(CodecBool, true))
	assert.False(t, isEmpty(CodecBytes, []byte{0}), "a zero byte is still content")
}
