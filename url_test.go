package accumulate

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"acc://alice.acme", "acc://alice.acme"},
		{"ACC://alice.acme/book/1", "acc://alice.acme/book/1"},
		{"alice.acme/tokens/", "acc://alice.acme/tokens"},
		{"  acc://alice.acme//data  ", "acc://alice.acme/data"},
	}

	for _, tc := range testCases {
		u, err := ParseURL(tc.input)
		if err != nil {
			t.Fatalf("failed to parse '%s': %+v", tc.input, err)
		}
		assert.Equal(t, tc.expected, u.String())
	}

	for _, bad := range []string{"", "acc://", "http://alice.acme", "acc:///path", "acc://ali ce"} {
		_, err := ParseURL(bad)
		assert.True(t, errors.Is(err, ErrInvalidURL), "expected invalid url for '%s', got %+v", bad, err)
	}
}

func TestURL_Helpers(t *testing.T) {
	u := MustParseURL("acc://alice.acme/book")

	assert.Equal(t, "acc://alice.acme/book/1", u.JoinPath("1").String())
	assert.Equal(t, "acc://alice.acme/book", u.String(), "JoinPath does not modify the receiver")
	assert.Equal(t, "acc://alice.acme", u.RootIdentity().String())
	assert.True(t, u.Equal(MustParseURL("acc://ALICE.acme/Book")))
	assert.False(t, u.Equal(nil))
	assert.Equal(t, "", (*URL)(nil).String())

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Equal(t, `"acc://alice.acme/book"`, string(data))

	decoded := new(URL)
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.True(t, u.Equal(decoded))
}

func TestParseTxID(t *testing.T) {
	hash := bytes.Repeat([]byte{0xcd}, HashSize)
	s := "acc://" + hex.EncodeToString(hash) + "@alice.acme/data"

	id, err := ParseTxID(s)
	require.NoError(t, err)
	assert.Equal(t, hash, []byte(id.Hash))
	assert.Equal(t, "acc://alice.acme/data", id.Account.String())
	assert.Equal(t, s, id.String())

	_, err = ParseTxID("acc://alice.acme/data")
	assert.True(t, errors.Is(err, ErrInvalidURL), "%+v", err)

	_, err = ParseTxID("acc://abcd@alice.acme")
	assert.True(t, errors.Is(err, ErrInvalidURL), "%+v", err)
}

func TestLiteIdentityURL(t *testing.T) {
	pub := testSigner(t).PublicKey()

	u, err := LiteIdentityURL(pub)
	require.NoError(t, err)
	assert.Empty(t, u.Path)
	require.Len(t, u.Authority, 48)

	keyHash := sha256.Sum256(pub)
	assert.True(t, strings.HasPrefix(u.Authority, hex.EncodeToString(keyHash[:20])))

	checksum := sha256.Sum256([]byte(u.Authority[:40]))
	assert.Equal(t, hex.EncodeToString(checksum[28:]), u.Authority[40:])

	tokens, err := LiteTokenAccountURL(pub, MustParseURL("acc://ACME"))
	require.NoError(t, err)
	assert.Equal(t, u.String()+"/ACME", tokens.String())

	_, err = LiteIdentityURL(pub[:31])
	assert.True(t, errors.Is(err, ErrInvalidPublicKey), "%+v", err)
}
