package accumulate

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

const urlScheme = "acc://"

// URL is an Accumulate account address of the form acc://authority/path.
type URL struct {
	Authority string
	Path      string
}

func ParseURL(s string) (u *URL, err error) {
	raw := strings.TrimSpace(s)
	if len(raw) >= len(urlScheme) && strings.EqualFold(raw[:len(urlScheme)], urlScheme) {
		raw = raw[len(urlScheme):]
	} else if strings.Contains(raw, "://") {
		err = errors.Wrapf(ErrInvalidURL, "unsupported scheme in '%s'", s)
		return
	}

	authority, path, _ := strings.Cut(raw, "/")
	if authority == "" || strings.ContainsAny(authority, " \t\r\n") {
		err = errors.Wrapf(ErrInvalidURL, "missing or malformed authority in '%s'", s)
		return
	}

	u = &URL{Authority: authority}
	if path = strings.Trim(path, "/"); path != "" {
		u.Path = "/" + path
	}
	return
}

func MustParseURL(s string) *URL {
	u, err := ParseURL(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (u *URL) String() string {
	if u == nil {
		return ""
	}
	return urlScheme + u.Authority + u.Path
}

// JoinPath returns a copy of u with the segments appended to its path.
func (u *URL) JoinPath(segments ...string) *URL {
	joined := &URL{Authority: u.Authority, Path: u.Path}
	for _, segment := range segments {
		segment = strings.Trim(segment, "/")
		if segment != "" {
			joined.Path += "/" + segment
		}
	}
	return joined
}

// RootIdentity drops the path.
func (u *URL) RootIdentity() *URL {
	return &URL{Authority: u.Authority}
}

// Equal compares case-insensitively, as the network does.
func (u *URL) Equal(other *URL) bool {
	if u == nil || other == nil {
		return u == other
	}
	return strings.EqualFold(u.String(), other.String())
}

func (u *URL) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *URL) UnmarshalJSON(data []byte) (err error) {
	var s string
	if err = json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	parsed, err := ParseURL(s)
	if err != nil {
		return
	}
	*u = *parsed
	return
}

// TxID identifies a transaction by hash within the scope of an account:
// acc://<hash>@authority/path.
type TxID struct {
	Hash    HexBytes
	Account *URL
}

func ParseTxID(s string) (id *TxID, err error) {
	u, err := ParseURL(s)
	if err != nil {
		return
	}

	hashHex, authority, ok := strings.Cut(u.Authority, "@")
	if !ok {
		err = errors.Wrapf(ErrInvalidURL, "'%s' is not a transaction id", s)
		return
	}

	hash, err := ParseHexBytes(hashHex)
	if err != nil || len(hash) != HashSize {
		err = errors.Wrapf(ErrInvalidURL, "'%s' has a malformed transaction hash", s)
		return
	}

	id = &TxID{
		Hash:    hash,
		Account: &URL{Authority: authority, Path: u.Path},
	}
	return
}

func (id *TxID) String() string {
	if id == nil || id.Account == nil {
		return ""
	}
	return urlScheme + hex.EncodeToString(id.Hash) + "@" + id.Account.Authority + id.Account.Path
}

func (id *TxID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *TxID) UnmarshalJSON(data []byte) (err error) {
	var s string
	if err = json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	parsed, err := ParseTxID(s)
	if err != nil {
		return
	}
	*id = *parsed
	return
}

// LiteIdentityURL derives the lite identity owned by an Ed25519 public key:
// the first 20 bytes of the key hash in hex, followed by a 4 byte checksum of
// that hex string.
func LiteIdentityURL(publicKey []byte) (u *URL, err error) {
	if len(publicKey) != ed25519.PublicKeySize {
		err = errors.Wrapf(ErrInvalidPublicKey, "expected %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
		return
	}

	keyHash := sha256.Sum256(publicKey)
	keyStr := hex.EncodeToString(keyHash[:20])
	checksum := sha256.Sum256([]byte(keyStr))

	u = &URL{Authority: keyStr + hex.EncodeToString(checksum[28:])}
	return
}

// LiteTokenAccountURL is the lite token account of publicKey for the given
// token issuer, e.g. ACME.
func LiteTokenAccountURL(publicKey []byte, token *URL) (u *URL, err error) {
	identity, err := LiteIdentityURL(publicKey)
	if err != nil {
		return
	}
	return identity.JoinPath(token.Authority, token.Path), nil
}
