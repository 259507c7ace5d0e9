package accumulate

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Signer produces a raw signature over a 32 byte digest.
type Signer interface {
	PublicKey() []byte
	SignRaw(ctx context.Context, digest []byte) ([]byte, error)
}

var (
	_ Signer = &LocalSigner{}
	_ Signer = &ExternalSigner{}
	_ Signer = &RemoteSigner{}
)

// LocalSigner signs with an Ed25519 key held in memory.
type LocalSigner struct {
	key ed25519.PrivateKey
}

// NewLocalSigner accepts a 32 byte seed or a 64 byte private key.
func NewLocalSigner(key []byte) (signer *LocalSigner, err error) {
	private := ed25519.PrivateKey(append([]byte(nil), key...))
	ExpandEd25519PrivateKey(&private)
	if len(private) != ed25519.PrivateKeySize {
		err = errors.Wrapf(ErrInvalidSigner, "expected 32 or 64 byte key, got %d", len(key))
		return
	}
	return &LocalSigner{key: private}, nil
}

func (s *LocalSigner) PublicKey() []byte {
	return append([]byte(nil), s.key[ed25519.SeedSize:]...)
}

func (s *LocalSigner) SignRaw(_ context.Context, digest []byte) ([]byte, error) {
	return ed25519.Sign(s.key, digest), nil
}

// Seed returns the 32 byte seed the key was built from.
func (s *LocalSigner) Seed() []byte {
	return s.key.Seed()
}

// ExternalSigner adapts a signing callback, such as a hardware wallet or a
// browser extension, to the Signer interface.
type ExternalSigner struct {
	publicKey []byte
	sign      func(ctx context.Context, digest []byte) ([]byte, error)
}

func NewExternalSigner(publicKey []byte, sign func(ctx context.Context, digest []byte) ([]byte, error)) *ExternalSigner {
	return &ExternalSigner{
		publicKey: append([]byte(nil), publicKey...),
		sign:      sign,
	}
}

func (s *ExternalSigner) PublicKey() []byte {
	return s.publicKey
}

func (s *ExternalSigner) SignRaw(ctx context.Context, digest []byte) (signature []byte, err error) {
	signature, err = s.sign(ctx, digest)
	if err != nil {
		err = errors.Wrapf(ErrExternalSignerFailure, "%v", err)
	}
	return
}

// RemoteSigner asks an HTTP signing service for the signature. The request
// body is {"hash","publicKey"} in hex and the response carries "signature".
type RemoteSigner struct {
	Endpoint  string
	Key       []byte
	Client    *http.Client
	AuthToken string
}

func (s *RemoteSigner) PublicKey() []byte {
	return s.Key
}

func (s *RemoteSigner) SignRaw(ctx context.Context, digest []byte) (signature []byte, err error) {
	body, err := json.Marshal(map[string]string{
		"hash":      hex.EncodeToString(digest),
		"publicKey": hex.EncodeToString(s.Key),
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AuthToken)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	rsp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrExternalSignerFailure, "request to %s failed: %v", s.Endpoint, err)
	}
	defer rsp.Body.Close()

	out, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrExternalSignerFailure, "unable to read response: %v", err)
	}

	if rsp.StatusCode/100 != 2 {
		return nil, errors.Wrapf(ErrExternalSignerFailure, "signer responded %d: %s", rsp.StatusCode, string(out))
	}

	field := gjson.GetBytes(out, "signature")
	if !field.Exists() {
		return nil, errors.Wrapf(ErrExternalSignerFailure, "response has no signature: %s", string(out))
	}

	signature, err = hex.DecodeString(field.String())
	if err != nil {
		return nil, errors.Wrapf(ErrExternalSignerFailure, "signature is not hex: %v", err)
	}

	return
}
