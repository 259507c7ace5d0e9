package accumulate

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Signature is the tagged family of signature kinds.
type Signature interface {
	Type() SignatureType
}

// KeySignature is a signature made directly by a key on a key page.
type KeySignature interface {
	Signature
	GetPublicKey() []byte
	GetSignature() []byte
	GetSigner() *URL
	GetSignerVersion() uint64
	GetTimestamp() uint64
	GetTransactionHash() []byte
}

var (
	_ KeySignature = &ED25519Signature{}
	_ Signature    = &DelegatedSignature{}
)

type ED25519Signature struct {
	PublicKey       HexBytes `json:"publicKey,omitempty"`
	Signature       HexBytes `json:"signature,omitempty"`
	Signer          *URL     `json:"signer,omitempty"`
	SignerVersion   uint64   `json:"signerVersion,omitempty"`
	Timestamp       uint64   `json:"timestamp,omitempty"`
	Vote            VoteType `json:"vote,omitempty"`
	TransactionHash HexBytes `json:"transactionHash,omitempty"`
	Memo            string   `json:"memo,omitempty"`
	Data            HexBytes `json:"data,omitempty"`
}

func (s *ED25519Signature) Type() SignatureType        { return SignatureTypeED25519 }
func (s *ED25519Signature) GetPublicKey() []byte       { return s.PublicKey }
func (s *ED25519Signature) GetSignature() []byte       { return s.Signature }
func (s *ED25519Signature) GetSigner() *URL            { return s.Signer }
func (s *ED25519Signature) GetSignerVersion() uint64   { return s.SignerVersion }
func (s *ED25519Signature) GetTimestamp() uint64       { return s.Timestamp }
func (s *ED25519Signature) GetTransactionHash() []byte { return s.TransactionHash }

func (s *ED25519Signature) MarshalJSON() ([]byte, error) {
	type alias ED25519Signature
	return json.Marshal(struct {
		Type SignatureType `json:"type"`
		*alias
	}{s.Type(), (*alias)(s)})
}

func (s *ED25519Signature) UnmarshalJSON(data []byte) error {
	type alias ED25519Signature
	return errors.WithStack(json.Unmarshal(data, (*alias)(s)))
}

// DelegatedSignature wraps a signature made on behalf of Delegator.
type DelegatedSignature struct {
	Signature Signature `json:"signature"`
	Delegator *URL      `json:"delegator"`
}

func (s *DelegatedSignature) Type() SignatureType { return SignatureTypeDelegated }

func (s *DelegatedSignature) MarshalJSON() ([]byte, error) {
	type alias DelegatedSignature
	return json.Marshal(struct {
		Type SignatureType `json:"type"`
		*alias
	}{s.Type(), (*alias)(s)})
}

func (s *DelegatedSignature) UnmarshalJSON(data []byte) (err error) {
	var raw struct {
		Signature json.RawMessage `json:"signature"`
		Delegator *URL            `json:"delegator"`
	}
	if err = json.Unmarshal(data, &raw); err != nil {
		return errors.WithStack(err)
	}
	s.Delegator = raw.Delegator
	s.Signature, err = UnmarshalSignatureJSON(raw.Signature)
	return
}

// Inner unwraps delegation layers down to the key signature.
func (s *DelegatedSignature) Inner() Signature {
	var inner Signature = s
	for {
		delegated, ok := inner.(*DelegatedSignature)
		if !ok {
			return inner
		}
		inner = delegated.Signature
	}
}

func NewSignature(typ SignatureType) (Signature, error) {
	switch typ {
	case SignatureTypeED25519:
		return new(ED25519Signature), nil
	case SignatureTypeDelegated:
		return new(DelegatedSignature), nil
	}
	return nil, errors.Errorf("unsupported signature type %s", typ)
}

func UnmarshalSignatureJSON(data []byte) (sig Signature, err error) {
	if len(data) == 0 || gjson.ParseBytes(data).Type == gjson.Null {
		return
	}

	var typ SignatureType
	if err = typ.UnmarshalJSON([]byte(gjson.GetBytes(data, "type").Raw)); err != nil {
		return
	}

	sig, err = NewSignature(typ)
	if err != nil {
		return
	}

	err = errors.WithStack(json.Unmarshal(data, sig))
	return
}

func signatureSchemas() []*Schema {
	return []*Schema{
		NewSchema[*ED25519Signature]("ED25519Signature",
			Enum(1, "type", func(s *ED25519Signature) SignatureType { return s.Type() }),
			Bytes(2, "publicKey", func(s *ED25519Signature) []byte { return s.PublicKey }),
			Bytes(3, "signature", func(s *ED25519Signature) []byte { return s.Signature }),
			URLField(4, "signer", func(s *ED25519Signature) *URL { return s.Signer }),
			Uint(5, "signerVersion", func(s *ED25519Signature) uint64 { return s.SignerVersion }),
			Uint(6, "timestamp", func(s *ED25519Signature) uint64 { return s.Timestamp }),
			Enum(7, "vote", func(s *ED25519Signature) VoteType { return s.Vote }),
			Hash(8, "transactionHash", func(s *ED25519Signature) []byte { return s.TransactionHash }),
			String(9, "memo", func(s *ED25519Signature) string { return s.Memo }),
			Bytes(10, "data", func(s *ED25519Signature) []byte { return s.Data }),
		),
		NewSchema[*DelegatedSignature]("DelegatedSignature",
			Enum(1, "type", func(s *DelegatedSignature) SignatureType { return s.Type() }),
			Union(2, "signature", func(s *DelegatedSignature) any { return s.Signature }),
			URLField(3, "delegator", func(s *DelegatedSignature) *URL { return s.Delegator }),
		),
	}
}
