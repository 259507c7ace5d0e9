package accumulate

import (
	"time"
)

// PreparedTransaction is everything needed to finish a signature whose digest
// was handed to an external signer.
type PreparedTransaction struct {
	RequestID       string       `json:"requestId"`
	Transaction     *Transaction `json:"transaction"`
	PublicKey       HexBytes     `json:"publicKey"`
	Signer          *URL         `json:"signer"`
	SignerVersion   uint64       `json:"signerVersion"`
	Timestamp       uint64       `json:"timestamp"`
	LastUsedOn      uint64       `json:"lastUsedOn,omitempty"`
	Vote            VoteType     `json:"vote,omitempty"`
	Memo            string       `json:"memo,omitempty"`
	Data            HexBytes     `json:"data,omitempty"`
	Delegators      []*URL       `json:"delegators,omitempty"`
	MetadataHash    HexBytes     `json:"metadataHash"`
	TransactionHash HexBytes     `json:"transactionHash"`
	HashToSign      HexBytes     `json:"hashToSign"`
	CreatedAt       time.Time    `json:"createdAt"`
}

func (p *PreparedTransaction) SignOptions() SignOptions {
	return SignOptions{
		Signer:        p.Signer,
		SignerVersion: p.SignerVersion,
		Timestamp:     p.Timestamp,
		Vote:          p.Vote,
		Memo:          p.Memo,
		Data:          p.Data,
		Delegators:    p.Delegators,
	}
}

// PreparedStore holds pending transactions. Take must remove the entry in the
// same step that reads it, so an id can only ever be taken once.
type PreparedStore interface {
	Put(p *PreparedTransaction) error
	Take(requestID string) (*PreparedTransaction, error)
	Sweep(createdBefore time.Time) (removed int, err error)
	Len() (int, error)
	Close() error
}
