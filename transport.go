package accumulate

import (
	"context"
)

// SubmissionResult is the network's verdict on one submitted message.
type SubmissionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	TxID    string `json:"txid,omitempty"`
	Status  string `json:"status,omitempty"`
}

type Submitter interface {
	Submit(ctx context.Context, envelope *Envelope) ([]SubmissionResult, error)
}

// KeyPageState is what the signing flows need to know about a key page entry.
type KeyPageState struct {
	Url        *URL   `json:"url"`
	Version    uint64 `json:"version"`
	LastUsedOn uint64 `json:"lastUsedOn"`
}

type KeyPageQuerier interface {
	QueryKeyPage(ctx context.Context, page *URL, publicKey []byte) (*KeyPageState, error)
}

type Transport interface {
	Submitter
	KeyPageQuerier
}
