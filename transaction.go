package accumulate

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Signable is anything whose hash can be signed.
type Signable interface {
	Hash() ([]byte, error)
}

// Initiated messages carry an initiator that the first signature binds to.
type Initiated interface {
	Signable
	GetInitiator() []byte
	SetInitiator(initiator []byte)
}

var _ Initiated = &Transaction{}

type Transaction struct {
	Header TransactionHeader `json:"header"`
	Body   TransactionBody   `json:"body"`
}

type TransactionHeader struct {
	Principal   *URL              `json:"principal"`
	Initiator   HexBytes          `json:"initiator,omitempty"`
	Memo        string            `json:"memo,omitempty"`
	Metadata    HexBytes          `json:"metadata,omitempty"`
	Expire      *ExpireOptions    `json:"expire,omitempty"`
	HoldUntil   *HoldUntilOptions `json:"holdUntil,omitempty"`
	Authorities []*URL            `json:"authorities,omitempty"`
}

type ExpireOptions struct {
	AtTime time.Time `json:"atTime"`
}

type HoldUntilOptions struct {
	MinorBlock uint64 `json:"minorBlock"`
}

func NewTransaction(principal *URL, body TransactionBody) *Transaction {
	return &Transaction{
		Header: TransactionHeader{Principal: principal},
		Body:   body,
	}
}

func (tx *Transaction) GetInitiator() []byte {
	if isZeroHash(tx.Header.Initiator) {
		return nil
	}
	return tx.Header.Initiator
}

func (tx *Transaction) SetInitiator(initiator []byte) {
	tx.Header.Initiator = append(HexBytes(nil), initiator...)
}

// Hash is SHA-256(SHA-256(header) || SHA-256(body)).
func (tx *Transaction) Hash() ([]byte, error) {
	return tx.HashWith(defaultEncoder)
}

func (tx *Transaction) HashWith(enc *Encoder) (hash []byte, err error) {
	if tx.Body == nil {
		return nil, errors.New("transaction has no body")
	}

	header, err := enc.Encode(&tx.Header)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode transaction header")
	}

	body, err := enc.Encode(tx.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode transaction body")
	}

	return Sha256(Sha256(header), Sha256(body)), nil
}

// Copy returns a deep enough copy that the header can be mutated without
// touching the original.
func (tx *Transaction) Copy() *Transaction {
	c := *tx
	c.Header.Initiator = append(HexBytes(nil), tx.Header.Initiator...)
	c.Header.Authorities = append([]*URL(nil), tx.Header.Authorities...)
	return &c
}

func (tx *Transaction) UnmarshalJSON(data []byte) (err error) {
	var raw struct {
		Header TransactionHeader `json:"header"`
		Body   json.RawMessage   `json:"body"`
	}
	if err = json.Unmarshal(data, &raw); err != nil {
		return errors.WithStack(err)
	}
	tx.Header = raw.Header
	tx.Body, err = UnmarshalTransactionBodyJSON(raw.Body)
	return
}

// Envelope carries transactions and their signatures to the network.
type Envelope struct {
	Signatures  []Signature    `json:"signatures"`
	TxHash      HexBytes       `json:"txHash,omitempty"`
	Transaction []*Transaction `json:"transaction"`
}

func (e *Envelope) UnmarshalJSON(data []byte) (err error) {
	var raw struct {
		Signatures  []json.RawMessage `json:"signatures"`
		TxHash      HexBytes          `json:"txHash"`
		Transaction []*Transaction    `json:"transaction"`
	}
	if err = json.Unmarshal(data, &raw); err != nil {
		return errors.WithStack(err)
	}

	for i, tx := range raw.Transaction {
		if tx == nil {
			return errors.Errorf("envelope transaction %d is null", i)
		}
	}

	e.TxHash = raw.TxHash
	e.Transaction = raw.Transaction
	e.Signatures = make([]Signature, 0, len(raw.Signatures))
	for i, rawSig := range raw.Signatures {
		sig, err2 := UnmarshalSignatureJSON(rawSig)
		if err2 != nil {
			return err2
		}
		if sig == nil {
			return errors.Errorf("envelope signature %d is null", i)
		}
		e.Signatures = append(e.Signatures, sig)
	}
	return
}

func transactionSchemas() []*Schema {
	return []*Schema{
		NewSchema[*Transaction]("Transaction",
			Reference(1, "header", func(tx *Transaction) any { return &tx.Header }),
			Union(2, "body", func(tx *Transaction) any { return tx.Body }),
		),
		NewSchema[*TransactionHeader]("TransactionHeader",
			URLField(1, "principal", func(h *TransactionHeader) *URL { return h.Principal }),
			Hash(2, "initiator", func(h *TransactionHeader) []byte { return h.Initiator }),
			String(3, "memo", func(h *TransactionHeader) string { return h.Memo }),
			Bytes(4, "metadata", func(h *TransactionHeader) []byte { return h.Metadata }),
			Time(1, "expireAtTime", func(h *TransactionHeader) time.Time {
				if h.Expire == nil {
					return time.Time{}
				}
				return h.Expire.AtTime
			}, Within(5)),
			Uint(1, "holdUntilMinorBlock", func(h *TransactionHeader) uint64 {
				if h.HoldUntil == nil {
					return 0
				}
				return h.HoldUntil.MinorBlock
			}, Within(6)),
			Repeated(7, "authorities", CodecURL, func(h *TransactionHeader) []*URL { return h.Authorities }),
		),
		NewSchema[*Envelope]("Envelope",
			Repeated(1, "signatures", CodecUnion, func(e *Envelope) []Signature { return e.Signatures }),
			Bytes(2, "txHash", func(e *Envelope) []byte { return e.TxHash }),
			Repeated(3, "transaction", CodecReference, func(e *Envelope) []*Transaction { return e.Transaction }),
		),
	}
}
