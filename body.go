package accumulate

import (
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// TransactionBody is the tagged family of transaction payloads.
type TransactionBody interface {
	Type() TransactionType
}

var (
	_ TransactionBody = &WriteData{}
	_ TransactionBody = &AddCredits{}
	_ TransactionBody = &CreateIdentity{}
	_ TransactionBody = &CreateDataAccount{}
	_ TransactionBody = &SendTokens{}
)

type WriteData struct {
	Entry        DataEntry `json:"entry"`
	Scratch      bool      `json:"scratch,omitempty"`
	WriteToState bool      `json:"writeToState,omitempty"`
}

type AddCredits struct {
	Recipient *URL     `json:"recipient"`
	Amount    *big.Int `json:"amount"`
	Oracle    uint64   `json:"oracle"`
}

type CreateIdentity struct {
	Url         *URL     `json:"url"`
	KeyHash     HexBytes `json:"keyHash,omitempty"`
	KeyBookUrl  *URL     `json:"keyBookUrl,omitempty"`
	Authorities []*URL   `json:"authorities,omitempty"`
}

type CreateDataAccount struct {
	Url         *URL   `json:"url"`
	Authorities []*URL `json:"authorities,omitempty"`
}

type SendTokens struct {
	Hash HexBytes          `json:"hash,omitempty"`
	Meta json.RawMessage   `json:"meta,omitempty"`
	To   []*TokenRecipient `json:"to"`
}

type TokenRecipient struct {
	Url    *URL     `json:"url"`
	Amount *big.Int `json:"amount"`
}

func (b *WriteData) Type() TransactionType         { return TransactionTypeWriteData }
func (b *AddCredits) Type() TransactionType        { return TransactionTypeAddCredits }
func (b *CreateIdentity) Type() TransactionType    { return TransactionTypeCreateIdentity }
func (b *CreateDataAccount) Type() TransactionType { return TransactionTypeCreateDataAccount }
func (b *SendTokens) Type() TransactionType        { return TransactionTypeSendTokens }

func (b *WriteData) MarshalJSON() ([]byte, error) {
	type alias WriteData
	return json.Marshal(struct {
		Type TransactionType `json:"type"`
		*alias
	}{b.Type(), (*alias)(b)})
}

func (b *WriteData) UnmarshalJSON(data []byte) (err error) {
	var raw struct {
		Entry        json.RawMessage `json:"entry"`
		Scratch      bool            `json:"scratch"`
		WriteToState bool            `json:"writeToState"`
	}
	if err = json.Unmarshal(data, &raw); err != nil {
		return errors.WithStack(err)
	}
	b.Scratch = raw.Scratch
	b.WriteToState = raw.WriteToState
	b.Entry, err = UnmarshalDataEntryJSON(raw.Entry)
	return
}

func (b *AddCredits) MarshalJSON() ([]byte, error) {
	type alias AddCredits
	return json.Marshal(struct {
		Type TransactionType `json:"type"`
		*alias
	}{b.Type(), (*alias)(b)})
}

func (b *CreateIdentity) MarshalJSON() ([]byte, error) {
	type alias CreateIdentity
	return json.Marshal(struct {
		Type TransactionType `json:"type"`
		*alias
	}{b.Type(), (*alias)(b)})
}

func (b *CreateDataAccount) MarshalJSON() ([]byte, error) {
	type alias CreateDataAccount
	return json.Marshal(struct {
		Type TransactionType `json:"type"`
		*alias
	}{b.Type(), (*alias)(b)})
}

func (b *SendTokens) MarshalJSON() ([]byte, error) {
	type alias SendTokens
	return json.Marshal(struct {
		Type TransactionType `json:"type"`
		*alias
	}{b.Type(), (*alias)(b)})
}

func (b *SendTokens) UnmarshalJSON(data []byte) (err error) {
	type alias SendTokens
	if err = json.Unmarshal(data, (*alias)(b)); err != nil {
		return errors.WithStack(err)
	}
	for i, to := range b.To {
		if to == nil {
			return errors.Errorf("sendTokens recipient %d is null", i)
		}
	}
	return
}

// NewTransactionBody returns an empty body for typ.
func NewTransactionBody(typ TransactionType) (TransactionBody, error) {
	switch typ {
	case TransactionTypeWriteData:
		return new(WriteData), nil
	case TransactionTypeAddCredits:
		return new(AddCredits), nil
	case TransactionTypeCreateIdentity:
		return new(CreateIdentity), nil
	case TransactionTypeCreateDataAccount:
		return new(CreateDataAccount), nil
	case TransactionTypeSendTokens:
		return new(SendTokens), nil
	}
	return nil, errors.Errorf("unsupported transaction type %s", typ)
}

func UnmarshalTransactionBodyJSON(data []byte) (body TransactionBody, err error) {
	if len(data) == 0 || gjson.ParseBytes(data).Type == gjson.Null {
		return
	}

	var typ TransactionType
	if err = typ.UnmarshalJSON([]byte(gjson.GetBytes(data, "type").Raw)); err != nil {
		return
	}

	body, err = NewTransactionBody(typ)
	if err != nil {
		return
	}

	err = errors.WithStack(json.Unmarshal(data, body))
	return
}

// DataEntry is the tagged family of data payloads written by WriteData.
type DataEntry interface {
	Type() DataEntryType
	GetData() [][]byte
}

var (
	_ DataEntry = &DoubleHashDataEntry{}
	_ DataEntry = &AccumulateDataEntry{}
)

type DoubleHashDataEntry struct {
	Data []HexBytes `json:"data"`
}

type AccumulateDataEntry struct {
	Data []HexBytes `json:"data"`
}

func (e *DoubleHashDataEntry) Type() DataEntryType { return DataEntryTypeDoubleHash }
func (e *AccumulateDataEntry) Type() DataEntryType { return DataEntryTypeAccumulate }

func (e *DoubleHashDataEntry) GetData() [][]byte { return hexBytesToBytes(e.Data) }
func (e *AccumulateDataEntry) GetData() [][]byte { return hexBytesToBytes(e.Data) }

func (e *DoubleHashDataEntry) MarshalJSON() ([]byte, error) {
	type alias DoubleHashDataEntry
	return json.Marshal(struct {
		Type DataEntryType `json:"type"`
		*alias
	}{e.Type(), (*alias)(e)})
}

func (e *AccumulateDataEntry) MarshalJSON() ([]byte, error) {
	type alias AccumulateDataEntry
	return json.Marshal(struct {
		Type DataEntryType `json:"type"`
		*alias
	}{e.Type(), (*alias)(e)})
}

func NewDataEntry(typ DataEntryType) (DataEntry, error) {
	switch typ {
	case DataEntryTypeDoubleHash:
		return new(DoubleHashDataEntry), nil
	case DataEntryTypeAccumulate:
		return new(AccumulateDataEntry), nil
	}
	return nil, errors.Errorf("unsupported data entry type %s", typ)
}

func UnmarshalDataEntryJSON(data []byte) (entry DataEntry, err error) {
	if len(data) == 0 || gjson.ParseBytes(data).Type == gjson.Null {
		return
	}

	var typ DataEntryType
	if err = typ.UnmarshalJSON([]byte(gjson.GetBytes(data, "type").Raw)); err != nil {
		return
	}

	entry, err = NewDataEntry(typ)
	if err != nil {
		return
	}

	err = errors.WithStack(json.Unmarshal(data, entry))
	return
}

func hexBytesToBytes(in []HexBytes) [][]byte {
	out := make([][]byte, len(in))
	for i, b := range in {
		out[i] = b
	}
	return out
}

func bodySchemas() []*Schema {
	return []*Schema{
		NewSchema[*WriteData]("WriteData",
			Enum(1, "type", func(b *WriteData) TransactionType { return b.Type() }),
			Union(2, "entry", func(b *WriteData) any { return b.Entry }),
			Bool(3, "scratch", func(b *WriteData) bool { return b.Scratch }),
			Bool(4, "writeToState", func(b *WriteData) bool { return b.WriteToState }),
		),
		NewSchema[*AddCredits]("AddCredits",
			Enum(1, "type", func(b *AddCredits) TransactionType { return b.Type() }),
			URLField(2, "recipient", func(b *AddCredits) *URL { return b.Recipient }),
			BigInt(3, "amount", func(b *AddCredits) *big.Int { return b.Amount }),
			Uint(4, "oracle", func(b *AddCredits) uint64 { return b.Oracle }),
		),
		NewSchema[*CreateIdentity]("CreateIdentity",
			Enum(1, "type", func(b *CreateIdentity) TransactionType { return b.Type() }),
			URLField(2, "url", func(b *CreateIdentity) *URL { return b.Url }),
			Bytes(3, "keyHash", func(b *CreateIdentity) []byte { return b.KeyHash }),
			URLField(4, "keyBookUrl", func(b *CreateIdentity) *URL { return b.KeyBookUrl }),
			Repeated(5, "authorities", CodecURL, func(b *CreateIdentity) []*URL { return b.Authorities }),
		),
		NewSchema[*CreateDataAccount]("CreateDataAccount",
			Enum(1, "type", func(b *CreateDataAccount) TransactionType { return b.Type() }),
			URLField(2, "url", func(b *CreateDataAccount) *URL { return b.Url }),
			Repeated(3, "authorities", CodecURL, func(b *CreateDataAccount) []*URL { return b.Authorities }),
		),
		NewSchema[*SendTokens]("SendTokens",
			Enum(1, "type", func(b *SendTokens) TransactionType { return b.Type() }),
			Hash(2, "hash", func(b *SendTokens) []byte { return b.Hash }),
			Bytes(3, "meta", func(b *SendTokens) []byte { return b.Meta }),
			Repeated(4, "to", CodecReference, func(b *SendTokens) []*TokenRecipient { return b.To }),
		),
		NewSchema[*TokenRecipient]("TokenRecipient",
			URLField(1, "url", func(r *TokenRecipient) *URL { return r.Url }),
			BigInt(2, "amount", func(r *TokenRecipient) *big.Int { return r.Amount }),
		),
		NewSchema[*DoubleHashDataEntry]("DoubleHashDataEntry",
			Enum(1, "type", func(e *DoubleHashDataEntry) DataEntryType { return e.Type() }),
			Repeated(2, "data", CodecBytes, func(e *DoubleHashDataEntry) []HexBytes { return e.Data }),
		),
		NewSchema[*AccumulateDataEntry]("AccumulateDataEntry",
			Enum(1, "type", func(e *AccumulateDataEntry) DataEntryType { return e.Type() }),
			Repeated(2, "data", CodecBytes, func(e *AccumulateDataEntry) []HexBytes { return e.Data }),
		),
	}
}
