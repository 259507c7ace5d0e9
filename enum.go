package accumulate

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

type TransactionType uint64

const (
	TransactionTypeUnknown                TransactionType = 0
	TransactionTypeCreateIdentity         TransactionType = 1
	TransactionTypeCreateTokenAccount     TransactionType = 2
	TransactionTypeSendTokens             TransactionType = 3
	TransactionTypeCreateDataAccount      TransactionType = 4
	TransactionTypeWriteData              TransactionType = 5
	TransactionTypeWriteDataTo            TransactionType = 6
	TransactionTypeAcmeFaucet             TransactionType = 7
	TransactionTypeCreateToken            TransactionType = 8
	TransactionTypeIssueTokens            TransactionType = 9
	TransactionTypeBurnTokens             TransactionType = 10
	TransactionTypeCreateLiteTokenAccount TransactionType = 11
	TransactionTypeCreateKeyPage          TransactionType = 12
	TransactionTypeCreateKeyBook          TransactionType = 13
	TransactionTypeAddCredits             TransactionType = 14
	TransactionTypeUpdateKeyPage          TransactionType = 15
)

var transactionTypeNames = map[TransactionType]string{
	TransactionTypeUnknown:                "unknown",
	TransactionTypeCreateIdentity:         "createIdentity",
	TransactionTypeCreateTokenAccount:     "createTokenAccount",
	TransactionTypeSendTokens:             "sendTokens",
	TransactionTypeCreateDataAccount:      "createDataAccount",
	TransactionTypeWriteData:              "writeData",
	TransactionTypeWriteDataTo:            "writeDataTo",
	TransactionTypeAcmeFaucet:             "acmeFaucet",
	TransactionTypeCreateToken:            "createToken",
	TransactionTypeIssueTokens:            "issueTokens",
	TransactionTypeBurnTokens:             "burnTokens",
	TransactionTypeCreateLiteTokenAccount: "createLiteTokenAccount",
	TransactionTypeCreateKeyPage:          "createKeyPage",
	TransactionTypeCreateKeyBook:          "createKeyBook",
	TransactionTypeAddCredits:             "addCredits",
	TransactionTypeUpdateKeyPage:          "updateKeyPage",
}

func (t TransactionType) GetEnumValue() uint64 { return uint64(t) }
func (t TransactionType) String() string       { return enumString(transactionTypeNames, t) }

func (t TransactionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TransactionType) UnmarshalJSON(data []byte) error {
	return enumUnmarshalJSON(transactionTypeNames, data, t)
}

type SignatureType uint64

const (
	SignatureTypeUnknown       SignatureType = 0
	SignatureTypeLegacyED25519 SignatureType = 1
	SignatureTypeED25519       SignatureType = 2
	SignatureTypeRCD1          SignatureType = 3
	SignatureTypeReceipt       SignatureType = 4
	SignatureTypePartial       SignatureType = 5
	SignatureTypeSet           SignatureType = 6
	SignatureTypeRemote        SignatureType = 7
	SignatureTypeBTC           SignatureType = 8
	SignatureTypeBTCLegacy     SignatureType = 9
	SignatureTypeETH           SignatureType = 10
	SignatureTypeDelegated     SignatureType = 11
	SignatureTypeInternal      SignatureType = 12
)

var signatureTypeNames = map[SignatureType]string{
	SignatureTypeUnknown:       "unknown",
	SignatureTypeLegacyED25519: "legacyED25519",
	SignatureTypeED25519:       "ed25519",
	SignatureTypeRCD1:          "rcd1",
	SignatureTypeReceipt:       "receipt",
	SignatureTypePartial:       "partial",
	SignatureTypeSet:           "set",
	SignatureTypeRemote:        "remote",
	SignatureTypeBTC:           "btc",
	SignatureTypeBTCLegacy:     "btcLegacy",
	SignatureTypeETH:           "eth",
	SignatureTypeDelegated:     "delegated",
	SignatureTypeInternal:      "internal",
}

func (t SignatureType) GetEnumValue() uint64 { return uint64(t) }
func (t SignatureType) String() string       { return enumString(signatureTypeNames, t) }

func (t SignatureType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *SignatureType) UnmarshalJSON(data []byte) error {
	return enumUnmarshalJSON(signatureTypeNames, data, t)
}

type DataEntryType uint64

const (
	DataEntryTypeUnknown    DataEntryType = 0
	DataEntryTypeFactom     DataEntryType = 1
	DataEntryTypeAccumulate DataEntryType = 2
	DataEntryTypeDoubleHash DataEntryType = 3
)

var dataEntryTypeNames = map[DataEntryType]string{
	DataEntryTypeUnknown:    "unknown",
	DataEntryTypeFactom:     "factom",
	DataEntryTypeAccumulate: "accumulate",
	DataEntryTypeDoubleHash: "doubleHash",
}

func (t DataEntryType) GetEnumValue() uint64 { return uint64(t) }
func (t DataEntryType) String() string       { return enumString(dataEntryTypeNames, t) }

func (t DataEntryType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *DataEntryType) UnmarshalJSON(data []byte) error {
	return enumUnmarshalJSON(dataEntryTypeNames, data, t)
}

// VoteType is how a signer votes on a transaction. Accept is the zero value
// and so is never written.
type VoteType uint64

const (
	VoteTypeAccept  VoteType = 0
	VoteTypeReject  VoteType = 1
	VoteTypeAbstain VoteType = 2
	VoteTypeSuggest VoteType = 3
)

var voteTypeNames = map[VoteType]string{
	VoteTypeAccept:  "accept",
	VoteTypeReject:  "reject",
	VoteTypeAbstain: "abstain",
	VoteTypeSuggest: "suggest",
}

func (t VoteType) GetEnumValue() uint64 { return uint64(t) }
func (t VoteType) String() string       { return enumString(voteTypeNames, t) }

func (t VoteType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *VoteType) UnmarshalJSON(data []byte) error {
	return enumUnmarshalJSON(voteTypeNames, data, t)
}

func ParseVoteType(s string) (VoteType, error) {
	return enumParse(voteTypeNames, s)
}

func enumString[E ~uint64](names map[E]string, v E) string {
	if name, ok := names[v]; ok {
		return name
	}
	return strconv.FormatUint(uint64(v), 10)
}

func enumParse[E ~uint64](names map[E]string, s string) (v E, err error) {
	for value, name := range names {
		if strings.EqualFold(name, s) {
			return value, nil
		}
	}
	if n, err2 := strconv.ParseUint(s, 10, 64); err2 == nil {
		return E(n), nil
	}
	return 0, errors.Errorf("unknown enum value '%s'", s)
}

// enumUnmarshalJSON accepts either the name or the ordinal.
func enumUnmarshalJSON[E ~uint64](names map[E]string, data []byte, target *E) (err error) {
	value := gjson.ParseBytes(data)
	switch value.Type {
	case gjson.Number:
		*target = E(value.Uint())
	case gjson.String:
		*target, err = enumParse(names, value.String())
	case gjson.Null:
		*target = 0
	default:
		err = errors.Errorf("cannot unmarshal %s as enum", string(data))
	}
	return
}
