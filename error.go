package accumulate

import (
	"fmt"
)

var (
	ErrSchemaNotFound        = fmt.Errorf("schema not found")
	ErrSchemaExists          = fmt.Errorf("schema already registered")
	ErrRegistrySealed        = fmt.Errorf("schema registry sealed")
	ErrUnsupportedCodec      = fmt.Errorf("unsupported codec")
	ErrFieldTypeMismatch     = fmt.Errorf("field value does not match codec")
	ErrInvalidHashLength     = fmt.Errorf("invalid hash length")
	ErrTimestampRequired     = fmt.Errorf("timestamp required to initiate transaction")
	ErrNotFound              = fmt.Errorf("prepared transaction not found")
	ErrExternalSignerFailure = fmt.Errorf("external signer failed")
	ErrSubmissionRejected    = fmt.Errorf("submission rejected")
	ErrInvalidURL            = fmt.Errorf("invalid url")
	ErrInvalidPublicKey      = fmt.Errorf("invalid public key")
	ErrInvalidSigner         = fmt.Errorf("invalid signer")
	ErrKeyNotFound           = fmt.Errorf("key not found on key page")
	ErrRpcFailed             = fmt.Errorf("rpc failed")
)

// AllErrors is the set of sentinels an rpc response can be mapped back onto.
var AllErrors = []error{
	ErrSchemaNotFound,
	ErrSchemaExists,
	ErrRegistrySealed,
	ErrUnsupportedCodec,
	ErrFieldTypeMismatch,
	ErrInvalidHashLength,
	ErrTimestampRequired,
	ErrNotFound,
	ErrExternalSignerFailure,
	ErrSubmissionRejected,
	ErrInvalidURL,
	ErrInvalidPublicKey,
	ErrInvalidSigner,
	ErrKeyNotFound,
	ErrRpcFailed,
}
