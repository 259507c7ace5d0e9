package accumulate

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// SignOptions is the signature metadata chosen by the caller.
type SignOptions struct {
	Signer        *URL
	SignerVersion uint64
	Timestamp     uint64
	Vote          VoteType
	Memo          string
	Data          []byte
	Delegators    []*URL
}

// Delegate wraps sig once per delegator. The last delegator ends up outermost.
func Delegate(sig Signature, delegators ...*URL) Signature {
	for _, delegator := range delegators {
		sig = &DelegatedSignature{
			Signature: sig,
			Delegator: delegator,
		}
	}
	return sig
}

// SigningRequest holds the state between computing the digest and attaching
// the raw signature.
type SigningRequest struct {
	Signature    Signature
	Key          *ED25519Signature
	MetadataHash []byte
	MessageHash  []byte
	HashToSign   []byte
}

// Complete attaches the raw signature and message hash to the innermost key
// signature and returns the outermost signature.
func (r *SigningRequest) Complete(raw []byte) Signature {
	r.Key.Signature = append(HexBytes(nil), raw...)
	r.Key.TransactionHash = append(HexBytes(nil), r.MessageHash...)
	return r.Signature
}

// SignatureBuilder runs the signing protocol with an explicit encoder.
type SignatureBuilder struct {
	encoder *Encoder
	log     *zerolog.Logger
}

func NewSignatureBuilder(encoder *Encoder) *SignatureBuilder {
	if encoder == nil {
		encoder = defaultEncoder
	}
	return &SignatureBuilder{encoder: encoder, log: Log()}
}

var defaultSignatureBuilder = NewSignatureBuilder(defaultEncoder)

// Sign signs msg with the default encoder.
func Sign(ctx context.Context, msg Signable, signer Signer, opts SignOptions) (Signature, error) {
	return defaultSignatureBuilder.Sign(ctx, msg, signer, opts)
}

// Prepare builds the signature metadata for publicKey, binds an uninitiated
// message to it and computes the digest to sign. It does not sign.
func (b *SignatureBuilder) Prepare(msg Signable, publicKey []byte, opts SignOptions) (req *SigningRequest, err error) {
	if opts.Signer == nil {
		return nil, errors.Wrap(ErrInvalidSigner, "signer url is required")
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "expected %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
	}

	key := &ED25519Signature{
		PublicKey:     append(HexBytes(nil), publicKey...),
		Signer:        opts.Signer,
		SignerVersion: opts.SignerVersion,
		Timestamp:     opts.Timestamp,
		Vote:          opts.Vote,
		Memo:          opts.Memo,
		Data:          opts.Data,
	}
	sig := Delegate(key, opts.Delegators...)

	metadata, err := b.encoder.Encode(sig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode signature metadata")
	}
	metadataHash := Sha256(metadata)

	initiated, bind := msg.(Initiated)
	bind = bind && initiated.GetInitiator() == nil
	if bind {
		if opts.Timestamp == 0 {
			return nil, errors.WithStack(ErrTimestampRequired)
		}
		initiated.SetInitiator(metadataHash)
	}

	messageHash, err := msg.Hash()
	if err != nil {
		if bind {
			initiated.SetInitiator(nil)
		}
		return nil, errors.Wrap(err, "failed to hash message")
	}

	return &SigningRequest{
		Signature:    sig,
		Key:          key,
		MetadataHash: metadataHash,
		MessageHash:  messageHash,
		HashToSign:   Sha256(metadataHash, messageHash),
	}, nil
}

// Sign runs the whole protocol. The signer is awaited once with no retry.
func (b *SignatureBuilder) Sign(ctx context.Context, msg Signable, signer Signer, opts SignOptions) (sig Signature, err error) {
	req, err := b.Prepare(msg, signer.PublicKey(), opts)
	if err != nil {
		return
	}

	b.log.Debug().Msgf("signing %x as %s (timestamp %d)", req.MessageHash, opts.Signer, opts.Timestamp)

	raw, err := signer.SignRaw(ctx, req.HashToSign)
	if err != nil {
		return nil, err
	}

	return req.Complete(raw), nil
}
