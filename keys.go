package accumulate

import (
	"crypto/sha256"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfoSigningKey = "accumulate/ed25519/signing/"

// NewMnemonic returns a fresh 24 word BIP-39 mnemonic.
func NewMnemonic() (mnemonic string, err error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", errors.WithStack(err)
	}
	mnemonic, err = bip39.NewMnemonic(entropy)
	return mnemonic, errors.WithStack(err)
}

// DeriveKey derives the index'th Ed25519 signing key from a BIP-39 mnemonic.
// The seed is expanded with HKDF-SHA256 so that each index yields an
// independent key.
func DeriveKey(mnemonic, passphrase string, index uint32) (signer *LocalSigner, err error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}

	reader := hkdf.New(sha256.New, seed, nil, []byte(hkdfInfoSigningKey+strconv.FormatUint(uint64(index), 10)))
	keySeed := make([]byte, 32)
	if _, err = io.ReadFull(reader, keySeed); err != nil {
		return nil, errors.WithStack(err)
	}

	return NewLocalSigner(keySeed)
}
