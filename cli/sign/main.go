package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/alexdcox/accumulate-go"
	"github.com/alexdcox/accumulate-go/rpcclient"
	"github.com/pkg/errors"
)

var log = accumulate.Log()

// Signs the hashToSign handed out by a signer service's /tx/prepare and,
// when a request id and host are given, submits the signature back to it.
func main() {
	hashHex := flag.String("hash", "", "Hex encoded hashToSign")
	keyHex := flag.String("key", "", "Hex encoded 32 byte seed or 64 byte private key")
	mnemonic := flag.String("mnemonic", "", "BIP-39 mnemonic to derive the key from instead of -key")
	passphrase := flag.String("passphrase", "", "Optional BIP-39 passphrase")
	index := flag.Uint("index", 0, "Key index when deriving from a mnemonic")
	requestID := flag.String("requestid", "", "Prepared request id to submit the signature for")
	hostPort := flag.String("rpchostport", "localhost:8420", "Signer service host:port used with -requestid")
	flag.Parse()

	signer, err := loadSigner(*keyHex, *mnemonic, *passphrase, uint32(*index))
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	digest, err := accumulate.ParseHexBytes(*hashHex)
	if err != nil || len(digest) != accumulate.HashSize {
		log.Fatal().Msgf("-hash must be %d hex encoded bytes", accumulate.HashSize)
	}

	ctx := context.Background()
	signature, err := signer.SignRaw(ctx, digest)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	fmt.Printf("public:     %x\n", signer.PublicKey())
	fmt.Printf("signature:  %x\n", signature)

	if *requestID == "" {
		return
	}

	client, err := rpcclient.NewRpcClient(*hostPort)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	out, err := client.Submit(ctx, &rpcclient.SubmitIn{
		RequestID: *requestID,
		Signature: signature,
		PublicKey: signer.PublicKey(),
	})
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	fmt.Printf("submitted:  %x\n", []byte(out.TxHash))
}

func loadSigner(keyHex, mnemonic, passphrase string, index uint32) (signer *accumulate.LocalSigner, err error) {
	switch {
	case keyHex != "" && mnemonic != "":
		return nil, errors.New("use either -key or -mnemonic, not both")
	case keyHex != "":
		key, err2 := accumulate.ParseHexBytes(keyHex)
		if err2 != nil {
			return nil, errors.WithMessage(err2, "invalid -key")
		}
		return accumulate.NewLocalSigner(key)
	case mnemonic != "":
		return accumulate.DeriveKey(mnemonic, passphrase, index)
	}
	return nil, errors.New("one of -key or -mnemonic is required")
}
