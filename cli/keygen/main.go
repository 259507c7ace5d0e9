package main

import (
	"flag"
	"fmt"

	"github.com/alexdcox/accumulate-go"
)

var log = accumulate.Log()

func main() {
	mnemonic := flag.String("mnemonic", "", "Derive from an existing BIP-39 mnemonic instead of generating one")
	passphrase := flag.String("passphrase", "", "Optional BIP-39 passphrase")
	count := flag.Uint("count", 1, "Number of keys to derive")
	flag.Parse()

	words := *mnemonic
	if words == "" {
		var err error
		if words, err = accumulate.NewMnemonic(); err != nil {
			log.Fatal().Msgf("failed to generate mnemonic: %+v", err)
		}
	}

	fmt.Println("")
	fmt.Println("Accumulate signing keys:")
	fmt.Println("")
	fmt.Printf("mnemonic:       %s\n", words)

	acme := accumulate.MustParseURL("acc://ACME")

	for i := uint32(0); i < uint32(*count); i++ {
		signer, err := accumulate.DeriveKey(words, *passphrase, i)
		if err != nil {
			log.Fatal().Msgf("%+v", err)
		}

		identity, err := accumulate.LiteIdentityURL(signer.PublicKey())
		if err != nil {
			log.Fatal().Msgf("%+v", err)
		}

		tokens, err := accumulate.LiteTokenAccountURL(signer.PublicKey(), acme)
		if err != nil {
			log.Fatal().Msgf("%+v", err)
		}

		fmt.Println("")
		fmt.Printf("index:          %d\n", i)
		fmt.Printf("key type:       ed25519\n")
		fmt.Printf("private:        %x\n", signer.Seed())
		fmt.Printf("public:         %x\n", signer.PublicKey())
		fmt.Printf("lite identity:  %s\n", identity)
		fmt.Printf("lite acme:      %s\n", tokens)
	}
}
