package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/equitx-labs/xasset/crypto"
)

func main() {
	keystorePath := flag.String("keystore", "", "write the generated key to an encrypted keystore file instead of stdout")
	passEnv := flag.String("pass-env", "XASSET_KEYSTORE_PASS", "environment variable holding the keystore passphrase")
	flag.Parse()

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}
	addr := key.PubKey().Address()

	if *keystorePath == "" {
		fmt.Printf("address: %s\n", addr.String())
		fmt.Printf("private_key: %s\n", hex.EncodeToString(key.Bytes()))
		return
	}

	passphrase := os.Getenv(*passEnv)
	if passphrase == "" {
		fmt.Fprintf(os.Stderr, "environment variable %s is empty\n", *passEnv)
		os.Exit(1)
	}
	if err := crypto.SaveToKeystore(*keystorePath, key, passphrase); err != nil {
		fmt.Fprintf(os.Stderr, "save keystore: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("address: %s\n", addr.String())
	fmt.Printf("keystore written to %s\n", *keystorePath)
}
