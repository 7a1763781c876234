// btps-cli is the command-line interface for the BTPS protocol core.
//
// It sends signed (and optionally encrypted) artifacts to a peer
// domain, inspects and manages the local trust store, resolves a
// domain's BTPS DNS records, and generates RSA identity key pairs.
//
// Usage:
//
//	btps-cli send <to> <type> <document-json> --config btps.yaml
//	btps-cli trust ls --store trust-store.json
//	btps-cli resolve example.org
//	btps-cli keygen private.pem public.pem
//	btps-cli --help
package main

import (
	"fmt"
	"os"

	"github.com/btps-org/btps-core/internal/adapters/primary/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
