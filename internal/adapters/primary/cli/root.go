// Package cli implements the btps-cli command tree: sending
// artifacts, managing trust records, resolving BTPS DNS records, and
// generating identity key pairs.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "btps-cli",
	Short: "Command-line interface for the BTPS inter-domain messaging protocol",
	Long: `btps-cli drives a BTPS connector from the command line, for the
BTPS inter-domain messaging protocol.

Use it to send signed (and optionally encrypted) artifacts to a peer
domain, inspect and manage the local trust store, resolve a domain's
BTPS DNS records, and generate RSA identity key pairs.`,
}

// Execute runs the root command, returning any error cobra surfaces.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(trustCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(keygenCmd)
}
