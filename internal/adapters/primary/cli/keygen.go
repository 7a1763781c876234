package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/btps-org/btps-core/internal/adapters/secondary/crypto"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen <private-key-out> <public-key-out>",
	Short: "Generate a new RSA identity key pair",
	Args:  cobra.ExactArgs(2),
	RunE:  runKeygen,
}

func init() {
	keygenCmd.Flags().Int("bits", crypto.DefaultKeyBits, "RSA modulus size in bits")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	privPath, pubPath := args[0], args[1]
	bits, _ := cmd.Flags().GetInt("bits")

	key, err := crypto.GenerateKeyPair(bits)
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}

	if err := os.WriteFile(privPath, crypto.EncodePrivateKeyPEM(key), 0o600); err != nil {
		return fmt.Errorf("keygen: writing %s: %w", privPath, err)
	}
	pubPEM, err := crypto.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("keygen: writing %s: %w", pubPath, err)
	}

	fingerprint, err := crypto.Fingerprint(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\nfingerprint: %s\n", privPath, pubPath, fingerprint)
	return nil
}
