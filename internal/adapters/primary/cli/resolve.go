package cli

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/btps-org/btps-core/internal/adapters/secondary/dns"
	"github.com/btps-org/btps-core/internal/core/domain"
	"github.com/btps-org/btps-core/internal/core/ports"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <domain-or-identity>",
	Short: "Resolve a BTPS domain's host record, or an identity's key record",
	Long: `With a bare domain (no "$"), resolve prints the domain's
_btps.<domain> host record (host and selector).

With an "account$domain" identity and --selector, resolve prints the
identity's <selector>._btps.<account>.<domain> key record.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().String("selector", "", "Selector to resolve a key record for (requires an identity argument)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	target := args[0]
	selector, _ := cmd.Flags().GetString("selector")
	resolver := dns.New()

	if selector == "" {
		rec, err := resolver.ResolveHost(cmd.Context(), target)
		if err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "host: %s\nselector: %s\n", rec.Host, rec.Selector)
		return nil
	}

	id, err := domain.ParseIdentity(target)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	pemBytes, err := resolver.ResolveKey(cmd.Context(), id, selector, ports.KeyFieldPEM)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString([]byte(pemBytes)))
	return nil
}
