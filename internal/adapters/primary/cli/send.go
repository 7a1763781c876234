package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/btps-org/btps-core/internal/adapters/metrics"
	btpscrypto "github.com/btps-org/btps-core/internal/adapters/secondary/crypto"
	"github.com/btps-org/btps-core/internal/config"
	"github.com/btps-org/btps-core/internal/core/domain"
	"github.com/btps-org/btps-core/internal/core/services"
	"github.com/btps-org/btps-core/pkg/btps"
)

var sendCmd = &cobra.Command{
	Use:   "send <to> <type> <document-json>",
	Short: "Sign, optionally encrypt, and send an artifact to a recipient",
	Long: `Send connects to the recipient's domain, signs the given document as
the configured identity, and writes the resulting artifact to the
wire. It waits for the connector's next event (a response, an error,
or the connection ending) before exiting.

Example:
  btps-cli send billing$vendor.com BTP_QUERY '{"query":"invoice.status","args":{"invoiceNumber":"INV-1"}}' \
    --config btps.yaml`,
	Args: cobra.ExactArgs(3),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringP("config", "c", "", "Path to connector configuration file")
	sendCmd.Flags().Duration("wait", 10*time.Second, "How long to wait for a response event")
}

func runSend(cmd *cobra.Command, args []string) error {
	to, artifactType, documentJSON := args[0], domain.ArtifactType(args[1]), args[2]

	configPath, _ := cmd.Flags().GetString("config")
	waitFor, _ := cmd.Flags().GetDuration("wait")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	doc, err := domain.NewDocument(artifactType)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := json.Unmarshal([]byte(documentJSON), doc); err != nil {
		return fmt.Errorf("send: decoding document: %w", err)
	}
	if err := domain.DecodeDocument(artifactType, doc); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	priv, err := btpscrypto.LoadPrivateKeyFile(cfg.Keys.PrivateKeyFile)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	pub, err := btpscrypto.LoadPublicKeyFile(cfg.Keys.PublicKeyFile)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	from, err := domain.ParseIdentity(cfg.Identity)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	toID, err := domain.ParseIdentity(to)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	session, err := btps.Dial(cmd.Context(), cfg, to, btps.Options{
		PrivateKey: priv,
		PublicKey:  pub,
		Metrics:    metrics.NewPrometheusMetrics(),
	})
	if err != nil {
		return fmt.Errorf("send: connect: %w", err)
	}
	defer session.Destroy()

	events, cancel := session.Events(8)
	defer cancel()

	if err := session.Send(cmd.Context(), toID, from, artifactType, doc); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	deadline := time.After(waitFor)
	for {
		select {
		case ev := <-events:
			if err := printEvent(cmd, ev); err != nil {
				return err
			}
			if _, sent := ev.(services.EventMessageSent); !sent {
				return nil
			}
		case <-deadline:
			fmt.Fprintln(cmd.OutOrStdout(), "send: no response within timeout")
			return nil
		}
	}
}

func printEvent(cmd *cobra.Command, ev services.Event) error {
	switch e := ev.(type) {
	case services.EventMessage:
		body, err := json.MarshalIndent(e.Envelope, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
	case services.EventMessageSent:
		fmt.Fprintf(cmd.OutOrStdout(), "sent artifact %s\n", e.ID)
	case services.EventError:
		fmt.Fprintf(cmd.OutOrStdout(), "error: %v (willRetry=%v)\n", e.Err, e.Info.WillRetry)
	case services.EventEnd:
		fmt.Fprintln(cmd.OutOrStdout(), "connection ended")
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "event: %T\n", ev)
	}
	return nil
}
