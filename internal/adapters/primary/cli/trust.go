package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/btps-org/btps-core/internal/adapters/secondary/truststore"
	"github.com/btps-org/btps-core/internal/core/domain"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Manage the local persistent trust store",
}

var trustLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List trust records",
	RunE:  runTrustLs,
}

var trustShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one trust record",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrustShow,
}

var trustRequestCmd = &cobra.Command{
	Use:   "request <sender> <receiver>",
	Short: "Create a requested trust record between sender and receiver",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrustRequest,
}

var trustRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Mark a trust record revoked",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrustRevoke,
}

func init() {
	trustCmd.PersistentFlags().String("store", "trust-store.json", "Path to the trust store file")
	trustCmd.PersistentFlags().String("entity", "", "Top-level JSON key wrapping the record array (empty = bare array)")
	trustCmd.AddCommand(trustLsCmd, trustShowCmd, trustRequestCmd, trustRevokeCmd)
}

func openStore(cmd *cobra.Command) *truststore.FileStore {
	path, _ := cmd.Flags().GetString("store")
	entity, _ := cmd.Flags().GetString("entity")
	return truststore.NewFileStore(path, entity)
}

func runTrustLs(cmd *cobra.Command, args []string) error {
	store := openStore(cmd)
	defer store.Close()

	records, err := store.GetAll("")
	if err != nil {
		return fmt.Errorf("trust ls: %w", err)
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runTrustShow(cmd *cobra.Command, args []string) error {
	store := openStore(cmd)
	defer store.Close()

	rec, ok, err := store.GetByID(args[0])
	if err != nil {
		return fmt.Errorf("trust show: %w", err)
	}
	if !ok {
		return fmt.Errorf("trust show: no record with id %q", args[0])
	}
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runTrustRequest(cmd *cobra.Command, args []string) error {
	store := openStore(cmd)
	defer store.Close()

	sender, receiver := args[0], args[1]
	if _, err := domain.ParseIdentity(sender); err != nil {
		return fmt.Errorf("trust request: sender: %w", err)
	}
	if _, err := domain.ParseIdentity(receiver); err != nil {
		return fmt.Errorf("trust request: receiver: %w", err)
	}

	rec := domain.TrustRecord{
		SenderID:   sender,
		ReceiverID: receiver,
		Status:     domain.TrustRequested,
		IssuedAt:   time.Now().UTC(),
	}
	created, err := store.Create(rec, "")
	if err != nil {
		return fmt.Errorf("trust request: %w", err)
	}
	out, err := json.MarshalIndent(created, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runTrustRevoke(cmd *cobra.Command, args []string) error {
	store := openStore(cmd)
	defer store.Close()

	now := time.Now().UTC()
	updated, err := store.Update(args[0], map[string]any{
		"status":    string(domain.TrustRevoked),
		"decidedAt": now,
	})
	if err != nil {
		return fmt.Errorf("trust revoke: %w", err)
	}
	out, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
