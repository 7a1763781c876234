package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btps-org/btps-core/internal/adapters/secondary/truststore"
)

func TestRootCmd_HelpShowsUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no arguments", args: []string{}},
		{name: "help flag", args: []string{"--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rootCmd.SetOut(&buf)
			rootCmd.SetErr(&buf)
			rootCmd.SetArgs(tt.args)

			err := rootCmd.Execute()
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "BTPS inter-domain messaging protocol")
		})
	}
}

func TestRootCmd_UnknownSubcommandIsError(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"not-a-command"})

	err := rootCmd.Execute()
	assert.Error(t, err)
}

func TestKeygenCmd_WritesKeyPair(t *testing.T) {
	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	var buf bytes.Buffer
	keygenCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"keygen", privPath, pubPath, "--bits", "2048"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "fingerprint:")

	priv, err := os.ReadFile(privPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(priv), "PRIVATE KEY"))

	pub, err := os.ReadFile(pubPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(pub), "PUBLIC KEY"))
}

func TestKeygenCmd_WrongArgCountIsError(t *testing.T) {
	rootCmd.SetArgs([]string{"keygen", "onlyone"})
	assert.Error(t, rootCmd.Execute())
}

func TestTrustCmd_RequestLsShowRevoke(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "trust-store.json")

	var buf bytes.Buffer
	trustCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"trust", "request", "billing$vendor.example.org", "accounts$buyer.example.com", "--store", storePath})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), `"status": "requested"`)

	store := truststore.NewFileStore(storePath, "")
	all, err := store.GetAll("")
	require.NoError(t, err)
	require.Len(t, all, 1)
	id := all[0].ID

	buf.Reset()
	rootCmd.SetArgs([]string{"trust", "ls", "--store", storePath})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), id)

	buf.Reset()
	rootCmd.SetArgs([]string{"trust", "show", id, "--store", storePath})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "accounts$buyer.example.com")

	buf.Reset()
	rootCmd.SetArgs([]string{"trust", "revoke", id, "--store", storePath})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), `"status": "revoked"`)
}

func TestTrustCmd_ShowUnknownIDIsError(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "trust-store.json")
	rootCmd.SetArgs([]string{"trust", "show", "does-not-exist", "--store", storePath})
	assert.Error(t, rootCmd.Execute())
}
