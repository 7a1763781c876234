package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	t.Setenv(EnvIdentity, "alice$example.org")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "alice$example.org", cfg.Identity)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 250, cfg.RetryDelayMs)
	assert.Equal(t, "none", cfg.Encryption)
}

func TestLoad_MissingIdentityIsError(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv(EnvIdentity, "alice$example.org")
	t.Setenv(EnvMaxRetries, "9")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.MaxRetries)
}

func TestLoad_FileOverridesDefaultsButNotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "btps.yaml")
	yaml := "identity: bob$vendor.example\nmax_retries: 5\nencryption: standard\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv(EnvMaxRetries, "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bob$vendor.example", cfg.Identity)
	assert.Equal(t, "standard", cfg.Encryption)
	assert.Equal(t, 7, cfg.MaxRetries)
}

func TestConfiguration_Validate_RejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Identity = "alice$example.org"
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestConfiguration_Validate_RejectsUnknownEncryption(t *testing.T) {
	cfg := Default()
	cfg.Identity = "alice$example.org"
	cfg.Encryption = "rot13"
	assert.Error(t, cfg.Validate())
}

func TestConfiguration_Validate_RejectsNegativeMaxRetries(t *testing.T) {
	cfg := Default()
	cfg.Identity = "alice$example.org"
	cfg.MaxRetries = -1
	assert.Error(t, cfg.Validate())
}
