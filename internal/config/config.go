// Package config loads BTPS connector configuration from built-in
// defaults, a YAML file, and environment variables: the file overrides
// the defaults and the environment overrides both — the viper-backed
// counterpart to the teacher's environment-variable loader.
package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Environment variable names, mirroring the teacher's EPHEMOS_* table
// under the BTPS_ prefix (spec §6 "Connector configuration").
const (
	EnvIdentity   = "BTPS_IDENTITY"
	EnvSelector   = "BTPS_SELECTOR"
	EnvHost       = "BTPS_HOST"
	EnvPort       = "BTPS_PORT"
	EnvMaxRetries = "BTPS_MAX_RETRIES"
	EnvLogLevel   = "BTPS_LOG_LEVEL"
)

// TLSConfig holds the connector's transport security settings.
type TLSConfig struct {
	AllowSelfSigned bool   `mapstructure:"allow_self_signed"`
	CAFile          string `mapstructure:"ca_file"`
}

// KeysConfig locates the local identity's key material on disk.
type KeysConfig struct {
	PrivateKeyFile string `mapstructure:"private_key_file"`
	PublicKeyFile  string `mapstructure:"public_key_file"`
}

// Configuration is the root of a BTPS connector's YAML/env
// configuration (spec §6).
type Configuration struct {
	Identity string     `mapstructure:"identity"`
	Selector string     `mapstructure:"selector"`
	Keys     KeysConfig `mapstructure:"keys"`

	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	MaxRetries          int `mapstructure:"max_retries"`
	RetryDelayMs        int `mapstructure:"retry_delay_ms"`
	ConnectionTimeoutMs int `mapstructure:"connection_timeout_ms"`
	MaxLineBytes        int `mapstructure:"max_line_bytes"`

	TLS TLSConfig `mapstructure:"tls"`

	Encryption string `mapstructure:"encryption"`

	TrustStorePath string `mapstructure:"trust_store_path"`
	LogLevel       string `mapstructure:"log_level"`
}

// Validate checks field-level invariants the type system can't
// express, matching the teacher's fail-fast config validation
// pattern.
func (c *Configuration) Validate() error {
	if strings.TrimSpace(c.Identity) == "" {
		return fmt.Errorf("config: identity must not be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	switch strings.ToLower(c.Encryption) {
	case "", "none", "standard", "2fa":
	default:
		return fmt.Errorf("config: unsupported encryption mode %q", c.Encryption)
	}
	return nil
}

// Default returns a Configuration with the package's built-in
// defaults, before any file or environment override is applied.
func Default() *Configuration {
	return &Configuration{
		MaxRetries:          3,
		RetryDelayMs:        250,
		ConnectionTimeoutMs: 5000,
		MaxLineBytes:        1 << 20,
		Encryption:          "none",
		TrustStorePath:      "trust-store.json",
		LogLevel:            "info",
	}
}

// Load reads configuration from path (if non-empty), overlays
// BTPS_*-prefixed environment variables, and decodes the result into
// a validated Configuration. An empty path loads defaults plus
// environment overrides only.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("btps")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about, so
	// keys without a default are bound to their BTPS_* variables here.
	for _, key := range []string{"identity", "selector", "host", "port"} {
		_ = v.BindEnv(key)
	}

	defaults := Default()
	v.SetDefault("max_retries", defaults.MaxRetries)
	v.SetDefault("retry_delay_ms", defaults.RetryDelayMs)
	v.SetDefault("connection_timeout_ms", defaults.ConnectionTimeoutMs)
	v.SetDefault("max_line_bytes", defaults.MaxLineBytes)
	v.SetDefault("encryption", defaults.Encryption)
	v.SetDefault("trust_store_path", defaults.TrustStorePath)
	v.SetDefault("log_level", defaults.LogLevel)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Configuration
	decodeHook := mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
