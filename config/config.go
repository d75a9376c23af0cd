// Package config handles SDK and CLI configuration.
//
// Cryptographic constants (curve order, HKDF salt, domain tag) are fixed by
// the signing ecosystem and never configurable; this package only covers
// operator-facing settings: where the keystore lives, which derivation
// prefix new subaccounts use, how addresses are marked, and how logs are
// written.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/risingsealabs/saline-sdk/pkg/account"
	"github.com/risingsealabs/saline-sdk/pkg/keygen"
)

// Config holds runtime SDK settings.
type Config struct {
	// KeystoreDir is where encrypted account files are stored.
	KeystoreDir string `conf:"keystore_dir"`

	// BasePath is the derivation prefix for new accounts.
	BasePath string `conf:"base_path"`

	// AddressPrefix is the network marker prepended to addresses.
	AddressPrefix string `conf:"address_prefix"`

	// Logging
	Log LogConfig
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `conf:"log_level"` // debug, info, warn, error
	JSON  bool   `conf:"log_json"`
	File  string `conf:"log_file"`
}

// Default returns the configuration used when no file or flags override it.
func Default() *Config {
	return &Config{
		KeystoreDir:   defaultKeystoreDir(),
		BasePath:      account.DefaultBasePath,
		AddressPrefix: account.AddressPrefix,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// defaultKeystoreDir returns ~/.saline/keystore, falling back to a relative
// directory when the home directory is unknown.
func defaultKeystoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".saline", "keystore")
	}
	return filepath.Join(home, ".saline", "keystore")
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.KeystoreDir == "" {
		return fmt.Errorf("keystore_dir must not be empty")
	}
	if _, err := keygen.ParsePath(c.BasePath); err != nil {
		return fmt.Errorf("base_path: %w", err)
	}
	if c.AddressPrefix == "" {
		return fmt.Errorf("address_prefix must not be empty")
	}
	for _, r := range c.AddressPrefix {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return fmt.Errorf("address_prefix %q must be lowercase alphanumeric", c.AddressPrefix)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// Apply overlays file values onto the configuration. Unknown keys are
// rejected so typos in a config file fail loudly.
func (c *Config) Apply(values map[string]string) error {
	for key, value := range values {
		switch key {
		case "keystore_dir":
			c.KeystoreDir = value
		case "base_path":
			c.BasePath = value
		case "address_prefix":
			c.AddressPrefix = value
		case "log_level":
			c.Log.Level = value
		case "log_json":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("log_json: %w", err)
			}
			c.Log.JSON = b
		case "log_file":
			c.Log.File = value
		default:
			return fmt.Errorf("unknown config key %q", key)
		}
	}
	return nil
}

// Load builds the effective configuration: defaults, overlaid with the
// given file when it exists, then validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		values, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.Apply(values); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
