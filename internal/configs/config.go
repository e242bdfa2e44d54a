package configs

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Vault VaultConfig `toml:"vault"`
	Sops  SopsConfig  `toml:"sops"`
}

type VaultConfig struct {
	// Path is the location of the encrypted vault file.
	// Empty means the default under the user data directory.
	Path string `toml:"path"`

	// BackupRetention is how many timestamped backups to keep.
	BackupRetention int `toml:"backup_retention"`

	// DefaultProject is the project used when commands omit --project.
	DefaultProject string `toml:"default_project"`
}

type SopsConfig struct {
	// Binary is the name or path of the sops executable.
	Binary string `toml:"binary"`

	// Key groups, concatenated additively when encrypting.
	KMS          []string `toml:"kms"`
	PGP          []string `toml:"pgp"`
	Age          []string `toml:"age"`
	VaultTransit []string `toml:"vault_transit"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			Path:            DefaultVaultPath(),
			BackupRetention: 5,
			DefaultProject:  "default",
		},
		Sops: SopsConfig{
			Binary: "sops",
		},
	}
}

// LoadConfig loads the user configuration from the config file.
// A missing file yields the default configuration, not an error.
func LoadConfig() (*Config, error) {
	configPath := filepath.Join(UserMagpieSettings.UserConfigsPath, "config.toml")

	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Vault.Path == "" {
		config.Vault.Path = DefaultVaultPath()
	}
	if config.Vault.BackupRetention <= 0 {
		config.Vault.BackupRetention = 5
	}
	if config.Sops.Binary == "" {
		config.Sops.Binary = "sops"
	}

	return config, nil
}

// SaveConfig writes the user configuration to the config file.
func SaveConfig(config *Config) error {
	configPath := filepath.Join(UserMagpieSettings.UserConfigsPath, "config.toml")

	if err := SaveTOML(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}
