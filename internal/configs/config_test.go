package configs

import (
	"path/filepath"
	"testing"
)

// withTempSettings points the user settings at temp directories for
// the duration of a test.
func withTempSettings(t *testing.T) {
	t.Helper()
	original := UserMagpieSettings
	UserMagpieSettings = &UserSettings{
		UserDataPath:    filepath.Join(t.TempDir(), "data"),
		UserConfigsPath: filepath.Join(t.TempDir(), "configs"),
	}
	t.Cleanup(func() { UserMagpieSettings = original })
}

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	withTempSettings(t)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.Vault.Path != DefaultVaultPath() {
		t.Errorf("vault path = %q, want default %q", config.Vault.Path, DefaultVaultPath())
	}
	if config.Vault.BackupRetention != 5 {
		t.Errorf("backup retention = %d, want 5", config.Vault.BackupRetention)
	}
	if config.Vault.DefaultProject != "default" {
		t.Errorf("default project = %q, want default", config.Vault.DefaultProject)
	}
	if config.Sops.Binary != "sops" {
		t.Errorf("sops binary = %q, want sops", config.Sops.Binary)
	}
}

func TestSaveLoadConfigRoundtrip(t *testing.T) {
	withTempSettings(t)

	config := DefaultConfig()
	config.Vault.Path = "/custom/vault.json"
	config.Vault.BackupRetention = 10
	config.Vault.DefaultProject = "work"
	config.Sops.Binary = "/usr/local/bin/sops"
	config.Sops.Age = []string{"age1xyz", "age1abc"}

	if err := SaveConfig(config); err != nil {
		t.Fatalf("SaveConfig() failed: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if loaded.Vault.Path != "/custom/vault.json" {
		t.Errorf("vault path = %q", loaded.Vault.Path)
	}
	if loaded.Vault.BackupRetention != 10 {
		t.Errorf("backup retention = %d", loaded.Vault.BackupRetention)
	}
	if loaded.Vault.DefaultProject != "work" {
		t.Errorf("default project = %q", loaded.Vault.DefaultProject)
	}
	if len(loaded.Sops.Age) != 2 || loaded.Sops.Age[0] != "age1xyz" {
		t.Errorf("age recipients = %v", loaded.Sops.Age)
	}
}

func TestLoadConfigBackfillsZeroValues(t *testing.T) {
	withTempSettings(t)

	// A config file with empty and zero fields falls back to defaults
	// on load.
	config := &Config{}
	if err := SaveConfig(config); err != nil {
		t.Fatalf("SaveConfig() failed: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if loaded.Vault.Path == "" {
		t.Error("empty vault path should fall back to the default")
	}
	if loaded.Vault.BackupRetention != 5 {
		t.Errorf("backup retention = %d, want backfilled 5", loaded.Vault.BackupRetention)
	}
	if loaded.Sops.Binary != "sops" {
		t.Errorf("sops binary = %q, want backfilled sops", loaded.Sops.Binary)
	}
}
