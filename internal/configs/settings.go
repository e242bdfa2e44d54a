package configs

import (
	"log"
	"os"
	"path/filepath"
)

type UserSettings struct {
	UserDataPath    string
	UserConfigsPath string
}

var UserMagpieSettings *UserSettings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	// This is independent of what repo you are in, so it is ok to init here
	UserMagpieSettings = &UserSettings{
		UserDataPath:    filepath.Join(dataDir, "magpie"),
		UserConfigsPath: filepath.Join(configDir, "magpie"),
	}
}

// DefaultVaultPath returns the default location of the vault file.
func DefaultVaultPath() string {
	return filepath.Join(UserMagpieSettings.UserDataPath, "vault.json")
}
