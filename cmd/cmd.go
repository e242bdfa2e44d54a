package cmd

import (
	"github.com/finchsec/magpie/internal/configs"
	logger "github.com/finchsec/magpie/internal/logging"
	"github.com/finchsec/magpie/internal/sops"
	"github.com/finchsec/magpie/internal/vault"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger
)

// bindCommonFlags attaches the shared verbosity flags and logger setup
// to a top-level command.
func bindCommonFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		Logger = logger.Logger{
			Verbose: verbose,
			Debug:   debug,
		}
		Logger.Debugf("Initializing %s command with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
	}
}

// openStore loads the user configuration and returns the vault store
// wired to the sops shim with the configured key groups.
func openStore() (*vault.Store, *configs.Config, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	shim := sops.New(config.Sops.Binary)
	groups := sops.KeyGroups{
		KMS:          config.Sops.KMS,
		PGP:          config.Sops.PGP,
		Age:          config.Sops.Age,
		VaultTransit: config.Sops.VaultTransit,
	}
	crypter := vault.NewSopsCrypter(shim, groups)
	store := vault.NewStore(config.Vault.Path, config.Vault.BackupRetention, crypter)
	return store, config, nil
}

// Helper functions for testing

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
