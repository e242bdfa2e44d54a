package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/internal/audit"
	merrors "github.com/finchsec/magpie/internal/errors"
	"github.com/finchsec/magpie/internal/ui"
)

var vaultInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates a new encrypted vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault init command")
		spinner, cleanup := startSpinner("Initializing vault...", verbose)
		defer cleanup()

		store, config, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		if err := store.Initialize(cmd.Context()); err != nil {
			if errors.Is(err, merrors.ErrVaultAlreadyInitialized) {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " Vault already exists at " + ui.Path.Sprint(store.Path()) + "\n" +
					ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("magpie status") + " to inspect it"
				return nil
			}
			if errors.Is(err, merrors.ErrNoKeyGroups) {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " No encryption keys configured\n" +
					ui.Info.Sprint("→") + " Add an age, PGP, or KMS key under " +
					ui.Code.Sprint("[sops]") + " in your config file"
				return nil
			}
			if errors.Is(err, merrors.ErrSopsNotFound) {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " The " + ui.Highlight.Sprint(config.Sops.Binary) +
					" binary was not found on PATH\n" +
					ui.Info.Sprint("→") + " Install sops and try again"
				return nil
			}
			return Logger.ErrorfAndReturn("failed to initialize vault: %v", err)
		}

		audit.Log(audit.Entry{
			Operation: "vault.init",
			Status:    "ok",
		})

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Vault created at " + ui.Path.Sprint(store.Path()) + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("magpie harvest <service-id> --store") + " to start filling it"
		return nil
	},
}
