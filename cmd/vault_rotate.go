package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/internal/audit"
	merrors "github.com/finchsec/magpie/internal/errors"
	"github.com/finchsec/magpie/internal/sops"
	"github.com/finchsec/magpie/internal/ui"
)

var rotateUpdateKeys bool

var vaultRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotates the vault's data key",
	Long: `Generates a new data key for the vault file and re-encrypts its
contents. With --update-keys, the configured key groups are also added
as recipients, which is how new age, PGP, or KMS keys gain access.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault rotate command")
		spinner, cleanup := startSpinner("Rotating vault keys...", verbose)
		defer cleanup()

		store, config, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		if _, err := os.Stat(store.Path()); err != nil {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " No vault found at " + ui.Path.Sprint(store.Path()) + "\n" +
				ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("magpie vault init") + " first"
			return nil
		}

		shim := sops.New(config.Sops.Binary)
		ctx := cmd.Context()

		if rotateUpdateKeys {
			groups := sops.KeyGroups{
				KMS:          config.Sops.KMS,
				PGP:          config.Sops.PGP,
				Age:          config.Sops.Age,
				VaultTransit: config.Sops.VaultTransit,
			}
			err = shim.UpdateKeys(ctx, store.Path(), groups)
			if errors.Is(err, merrors.ErrNoKeyGroups) {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " No key groups configured to add\n" +
					ui.Info.Sprint("→") + " Add recipients under " + ui.Code.Sprint("[sops]") +
					" in your config file"
				return nil
			}
		} else {
			err = shim.Rotate(ctx, store.Path())
		}
		if err != nil {
			if errors.Is(err, merrors.ErrSopsNotFound) {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " The " + ui.Highlight.Sprint(config.Sops.Binary) +
					" binary was not found on PATH"
				return nil
			}
			return Logger.ErrorfAndReturn("failed to rotate vault keys: %v", err)
		}

		audit.Log(audit.Entry{
			Operation: "vault.rotate",
			Status:    "ok",
		})

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Vault data key rotated"
		return nil
	},
}

func init() {
	vaultRotateCmd.Flags().BoolVar(&rotateUpdateKeys, "update-keys", false, "also add the configured key groups as recipients")
}
