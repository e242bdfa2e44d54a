package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/internal/audit"
	merrors "github.com/finchsec/magpie/internal/errors"
	"github.com/finchsec/magpie/internal/ui"
)

var (
	removeProject      string
	removeWholeProject bool
)

var vaultRemoveCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Removes a secret (or a whole project) from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		Logger.Infof("Starting vault remove command for: %s", target)
		spinner, cleanup := startSpinner("Removing from vault...", verbose)
		defer cleanup()

		store, _, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		ctx := cmd.Context()

		if removeWholeProject {
			if err := store.RemoveProject(ctx, target); err != nil {
				if errors.Is(err, merrors.ErrProjectNotFound) {
					spinner.FinalMSG = ui.Error.Sprint("✗") + " Project " + ui.Highlight.Sprint(target) + " does not exist"
					return nil
				}
				return Logger.ErrorfAndReturn("failed to remove project: %v", err)
			}
			if err := store.Save(ctx); err != nil {
				return Logger.ErrorfAndReturn("failed to save vault: %v", err)
			}
			audit.Log(audit.Entry{
				Operation: "vault.remove-project",
				Project:   target,
				Status:    "ok",
			})
			spinner.FinalMSG = ui.Success.Sprint("✓") + " Removed project " + ui.Highlight.Sprint(target) +
				" and all of its secrets"
			return nil
		}

		projectName := removeProject
		if projectName == "" {
			projectName = resolveProject()
		}

		if err := store.DeleteSecret(ctx, projectName, target); err != nil {
			if errors.Is(err, merrors.ErrProjectNotFound) {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " Project " + ui.Highlight.Sprint(projectName) + " does not exist"
				return nil
			}
			if errors.Is(err, merrors.ErrSecretNotFound) {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " Secret " + ui.Highlight.Sprint(target) +
					" not found in project " + ui.Highlight.Sprint(projectName)
				return nil
			}
			return Logger.ErrorfAndReturn("failed to remove secret: %v", err)
		}

		if err := store.Save(ctx); err != nil {
			return Logger.ErrorfAndReturn("failed to save vault: %v", err)
		}

		audit.Log(audit.Entry{
			Operation: "vault.remove",
			Project:   projectName,
			SecretKey: target,
			Status:    "ok",
		})

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Removed " + ui.Highlight.Sprint(target) +
			" from project " + ui.Highlight.Sprint(projectName)
		return nil
	},
}

func init() {
	vaultRemoveCmd.Flags().StringVarP(&removeProject, "project", "p", "", "project containing the secret")
	vaultRemoveCmd.Flags().BoolVar(&removeWholeProject, "project-only", false, "treat the argument as a project name and remove the whole project")
}
