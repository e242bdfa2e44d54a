package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/internal/audit"
	merrors "github.com/finchsec/magpie/internal/errors"
	"github.com/finchsec/magpie/internal/ui"
	"github.com/finchsec/magpie/internal/vault"
)

var (
	addProject     string
	addDescription string
	addCategory    string
	addTags        []string
	addOverwrite   bool
)

var vaultAddCmd = &cobra.Command{
	Use:   "add <key> <value>",
	Short: "Adds a secret to the vault manually",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		Logger.Infof("Starting vault add command for key: %s", key)
		spinner, cleanup := startSpinner("Adding secret...", verbose)
		defer cleanup()

		store, _, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		ctx := cmd.Context()
		projectName := addProject
		if projectName == "" {
			projectName = resolveProject()
		}

		if project, err := store.GetProject(ctx, projectName); err != nil {
			return Logger.ErrorfAndReturn("failed to read vault: %v", err)
		} else if project == nil {
			if _, err := store.CreateProject(ctx, projectName, ""); err != nil {
				return Logger.ErrorfAndReturn("failed to create project: %v", err)
			}
		}

		err = store.AddSecret(ctx, projectName, vault.SecretEntry{
			Key:         key,
			Value:       value,
			Description: addDescription,
			Source:      vault.SourceManual,
			Category:    addCategory,
			Tags:        addTags,
		})
		if errors.Is(err, merrors.ErrSecretExists) {
			if !addOverwrite {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " Secret " + ui.Highlight.Sprint(key) +
					" already exists in project " + ui.Highlight.Sprint(projectName) + "\n" +
					ui.Info.Sprint("→") + " Re-run with " + ui.Code.Sprint("--overwrite") + " to replace it"
				return nil
			}
			err = store.UpdateSecret(ctx, projectName, key, vault.SecretUpdate{
				Value:       &value,
				Description: &addDescription,
				Category:    &addCategory,
				Tags:        addTags,
			})
		}
		if err != nil {
			return Logger.ErrorfAndReturn("failed to add secret: %v", err)
		}

		if err := store.Save(ctx); err != nil {
			return Logger.ErrorfAndReturn("failed to save vault: %v", err)
		}

		audit.Log(audit.Entry{
			Operation: "vault.add",
			Project:   projectName,
			SecretKey: key,
			Status:    "ok",
		})

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Stored " + ui.Highlight.Sprint(key) +
			" in project " + ui.Highlight.Sprint(projectName)
		return nil
	},
}

func init() {
	vaultAddCmd.Flags().StringVarP(&addProject, "project", "p", "", "vault project to store the secret in")
	vaultAddCmd.Flags().StringVar(&addDescription, "description", "", "human-readable description")
	vaultAddCmd.Flags().StringVarP(&addCategory, "category", "c", "", "category label")
	vaultAddCmd.Flags().StringSliceVarP(&addTags, "tag", "t", nil, "tags to attach (repeatable)")
	vaultAddCmd.Flags().BoolVar(&addOverwrite, "overwrite", false, "replace the secret if it already exists")
}
