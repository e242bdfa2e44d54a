package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/internal/audit"
	"github.com/finchsec/magpie/internal/ui"
	"github.com/finchsec/magpie/internal/vault"
)

var (
	exportProject  string
	exportCategory string
	exportOutput   string
	exportComments bool
)

var vaultExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exports vault secrets as a .env file",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault export command")
		spinner, cleanup := startSpinner("Exporting secrets...", verbose)
		defer cleanup()

		store, _, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		projectName := exportProject
		if projectName == "" {
			projectName = resolveProject()
		}

		content, err := store.ExportEnv(cmd.Context(), vault.ExportOptions{
			Project:         projectName,
			Category:        exportCategory,
			IncludeComments: exportComments,
		})
		if err != nil {
			return Logger.ErrorfAndReturn("failed to export secrets: %v", err)
		}
		if content == "" {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " Nothing to export from project " +
				ui.Highlight.Sprint(projectName)
			return nil
		}

		if exportOutput == "" {
			spinner.FinalMSG = content
			return nil
		}

		// Secrets in plaintext: keep the file owner-only.
		if err := os.WriteFile(exportOutput, []byte(content), 0600); err != nil {
			return Logger.ErrorfAndReturn("failed to write %s: %v", exportOutput, err)
		}

		audit.Log(audit.Entry{
			Operation: "vault.export",
			Project:   projectName,
			Status:    "ok",
		})

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Exported project " + ui.Highlight.Sprint(projectName) +
			" to " + ui.Path.Sprint(exportOutput) + "\n" +
			fmt.Sprintf("    %s This file holds plaintext secrets. Delete it when done.", ui.Warning.Sprint("!"))
		return nil
	},
}

func init() {
	vaultExportCmd.Flags().StringVarP(&exportProject, "project", "p", "", "vault project to export")
	vaultExportCmd.Flags().StringVarP(&exportCategory, "category", "c", "", "only export secrets with this category")
	vaultExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to this file instead of stdout")
	vaultExportCmd.Flags().BoolVar(&exportComments, "comments", false, "include provenance comments in the output")
}
