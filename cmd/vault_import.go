package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/internal/audit"
	"github.com/finchsec/magpie/internal/ui"
	"github.com/finchsec/magpie/internal/vault"
)

var (
	importGlob      string
	importProject   string
	importCategory  string
	importOverwrite bool
)

var vaultImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Imports .env files into the vault",
	Long: `Finds .env files matching the given glob pattern and imports their
key=value pairs into a vault project. Existing keys are skipped unless
--overwrite is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault import command with pattern: %s", importGlob)
		spinner, cleanup := startSpinner("Importing environment files...", verbose)
		defer cleanup()

		files, err := doublestar.FilepathGlob(importGlob)
		if err != nil {
			return Logger.ErrorfAndReturn("invalid glob pattern %q: %v", importGlob, err)
		}
		if len(files) == 0 {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " No files matched " + ui.Highlight.Sprint(importGlob)
			return nil
		}
		Logger.Debugf("Found %d file(s) matching pattern", len(files))

		store, _, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		ctx := cmd.Context()
		projectName := importProject
		if projectName == "" {
			projectName = resolveProject()
		}

		totalImported, totalSkipped := 0, 0
		var b strings.Builder
		for _, file := range files {
			content, err := os.ReadFile(file)
			if err != nil {
				b.WriteString("    " + ui.Error.Sprint("✗") + " " + file + ": " + err.Error() + "\n")
				continue
			}

			result, err := store.ImportEnv(ctx, string(content), vault.ImportOptions{
				Project:   projectName,
				Category:  importCategory,
				EnvFile:   file,
				Overwrite: importOverwrite,
			})
			if err != nil {
				return Logger.ErrorfAndReturn("failed to import %s: %v", file, err)
			}

			totalImported += len(result.Imported)
			totalSkipped += len(result.Skipped)
			b.WriteString(fmt.Sprintf("    %s %s: %d imported, %d skipped\n",
				ui.Success.Sprint("✓"), file, len(result.Imported), len(result.Skipped)))
			for _, importErr := range result.Errors {
				b.WriteString("        " + ui.Warning.Sprint("!") + " " + importErr.Key +
					": " + importErr.Message + "\n")
			}
		}

		if totalImported > 0 {
			if err := store.Save(ctx); err != nil {
				return Logger.ErrorfAndReturn("failed to save vault: %v", err)
			}
		}

		audit.Log(audit.Entry{
			Operation:    "vault.import",
			Project:      projectName,
			Status:       "ok",
			KeysCount:    totalImported,
			SkippedCount: totalSkipped,
		})

		summary := ui.Success.Sprint("✓") + fmt.Sprintf(" Imported %d key(s) into project ", totalImported) +
			ui.Highlight.Sprint(projectName)
		if totalSkipped > 0 {
			summary += fmt.Sprintf(" (%d skipped; use %s to replace them)",
				totalSkipped, ui.Code.Sprint("--overwrite"))
		}
		spinner.FinalMSG = summary + "\n" + b.String()
		return nil
	},
}

func init() {
	vaultImportCmd.Flags().StringVarP(&importGlob, "file", "f", ".env", "glob pattern of .env files to import")
	vaultImportCmd.Flags().StringVarP(&importProject, "project", "p", "", "vault project to import into")
	vaultImportCmd.Flags().StringVarP(&importCategory, "category", "c", "", "category stamped onto imported secrets")
	vaultImportCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "replace keys that already exist")
}
