package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/internal/ui"
	"github.com/finchsec/magpie/internal/vault"
)

var (
	listProject    string
	listCategory   string
	listTag        string
	listShowValues bool
)

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists secrets stored in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault list command")
		spinner, cleanup := startSpinner("Reading vault...", verbose)
		defer cleanup()

		store, _, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load configuration: %v", err)
		}

		entries, err := store.ListSecrets(cmd.Context(), vault.ListFilter{
			Project:  listProject,
			Category: listCategory,
			Tag:      listTag,
		})
		if err != nil {
			return Logger.ErrorfAndReturn("failed to list secrets: %v", err)
		}

		if len(entries) == 0 {
			spinner.FinalMSG = ui.Warning.Sprint("!") + " No secrets matched\n" +
				ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("magpie harvest <service-id> --store") +
				" or " + ui.Code.Sprint("magpie vault import") + " to add some"
			return nil
		}

		var b strings.Builder
		b.WriteString(ui.Success.Sprint("✓") + fmt.Sprintf(" %d secret(s)\n", len(entries)))
		for _, entry := range entries {
			value := ui.Muted.Sprint("********")
			if listShowValues {
				value = entry.Value
			}
			b.WriteString(fmt.Sprintf("    %-28s %s", ui.Highlight.Sprint(entry.Key), value))
			if entry.Category != "" {
				b.WriteString("  " + ui.Highlight.Sprint(entry.Category))
			}
			if entry.Source != "" {
				b.WriteString("  " + ui.Muted.Sprint(string(entry.Source)))
			}
			b.WriteString("\n")
		}

		spinner.FinalMSG = b.String()
		return nil
	},
}

func init() {
	vaultListCmd.Flags().StringVarP(&listProject, "project", "p", "", "only list secrets from this project")
	vaultListCmd.Flags().StringVarP(&listCategory, "category", "c", "", "only list secrets with this category")
	vaultListCmd.Flags().StringVarP(&listTag, "tag", "t", "", "only list secrets carrying this tag")
	vaultListCmd.Flags().BoolVar(&listShowValues, "show-values", false, "print secret values in plaintext")
}
