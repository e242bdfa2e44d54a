package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	merrors "github.com/finchsec/magpie/internal/errors"
	"github.com/finchsec/magpie/internal/registry"
	"github.com/finchsec/magpie/internal/ui"
)

var InfoCmd = &cobra.Command{
	Use:   "info <service-id>",
	Short: "Shows catalog details for a single service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceID := args[0]
		Logger.Infof("Starting info command for service: %s", serviceID)

		svc := registry.ServiceByID(serviceID)
		if svc == nil {
			fmt.Println(ui.Error.Sprint("✗") + " Unknown service: " + ui.Highlight.Sprint(serviceID))
			fmt.Println(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("magpie discover") + " to list known services")
			return merrors.ErrServiceNotFound
		}

		var b strings.Builder
		b.WriteString(ui.Success.Sprint("✓") + " " + ui.Highlight.Sprint(svc.Name) +
			" (" + svc.ID + ")\n")
		b.WriteString(fmt.Sprintf("    Category:    %s\n", svc.Category))
		b.WriteString(fmt.Sprintf("    Popularity:  %d\n", svc.Popularity))
		b.WriteString(fmt.Sprintf("    Website:     %s\n", svc.Website))
		b.WriteString(fmt.Sprintf("    Docs:        %s\n", svc.DocsURL))
		b.WriteString(fmt.Sprintf("    Auth:        %s\n", strings.Join(svc.AuthMethods, ", ")))
		b.WriteString(fmt.Sprintf("    Rotation:    %s\n", yesNo(svc.RotationSupported)))

		if len(svc.KeyFormats) > 0 {
			b.WriteString("    Key formats:\n")
			for _, format := range svc.KeyFormats {
				b.WriteString(fmt.Sprintf("        %-22s %s  %s\n",
					ui.Highlight.Sprint(format.EnvVarName), format.Pattern,
					ui.Muted.Sprint(format.Example)))
			}
		}

		if svc.CLI.Available {
			b.WriteString("    CLI tool:    " + ui.Highlight.Sprint(svc.CLI.ToolName) + "\n")
			b.WriteString(fmt.Sprintf("        Install:     %s\n", svc.CLI.InstallCommand))
			if svc.CLI.AuthCommand != "" {
				b.WriteString(fmt.Sprintf("        Auth:        %s\n", svc.CLI.AuthCommand))
			}
			if svc.CLI.ConfigPath != "" {
				b.WriteString(fmt.Sprintf("        Config:      %s\n", svc.CLI.ConfigPath))
			}
			b.WriteString(fmt.Sprintf("        Extraction:  %s\n", svc.CLI.KeyExtractionMethod))
			b.WriteString(ui.Info.Sprint("→") + " Run " +
				ui.Code.Sprint("magpie harvest "+svc.ID) + " to harvest credentials\n")
		} else {
			b.WriteString("    CLI tool:    " + ui.Muted.Sprint("not available") + "\n")
			b.WriteString(ui.Info.Sprint("→") + " Add this credential manually with " +
				ui.Code.Sprint("magpie vault add") + "\n")
		}

		fmt.Print(b.String())
		return nil
	},
}

func init() {
	bindCommonFlags(InfoCmd)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
