package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/internal/registry"
	"github.com/finchsec/magpie/internal/ui"
)

var (
	discoverCategory string
	discoverTop      int
)

var DiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Lists services whose credentials Magpie can harvest",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting discover command")

		var services []registry.Service
		switch {
		case discoverCategory != "":
			services = registry.ServicesByCategory(discoverCategory)
		case discoverTop > 0:
			services = registry.TopServices(discoverTop)
		default:
			services = registry.TopServices(registry.RegistryStats().TotalServices)
		}

		if len(services) == 0 {
			fmt.Println(ui.Error.Sprint("✗") + " No services found" +
				categorySuffix(discoverCategory))
			return nil
		}

		var b strings.Builder
		b.WriteString(ui.Success.Sprint("✓") + fmt.Sprintf(" %d service(s)", len(services)) +
			categorySuffix(discoverCategory) + "\n")
		for _, svc := range services {
			cli := ui.Muted.Sprint("no CLI")
			if svc.CLI.Available {
				cli = ui.Highlight.Sprint(svc.CLI.ToolName)
			}
			b.WriteString(fmt.Sprintf("    %-14s %-16s %s %s\n",
				ui.Highlight.Sprint(svc.ID), svc.Category, cli,
				ui.Muted.Sprintf("popularity %d", svc.Popularity)))
		}

		stats := registry.RegistryStats()
		b.WriteString(ui.Info.Sprint("→") + fmt.Sprintf(" CLI coverage: %.0f%% of %d services across %d categories\n",
			stats.CLICoveragePct, stats.TotalServices, stats.CategoryCount))

		fmt.Print(b.String())
		return nil
	},
}

func init() {
	bindCommonFlags(DiscoverCmd)
	DiscoverCmd.Flags().StringVarP(&discoverCategory, "category", "c", "", "filter by category")
	DiscoverCmd.Flags().IntVarP(&discoverTop, "top", "t", 0, "show only the N most popular services")
}

func categorySuffix(category string) string {
	if category == "" {
		return ""
	}
	return " in category " + ui.Highlight.Sprint(category)
}
