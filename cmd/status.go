package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	merrors "github.com/finchsec/magpie/internal/errors"
	"github.com/finchsec/magpie/internal/harvester"
	"github.com/finchsec/magpie/internal/orchestrator"
	"github.com/finchsec/magpie/internal/registry"
	"github.com/finchsec/magpie/internal/ui"
	"github.com/finchsec/magpie/internal/vault"
)

var statusJSONOutput bool

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows vault, registry, and automation status",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")
		spinner, cleanup := startSpinner("Gathering status...", verbose || statusJSONOutput)
		defer cleanup()

		status, err := gatherStatus(cmd)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to gather status: %v", err)
		}

		if statusJSONOutput {
			encoded, err := json.MarshalIndent(status, "", "    ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to encode status: %v", err)
			}
			fmt.Println(string(encoded))
			return nil
		}

		spinner.FinalMSG = formatStatus(status)
		return nil
	},
}

func init() {
	bindCommonFlags(StatusCmd)
	StatusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output status as JSON")
}

// MagpieStatus holds everything the status command reports.
type MagpieStatus struct {
	VaultPath        string         `json:"vaultPath"`
	VaultInitialized bool           `json:"vaultInitialized"`
	VaultEncrypted   bool           `json:"vaultEncrypted"`
	ProjectCount     int            `json:"projectCount"`
	SecretCount      int            `json:"secretCount"`
	SecretsBySource  map[string]int `json:"secretsBySource,omitempty"`

	Registry registry.Stats `json:"registry"`

	AutomationLevel  float64                    `json:"automationLevel"`
	Confidence       float64                    `json:"confidence"`
	TimeReductionPct float64                    `json:"timeReductionPct"`
	Gaps             []orchestrator.CategoryGap `json:"gaps,omitempty"`
	Recommendations  []string                   `json:"recommendations,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// gatherStatus collects vault, registry, and coverage information.
// Vault failures are reported inside the status rather than aborting it.
func gatherStatus(cmd *cobra.Command) (*MagpieStatus, error) {
	status := &MagpieStatus{}

	store, _, err := openStore()
	if err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("Failed to load configuration: %v", err))
	} else {
		status.VaultPath = store.Path()
		if _, statErr := os.Stat(store.Path()); statErr == nil {
			status.VaultInitialized = true
		}
		data, err := store.Document(cmd.Context())
		switch {
		case err == nil:
			stats := data.Stats()
			status.ProjectCount = stats.ProjectCount
			status.SecretCount = stats.SecretCount
			if len(stats.BySource) > 0 {
				status.SecretsBySource = make(map[string]int, len(stats.BySource))
				for source, count := range stats.BySource {
					status.SecretsBySource[string(source)] = count
				}
			}
			status.VaultEncrypted = status.VaultInitialized
		case errors.Is(err, merrors.ErrSopsNotFound):
			status.Errors = append(status.Errors, "sops binary not found; cannot decrypt vault")
		default:
			status.Errors = append(status.Errors, fmt.Sprintf("Failed to read vault: %v", err))
		}
	}

	status.Registry = registry.RegistryStats()

	analysis := orchestrator.New(Logger, harvester.New(Logger)).Analyze()
	status.AutomationLevel = analysis.AutomationLevel
	status.Confidence = analysis.Confidence
	status.TimeReductionPct = analysis.TimeReductionPct
	status.Gaps = analysis.Gaps
	status.Recommendations = analysis.Recommendations

	return status, nil
}

func formatStatus(status *MagpieStatus) string {
	var b strings.Builder

	if status.VaultInitialized {
		b.WriteString(ui.Success.Sprint("✓") + " Vault: " + ui.Path.Sprint(status.VaultPath) + "\n")
		b.WriteString(fmt.Sprintf("    Projects:    %d\n", status.ProjectCount))
		b.WriteString(fmt.Sprintf("    Secrets:     %d\n", status.SecretCount))
		for _, source := range []string{
			string(vault.SourceCLIHarvester),
			string(vault.SourceEnv),
			string(vault.SourceManual),
		} {
			if count := status.SecretsBySource[source]; count > 0 {
				b.WriteString(fmt.Sprintf("        %-18s %d\n", source, count))
			}
		}
	} else {
		b.WriteString(ui.Warning.Sprint("!") + " Vault not initialized\n")
		b.WriteString(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("magpie vault init") + " to create one\n")
	}

	b.WriteString(ui.Success.Sprint("✓") + fmt.Sprintf(" Registry: %d services, %d with CLI support (%.0f%%)\n",
		status.Registry.TotalServices, status.Registry.CLISupported, status.Registry.CLICoveragePct))

	b.WriteString(ui.Info.Sprint("→") + fmt.Sprintf(" Automation: %.0f%% of services, confidence %.0f%%, est. %.0f%% time saved\n",
		status.AutomationLevel*100, status.Confidence*100, status.TimeReductionPct))

	for _, gap := range status.Gaps {
		b.WriteString(ui.Warning.Sprint("!") + fmt.Sprintf(" Coverage gap: %s (%d/%d CLI-supported)\n",
			gap.Category, gap.CLISupported, gap.Services))
	}

	for _, msg := range status.Errors {
		b.WriteString(ui.Error.Sprint("✗") + " " + msg + "\n")
	}

	return b.String()
}
