package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/internal/audit"
	"github.com/finchsec/magpie/internal/configs"
	merrors "github.com/finchsec/magpie/internal/errors"
	"github.com/finchsec/magpie/internal/harvester"
	"github.com/finchsec/magpie/internal/ui"
	"github.com/finchsec/magpie/internal/vault"
)

var (
	harvestProject string
	harvestStore   bool
)

var HarvestCmd = &cobra.Command{
	Use:   "harvest <service-id>",
	Short: "Harvests an API credential from a service's CLI tool",
	Long: `Runs a complete harvest session for one service: detects (and if
needed installs) its CLI tool, authenticates, extracts the credential
from the tool's installed state, and validates it against the
service's known key formats.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceID := args[0]
		Logger.Infof("Starting harvest command for %s", serviceID)
		spinner, cleanup := startSpinner("Harvesting credential for "+serviceID+"...", verbose)
		defer cleanup()

		h := harvester.New(Logger)
		session, err := h.Harvest(cmd.Context(), serviceID)
		if err != nil {
			if errors.Is(err, merrors.ErrServiceNotFound) {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " Unknown service " + ui.Highlight.Sprint(serviceID) + "\n" +
					ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("magpie discover") + " to list known services"
				return err
			}
			if errors.Is(err, merrors.ErrNoCLISupport) {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " Service " + ui.Highlight.Sprint(serviceID) + " has no harvestable CLI tool"
				return err
			}
			return Logger.ErrorfAndReturn("failed to start harvest session: %v", err)
		}

		audit.Log(audit.Entry{
			Operation: "harvest",
			Service:   serviceID,
			SessionID: session.ID,
			Status:    string(session.Status),
			Error:     session.Error,
		})

		if session.Status != harvester.StatusCompleted {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " Harvest failed: " + session.Error + "\n" +
				formatSteps(session)
			return Logger.ErrorfAndReturn("harvest session %s failed: %s", session.ID, session.Error)
		}

		credential := session.Result
		finalMessage := ui.Success.Sprint("✓") + " Harvested " + ui.Highlight.Sprint(credential.Key) +
			" from " + ui.Highlight.Sprint(serviceID) + "\n" + formatSteps(session)

		if harvestStore {
			if err := storeCredential(cmd, credential); err != nil {
				return Logger.ErrorfAndReturn("failed to store credential: %v", err)
			}
			finalMessage += ui.Info.Sprint("→") + " Stored in vault project " + ui.Highlight.Sprint(resolveProject()) + "\n"
		} else {
			finalMessage += ui.Info.Sprint("→") + " Re-run with " + ui.Code.Sprint("--store") + " to persist it into the vault\n"
		}

		spinner.FinalMSG = finalMessage
		return nil
	},
}

func init() {
	bindCommonFlags(HarvestCmd)
	HarvestCmd.Flags().StringVarP(&harvestProject, "project", "p", "", "vault project to store the credential in")
	HarvestCmd.Flags().BoolVar(&harvestStore, "store", false, "persist the harvested credential into the vault")
}

// resolveProject returns the target project, falling back to the
// configured default.
func resolveProject() string {
	if harvestProject != "" {
		return harvestProject
	}
	config, err := configs.LoadConfig()
	if err == nil && config.Vault.DefaultProject != "" {
		return config.Vault.DefaultProject
	}
	return "default"
}

// storeCredential persists a harvested credential into the vault,
// updating in place when the key already exists.
func storeCredential(cmd *cobra.Command, credential *harvester.Credential) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := store.Load(ctx); err != nil {
		return err
	}

	projectName := resolveProject()
	if project, err := store.GetProject(ctx, projectName); err != nil {
		return err
	} else if project == nil {
		if _, err := store.CreateProject(ctx, projectName, ""); err != nil {
			return err
		}
	}

	entry := credential.SecretEntry()
	err = store.AddSecret(ctx, projectName, entry)
	if errors.Is(err, merrors.ErrSecretExists) {
		err = store.UpdateSecret(ctx, projectName, entry.Key, vault.SecretUpdate{
			Value:    &entry.Value,
			Tags:     entry.Tags,
			Metadata: entry.Metadata,
		})
	}
	if err != nil {
		return err
	}

	audit.Log(audit.Entry{
		Operation: "vault.store-credential",
		Project:   projectName,
		SecretKey: entry.Key,
		Service:   credential.Service,
	})
	return store.Save(ctx)
}

// formatSteps renders a session's step list for the final message.
func formatSteps(session *harvester.Session) string {
	var b strings.Builder
	for _, step := range session.Steps {
		glyph := ui.Success.Sprint("✓")
		if step.Status == harvester.StepFailed {
			glyph = ui.Error.Sprint("✗")
		}
		b.WriteString("    " + glyph + " " + step.Name)
		if step.Output != "" {
			b.WriteString(" " + ui.Muted.Sprint(firstLine(step.Output)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
