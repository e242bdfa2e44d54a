package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/internal/audit"
	"github.com/finchsec/magpie/internal/configs"
	merrors "github.com/finchsec/magpie/internal/errors"
	"github.com/finchsec/magpie/internal/harvester"
	"github.com/finchsec/magpie/internal/orchestrator"
	"github.com/finchsec/magpie/internal/ui"
	"github.com/finchsec/magpie/internal/vault"
)

var (
	batchCategory string
	batchProject  string
	batchStore    bool
)

var HarvestBatchCmd = &cobra.Command{
	Use:   "harvest-batch",
	Short: "Harvests credentials from every CLI-supported service",
	Long: `Runs one harvest session per CLI-supported service, optionally
narrowed to a category. Per-service failures are reported in the
summary and never abort the batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting batch harvest (category=%q)", batchCategory)
		spinner, cleanup := startSpinner("Batch harvesting credentials...", verbose)
		defer cleanup()

		h := harvester.New(Logger)
		o := orchestrator.New(Logger, h)

		result, err := o.BatchHarvest(cmd.Context(), orchestrator.BatchOptions{Category: batchCategory})
		if err != nil {
			return Logger.ErrorfAndReturn("batch harvest failed: %v", err)
		}

		var b strings.Builder
		stored := 0
		for _, outcome := range result.Outcomes {
			if outcome.Succeeded() {
				b.WriteString("    " + ui.Success.Sprint("✓") + " " + outcome.ServiceID +
					" " + ui.Muted.Sprint(outcome.Session.Result.Key) + "\n")
				if batchStore {
					if err := storeBatchCredential(cmd, outcome.Session.Result); err != nil {
						Logger.Warnf("failed to store credential for %s: %v", outcome.ServiceID, err)
					} else {
						stored++
					}
				}
				continue
			}
			reason := ""
			if outcome.Err != nil {
				reason = outcome.Err.Error()
			} else if outcome.Session != nil {
				reason = outcome.Session.Error
			}
			b.WriteString("    " + ui.Error.Sprint("✗") + " " + outcome.ServiceID +
				" " + ui.Muted.Sprint(firstLine(reason)) + "\n")
		}

		audit.Log(audit.Entry{
			Operation: "harvest-batch",
			Status:    fmt.Sprintf("%d/%d succeeded", result.Succeeded, len(result.Outcomes)),
		})

		finalMessage := ui.Success.Sprint("✓") + fmt.Sprintf(" Batch complete: %d succeeded, %d failed\n",
			result.Succeeded, result.Failed) + b.String()
		if batchStore {
			finalMessage += ui.Info.Sprint("→") + fmt.Sprintf(" Stored %d credential(s) in vault project %s\n",
				stored, ui.Highlight.Sprint(batchTargetProject()))
		}
		spinner.FinalMSG = finalMessage
		return nil
	},
}

func init() {
	bindCommonFlags(HarvestBatchCmd)
	HarvestBatchCmd.Flags().StringVarP(&batchCategory, "category", "c", "", "only harvest services in this category")
	HarvestBatchCmd.Flags().StringVarP(&batchProject, "project", "p", "", "vault project to store credentials in")
	HarvestBatchCmd.Flags().BoolVar(&batchStore, "store", false, "persist harvested credentials into the vault")
}

// batchTargetProject resolves the storage project the same way a single
// harvest does: explicit flag, then the configured default.
func batchTargetProject() string {
	if batchProject != "" {
		return batchProject
	}
	config, err := configs.LoadConfig()
	if err == nil && config.Vault.DefaultProject != "" {
		return config.Vault.DefaultProject
	}
	return "default"
}

func storeBatchCredential(cmd *cobra.Command, credential *harvester.Credential) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := store.Load(ctx); err != nil {
		return err
	}

	projectName := batchTargetProject()
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
	return store.Save(ctx)
}
