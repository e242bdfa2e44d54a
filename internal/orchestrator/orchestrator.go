package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/finchsec/magpie/internal/harvester"
	logger "github.com/finchsec/magpie/internal/logging"
	"github.com/finchsec/magpie/internal/registry"
)

// Orchestrator coordinates multiple harvest sessions and aggregates
// their outcomes into coverage metrics and recommendations. It is
// stateless aside from its run history.
type Orchestrator struct {
	Logger    logger.Logger
	Harvester *harvester.Harvester

	history []RunRecord
}

// New returns an orchestrator over the given harvester.
func New(log logger.Logger, h *harvester.Harvester) *Orchestrator {
	return &Orchestrator{Logger: log, Harvester: h}
}

// BatchOptions configures a batch harvest.
type BatchOptions struct {
	// Category narrows the batch to one registry category. Empty
	// harvests every CLI-supported service.
	Category string

	// ServiceIDs, when set, overrides Category with an explicit list.
	ServiceIDs []string
}

// ServiceOutcome is the per-service result of a batch run.
type ServiceOutcome struct {
	ServiceID string
	Session   *harvester.Session
	Err       error
}

// Succeeded reports whether the service yielded a credential.
func (o ServiceOutcome) Succeeded() bool {
	return o.Err == nil && o.Session != nil && o.Session.Status == harvester.StatusCompleted
}

// BatchResult aggregates a batch harvest. Per-service failures are
// isolated into outcomes; the batch itself only errors when nothing
// could be attempted.
type BatchResult struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []ServiceOutcome
	Succeeded  int
	Failed     int
}

// RunRecord is one entry in the orchestration history.
type RunRecord struct {
	StartedAt time.Time
	Services  int
	Succeeded int
	Failed    int
}

// BatchHarvest runs one harvest session per selected service,
// sequentially. A failed session is recorded in its outcome and never
// aborts the batch.
func (o *Orchestrator) BatchHarvest(ctx context.Context, opts BatchOptions) (*BatchResult, error) {
	services := o.selectServices(opts)
	if len(services) == 0 {
		return nil, fmt.Errorf("no CLI-supported services match the selection")
	}

	result := &BatchResult{StartedAt: time.Now().UTC()}
	for _, svc := range services {
		o.Logger.Infof("Batch harvesting %s", svc.ID)
		session, err := o.Harvester.Harvest(ctx, svc.ID)
		outcome := ServiceOutcome{ServiceID: svc.ID, Session: session, Err: err}
		if outcome.Succeeded() {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	result.FinishedAt = time.Now().UTC()

	o.history = append(o.history, RunRecord{
		StartedAt: result.StartedAt,
		Services:  len(services),
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	})
	return result, nil
}

func (o *Orchestrator) selectServices(opts BatchOptions) []registry.Service {
	if len(opts.ServiceIDs) > 0 {
		var services []registry.Service
		for _, id := range opts.ServiceIDs {
			if svc := registry.ServiceByID(id); svc != nil && svc.CLI.Available {
				services = append(services, *svc)
			}
		}
		return services
	}

	services := registry.ServicesWithCLI()
	if opts.Category == "" {
		return services
	}
	var filtered []registry.Service
	for _, svc := range services {
		if svc.Category == opts.Category {
			filtered = append(filtered, svc)
		}
	}
	return filtered
}

// History returns the orchestration run log.
func (o *Orchestrator) History() []RunRecord {
	return append([]RunRecord(nil), o.history...)
}

// CategoryGap flags a category with fewer CLI-supported services than
// the coverage threshold.
type CategoryGap struct {
	Category     string
	Services     int
	CLISupported int
}

// Analysis aggregates registry coverage and harvest automation metrics.
type Analysis struct {
	// AutomationLevel is the ratio of CLI-supported services to the
	// total registry size, in [0, 1].
	AutomationLevel float64

	// Confidence estimates how much of the catalog can be harvested
	// without manual steps, in [0, 1].
	Confidence float64

	// TimeReductionPct estimates the manual-setup time saved by
	// automated harvesting.
	TimeReductionPct float64

	// Gaps lists categories under the CLI-coverage threshold.
	Gaps []CategoryGap

	// Recommendations is a human-readable action list.
	Recommendations []string
}

// gapThreshold is the minimum per-category CLI coverage before a
// category is flagged as a gap.
const gapThreshold = 0.5

// Analyze computes coverage metrics and recommendations over the
// registry and this process's harvest sessions.
func (o *Orchestrator) Analyze() *Analysis {
	stats := registry.RegistryStats()
	analysis := &Analysis{}

	if stats.TotalServices > 0 {
		analysis.AutomationLevel = float64(stats.CLISupported) / float64(stats.TotalServices)
	}

	for _, category := range registry.Categories() {
		services := registry.ServicesByCategory(category)
		cliCount := 0
		for _, svc := range services {
			if svc.CLI.Available {
				cliCount++
			}
		}
		if float64(cliCount) < float64(len(services))*gapThreshold {
			analysis.Gaps = append(analysis.Gaps, CategoryGap{
				Category:     category,
				Services:     len(services),
				CLISupported: cliCount,
			})
		}
	}
	sort.Slice(analysis.Gaps, func(i, j int) bool {
		return analysis.Gaps[i].Category < analysis.Gaps[j].Category
	})

	// Session success rate feeds the confidence estimate; with no
	// sessions yet, coverage alone decides.
	sessions := o.Harvester.Sessions()
	successRate := 1.0
	if len(sessions) > 0 {
		succeeded := 0
		for _, s := range sessions {
			if s.Status == harvester.StatusCompleted {
				succeeded++
			}
		}
		successRate = float64(succeeded) / float64(len(sessions))
	}
	analysis.Confidence = analysis.AutomationLevel * successRate
	analysis.TimeReductionPct = analysis.AutomationLevel * 90

	analysis.Recommendations = o.recommend(analysis, sessions)
	return analysis
}

func (o *Orchestrator) recommend(analysis *Analysis, sessions []*harvester.Session) []string {
	var recs []string

	for _, gap := range analysis.Gaps {
		recs = append(recs, fmt.Sprintf(
			"category %q has %d of %d services with CLI support; add CLI metadata or harvest manually",
			gap.Category, gap.CLISupported, gap.Services))
	}

	failedServices := make(map[string]bool)
	for _, s := range sessions {
		if s.Status == harvester.StatusFailed {
			failedServices[s.ServiceID] = true
		}
	}
	var failed []string
	for id := range failedServices {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		recs = append(recs, fmt.Sprintf("re-run %q after checking its CLI tool is installed and authenticated", id))
	}

	if analysis.AutomationLevel < 1 {
		recs = append(recs, fmt.Sprintf(
			"%.0f%% of registry services are automatable; the rest need manual vault entries",
			analysis.AutomationLevel*100))
	}
	return recs
}
