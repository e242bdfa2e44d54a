package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/finchsec/magpie/internal/harvester"
	logger "github.com/finchsec/magpie/internal/logging"
	"github.com/finchsec/magpie/internal/registry"
)

// failingRunner makes every probe, install, and auth command fail, so
// each harvest session fails at the install step.
type failingRunner struct{}

func (failingRunner) Run(ctx context.Context, name string, args ...string) (*harvester.ExecResult, error) {
	return &harvester.ExecResult{ExitCode: 1}, nil
}

func (failingRunner) Shell(ctx context.Context, command string) (*harvester.ExecResult, error) {
	return &harvester.ExecResult{ExitCode: 1}, nil
}

func (failingRunner) Interactive(ctx context.Context, command string) (*harvester.ExecResult, error) {
	return &harvester.ExecResult{ExitCode: 1}, nil
}

func newTestOrchestrator() *Orchestrator {
	h := harvester.New(logger.Logger{})
	h.Runner = failingRunner{}
	return New(logger.Logger{}, h)
}

func TestBatchHarvestEmptySelection(t *testing.T) {
	o := newTestOrchestrator()

	_, err := o.BatchHarvest(context.Background(), BatchOptions{Category: "not-a-category"})
	if err == nil {
		t.Error("empty selection should be an error")
	}
}

func TestBatchHarvestIsolatesFailures(t *testing.T) {
	o := newTestOrchestrator()

	result, err := o.BatchHarvest(context.Background(), BatchOptions{
		ServiceIDs: []string{"github", "stripe"},
	})
	if err != nil {
		t.Fatalf("BatchHarvest() failed: %v", err)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(result.Outcomes))
	}
	if result.Succeeded != 0 || result.Failed != 2 {
		t.Errorf("succeeded=%d failed=%d, want 0/2", result.Succeeded, result.Failed)
	}
	for _, outcome := range result.Outcomes {
		if outcome.Succeeded() {
			t.Errorf("outcome %s reported success with a failing runner", outcome.ServiceID)
		}
		if outcome.Session == nil {
			t.Errorf("outcome %s is missing its session", outcome.ServiceID)
		}
	}
}

func TestBatchHarvestSkipsUnknownAndUnsupported(t *testing.T) {
	o := newTestOrchestrator()

	// "slack" has no CLI support and "nope" does not exist; only
	// github survives the selection.
	result, err := o.BatchHarvest(context.Background(), BatchOptions{
		ServiceIDs: []string{"github", "slack", "nope"},
	})
	if err != nil {
		t.Fatalf("BatchHarvest() failed: %v", err)
	}
	if len(result.Outcomes) != 1 || result.Outcomes[0].ServiceID != "github" {
		t.Errorf("outcomes = %+v, want only github", result.Outcomes)
	}
}

func TestBatchHarvestByCategory(t *testing.T) {
	o := newTestOrchestrator()

	result, err := o.BatchHarvest(context.Background(), BatchOptions{Category: "cloud"})
	if err != nil {
		t.Fatalf("BatchHarvest() failed: %v", err)
	}
	for _, outcome := range result.Outcomes {
		svc := registry.ServiceByID(outcome.ServiceID)
		if svc.Category != "cloud" {
			t.Errorf("outcome %s is outside the requested category", outcome.ServiceID)
		}
	}
}

func TestBatchHarvestRecordsHistory(t *testing.T) {
	o := newTestOrchestrator()

	if _, err := o.BatchHarvest(context.Background(), BatchOptions{ServiceIDs: []string{"github"}}); err != nil {
		t.Fatalf("BatchHarvest() failed: %v", err)
	}

	history := o.History()
	if len(history) != 1 {
		t.Fatalf("got %d history entries, want 1", len(history))
	}
	if history[0].Services != 1 || history[0].Failed != 1 {
		t.Errorf("history = %+v", history[0])
	}
}

func TestAnalyzeCoverage(t *testing.T) {
	o := newTestOrchestrator()
	analysis := o.Analyze()

	stats := registry.RegistryStats()
	wantAutomation := float64(stats.CLISupported) / float64(stats.TotalServices)
	if analysis.AutomationLevel != wantAutomation {
		t.Errorf("AutomationLevel = %f, want %f", analysis.AutomationLevel, wantAutomation)
	}

	// With no sessions, confidence equals coverage alone.
	if analysis.Confidence != analysis.AutomationLevel {
		t.Errorf("Confidence = %f, want %f", analysis.Confidence, analysis.AutomationLevel)
	}
	if analysis.TimeReductionPct != analysis.AutomationLevel*90 {
		t.Errorf("TimeReductionPct = %f", analysis.TimeReductionPct)
	}

	// Gaps must flag exactly the categories under 50% CLI coverage.
	for _, gap := range analysis.Gaps {
		if float64(gap.CLISupported) >= float64(gap.Services)*0.5 {
			t.Errorf("category %s flagged with %d/%d coverage", gap.Category, gap.CLISupported, gap.Services)
		}
	}
	for _, category := range registry.Categories() {
		services := registry.ServicesByCategory(category)
		cli := 0
		for _, svc := range services {
			if svc.CLI.Available {
				cli++
			}
		}
		flagged := false
		for _, gap := range analysis.Gaps {
			if gap.Category == category {
				flagged = true
			}
		}
		if underCovered := float64(cli) < float64(len(services))*0.5; underCovered != flagged {
			t.Errorf("category %s: under-covered=%t flagged=%t", category, underCovered, flagged)
		}
	}
}

func TestAnalyzeConfidenceDropsWithFailedSessions(t *testing.T) {
	o := newTestOrchestrator()

	baseline := o.Analyze()
	if _, err := o.BatchHarvest(context.Background(), BatchOptions{ServiceIDs: []string{"github"}}); err != nil {
		t.Fatalf("BatchHarvest() failed: %v", err)
	}

	after := o.Analyze()
	if after.Confidence >= baseline.Confidence {
		t.Errorf("confidence should drop after a failed session: %f -> %f",
			baseline.Confidence, after.Confidence)
	}

	// Failed services show up in the recommendations.
	found := false
	for _, rec := range after.Recommendations {
		if strings.Contains(rec, "github") {
			found = true
		}
	}
	if !found {
		t.Errorf("recommendations %v should mention the failed service", after.Recommendations)
	}
}
