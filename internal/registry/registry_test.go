package registry

import (
	"sort"
	"testing"
)

func TestServiceByID(t *testing.T) {
	svc := ServiceByID("github")
	if svc == nil {
		t.Fatal("github should be in the catalog")
	}
	if svc.CLI.ToolName != "gh" {
		t.Errorf("github tool = %q, want gh", svc.CLI.ToolName)
	}

	if ServiceByID("not-a-service") != nil {
		t.Error("unknown id should return nil")
	}
}

func TestServiceByIDReturnsCopy(t *testing.T) {
	svc := ServiceByID("github")
	svc.Name = "Tampered"
	svc.CLI.ToolName = "tampered"

	fresh := ServiceByID("github")
	if fresh.Name != "GitHub" || fresh.CLI.ToolName != "gh" {
		t.Error("mutating a returned service must not change the catalog")
	}
}

func TestServicesWithCLI(t *testing.T) {
	services := ServicesWithCLI()
	if len(services) == 0 {
		t.Fatal("catalog should have CLI-supported services")
	}
	for _, svc := range services {
		if !svc.CLI.Available {
			t.Errorf("service %s has no CLI support but was returned", svc.ID)
		}
	}

	// Services without CLI support must be excluded.
	for _, svc := range services {
		if svc.ID == "anthropic" || svc.ID == "slack" || svc.ID == "sendgrid" {
			t.Errorf("service %s should not be CLI-supported", svc.ID)
		}
	}
}

func TestServicesByCategory(t *testing.T) {
	cloud := ServicesByCategory("cloud")
	if len(cloud) == 0 {
		t.Fatal("cloud category should not be empty")
	}
	for _, svc := range cloud {
		if svc.Category != "cloud" {
			t.Errorf("service %s has category %q", svc.ID, svc.Category)
		}
	}

	if got := ServicesByCategory("not-a-category"); len(got) != 0 {
		t.Errorf("unknown category returned %d services", len(got))
	}
}

func TestTopServicesOrderedByPopularity(t *testing.T) {
	top := TopServices(5)
	if len(top) != 5 {
		t.Fatalf("got %d services, want 5", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].Popularity > top[i-1].Popularity {
			t.Errorf("services out of order: %s (%d) after %s (%d)",
				top[i].ID, top[i].Popularity, top[i-1].ID, top[i-1].Popularity)
		}
	}

	// Asking for more than the catalog holds returns everything.
	all := TopServices(1000)
	if len(all) != RegistryStats().TotalServices {
		t.Errorf("TopServices(1000) returned %d, want %d", len(all), RegistryStats().TotalServices)
	}
}

func TestCategoriesSorted(t *testing.T) {
	categories := Categories()
	if len(categories) == 0 {
		t.Fatal("catalog should have categories")
	}
	if !sort.StringsAreSorted(categories) {
		t.Errorf("categories not sorted: %v", categories)
	}

	seen := make(map[string]bool)
	for _, c := range categories {
		if seen[c] {
			t.Errorf("duplicate category %q", c)
		}
		seen[c] = true
	}
}

func TestRegistryStats(t *testing.T) {
	stats := RegistryStats()

	if stats.TotalServices != len(services) {
		t.Errorf("TotalServices = %d, want %d", stats.TotalServices, len(services))
	}
	if stats.CLISupported != len(ServicesWithCLI()) {
		t.Errorf("CLISupported = %d, want %d", stats.CLISupported, len(ServicesWithCLI()))
	}
	wantPct := float64(stats.CLISupported) / float64(stats.TotalServices) * 100
	if stats.CLICoveragePct != wantPct {
		t.Errorf("CLICoveragePct = %f, want %f", stats.CLICoveragePct, wantPct)
	}
	if stats.CategoryCount != len(Categories()) {
		t.Errorf("CategoryCount = %d, want %d", stats.CategoryCount, len(Categories()))
	}
	if stats.AveragePopularity <= 0 || stats.AveragePopularity > 100 {
		t.Errorf("AveragePopularity = %f, out of range", stats.AveragePopularity)
	}
}

func TestEveryCLIServiceIsRunnable(t *testing.T) {
	for _, svc := range ServicesWithCLI() {
		if svc.CLI.ToolName == "" {
			t.Errorf("service %s has CLI support but no tool name", svc.ID)
		}
		if svc.CLI.InstallCommand == "" {
			t.Errorf("service %s has CLI support but no install command", svc.ID)
		}
		switch svc.CLI.KeyExtractionMethod {
		case ExtractConfig:
			if svc.CLI.ConfigPath == "" {
				t.Errorf("service %s uses config extraction but declares no config path", svc.ID)
			}
		case ExtractEnvironment:
			if len(svc.KeyFormats) == 0 {
				t.Errorf("service %s uses environment extraction but declares no key formats", svc.ID)
			}
		case ExtractCommand:
			// Reserved; nothing to check yet.
		default:
			t.Errorf("service %s has unknown extraction method %q", svc.ID, svc.CLI.KeyExtractionMethod)
		}
	}
}
