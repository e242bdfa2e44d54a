package registry

import (
	"sort"
)

// ExtractionMethod is the strategy used to pull a credential out of an
// installed CLI tool's state.
type ExtractionMethod string

const (
	// ExtractConfig reads the tool's credential config file.
	ExtractConfig ExtractionMethod = "config"

	// ExtractEnvironment reads the credential from environment variables.
	ExtractEnvironment ExtractionMethod = "environment"

	// ExtractCommand would run a tool command and parse its output.
	// Reserved: no service uses it yet and invoking it is an error.
	ExtractCommand ExtractionMethod = "command"
)

// KeyFormat describes one credential shape a service issues.
type KeyFormat struct {
	// Pattern is a regular expression matching the credential.
	Pattern string

	// EnvVarName is the conventional environment variable for the key.
	EnvVarName string

	// Example is a redacted sample for display.
	Example string
}

// CLISupport describes how to drive a service's CLI tool.
type CLISupport struct {
	Available           bool
	ToolName            string
	InstallCommand      string
	AuthCommand         string
	ConfigPath          string
	KeyExtractionMethod ExtractionMethod
}

// Service is one entry in the static catalog. Read-only at runtime.
type Service struct {
	ID                string
	Name              string
	Category          string
	Popularity        int
	Website           string
	DocsURL           string
	AuthMethods       []string
	KeyFormats        []KeyFormat
	CLI               CLISupport
	RotationSupported bool
}

// ServiceByID returns the service with the given id, or nil.
func ServiceByID(id string) *Service {
	for i := range services {
		if services[i].ID == id {
			svc := services[i]
			return &svc
		}
	}
	return nil
}

// ServicesWithCLI returns every service whose CLI tool can be driven
// by the harvester.
func ServicesWithCLI() []Service {
	var result []Service
	for _, svc := range services {
		if svc.CLI.Available {
			result = append(result, svc)
		}
	}
	return result
}

// ServicesByCategory returns every service in the given category.
func ServicesByCategory(category string) []Service {
	var result []Service
	for _, svc := range services {
		if svc.Category == category {
			result = append(result, svc)
		}
	}
	return result
}

// TopServices returns the n most popular services, descending.
func TopServices(n int) []Service {
	sorted := make([]Service, len(services))
	copy(sorted, services)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Popularity > sorted[j].Popularity
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Categories returns the sorted set of catalog categories.
func Categories() []string {
	seen := make(map[string]bool)
	var result []string
	for _, svc := range services {
		if !seen[svc.Category] {
			seen[svc.Category] = true
			result = append(result, svc.Category)
		}
	}
	sort.Strings(result)
	return result
}

// Stats summarizes the catalog.
type Stats struct {
	TotalServices     int
	CLISupported      int
	CLICoveragePct    float64
	AveragePopularity float64
	CategoryCount     int
}

// RegistryStats computes catalog-wide counts and coverage.
func RegistryStats() Stats {
	stats := Stats{TotalServices: len(services)}
	if stats.TotalServices == 0 {
		return stats
	}

	popularitySum := 0
	for _, svc := range services {
		if svc.CLI.Available {
			stats.CLISupported++
		}
		popularitySum += svc.Popularity
	}
	stats.CLICoveragePct = float64(stats.CLISupported) / float64(stats.TotalServices) * 100
	stats.AveragePopularity = float64(popularitySum) / float64(stats.TotalServices)
	stats.CategoryCount = len(Categories())
	return stats
}
