package harvester

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	merrors "github.com/finchsec/magpie/internal/errors"
	"github.com/finchsec/magpie/internal/registry"
)

// Extracted is one raw key/value candidate pulled from a tool's
// installed state, before validation and normalization.
type Extracted struct {
	Key   string
	Value string
}

// credentialKeyPattern matches config field names that typically hold
// credentials.
var credentialKeyPattern = regexp.MustCompile(`(?i)(token|secret|password|api_?key|access_?key|oauth|credential)`)

// extractFromConfig reads the service's credential config file and
// pulls out candidate values. Structured formats are parsed by
// extension; anything else falls back to pattern-based extraction over
// the raw text.
func (h *Harvester) extractFromConfig(svc *registry.Service, set *PatternSet) ([]Extracted, error) {
	path, err := h.resolvePath(svc.CLI.ConfigPath)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", merrors.ErrConfigFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	candidates, parseErr := parseStructuredConfig(path, raw)
	if parseErr != nil || len(candidates) == 0 {
		// Unknown extension or parse failure: fall back to the
		// pattern table over the raw text.
		candidates = genericExtract(svc.ID, string(raw), set)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: nothing credential-shaped in %s", merrors.ErrNoCredentialsFound, path)
	}
	return candidates, nil
}

// resolvePath expands a leading "~" against the harvester's home
// directory.
func (h *Harvester) resolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no config path declared", merrors.ErrConfigFileNotFound)
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home := h.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to resolve home directory: %w", err)
			}
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// parseStructuredConfig dispatches on file extension and walks the
// parsed document for credential-shaped string leaves. An unsupported
// extension or a parse failure returns an error so the caller can fall
// back to generic extraction.
func parseStructuredConfig(path string, raw []byte) ([]Extracted, error) {
	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	case ".toml":
		var table map[string]any
		if err := toml.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("invalid TOML in %s: %w", path, err)
		}
		doc = table
	default:
		return nil, fmt.Errorf("no structured parser for %s", path)
	}

	var out []Extracted
	walkConfig("", doc, &out)
	return out, nil
}

// walkConfig recursively collects string leaves whose key names look
// credential-bearing.
func walkConfig(key string, node any, out *[]Extracted) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			walkConfig(k, child, out)
		}
	case map[any]any:
		for k, child := range v {
			walkConfig(fmt.Sprint(k), child, out)
		}
	case []any:
		for _, child := range v {
			walkConfig(key, child, out)
		}
	case string:
		if key != "" && credentialKeyPattern.MatchString(key) && v != "" {
			*out = append(*out, Extracted{Key: key, Value: v})
		}
	}
}

// genericExtract scans text with the service's pattern table followed
// by the generic patterns. Candidates shorter than the configured
// minimum are rejected.
func genericExtract(serviceID, text string, set *PatternSet) []Extracted {
	var out []Extracted
	seen := make(map[string]bool)

	for _, pattern := range set.patternsFor(serviceID) {
		re, err := regexp.Compile(pattern)
		if err != nil {
			// Pattern sets are compile-checked on mutation.
			continue
		}
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			value := match[0]
			if len(match) > 1 && match[1] != "" {
				value = match[1]
			}
			if len(value) < set.MinCredentialLen || seen[value] {
				continue
			}
			seen[value] = true
			out = append(out, Extracted{Key: "credential", Value: value})
		}
	}
	return out
}

// extractFromEnvironment reads candidates from the process environment
// using the service's declared variable names.
func (h *Harvester) extractFromEnvironment(svc *registry.Service) ([]Extracted, error) {
	lookup := h.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var out []Extracted
	seen := make(map[string]bool)
	for _, format := range svc.KeyFormats {
		if format.EnvVarName == "" || seen[format.EnvVarName] {
			continue
		}
		seen[format.EnvVarName] = true
		if value, ok := lookup(format.EnvVarName); ok && value != "" {
			out = append(out, Extracted{Key: format.EnvVarName, Value: value})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no declared environment variables are set", merrors.ErrNoCredentialsFound)
	}
	return out, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
