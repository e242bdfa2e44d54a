package vault

import (
	"time"
)

// Version is written into every new vault document. Loading tolerates
// older versions; saving always writes the current one.
const Version = "1.0"

// SecretSource records where a secret entry came from.
type SecretSource string

const (
	SourceEnv          SecretSource = "env"
	SourceManual       SecretSource = "manual"
	SourceAPI          SecretSource = "api"
	SourceSops         SecretSource = "sops"
	SourceVault        SecretSource = "vault"
	SourceScaffold     SecretSource = "scaffold"
	SourceCLIScan      SecretSource = "cli_scan"
	SourceCLIHarvester SecretSource = "cli-harvester"
)

// SecretEntry is a single credential stored in a project.
// Created is immutable once set; LastUpdated is refreshed on every
// mutation.
type SecretEntry struct {
	Key         string            `json:"key"`
	Value       string            `json:"value,omitempty"`
	Description string            `json:"description,omitempty"`
	Source      SecretSource      `json:"source"`
	EnvFile     string            `json:"envFile,omitempty"`
	Created     time.Time         `json:"created"`
	LastUpdated time.Time         `json:"lastUpdated"`
	Expires     *time.Time        `json:"expires,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Category    string            `json:"category,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Project groups secrets. Secret keys are unique within a project;
// the project's LastUpdated is bumped whenever any child secret
// mutates.
type Project struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Secrets     []SecretEntry `json:"secrets"`
	Created     time.Time     `json:"created"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

// Secret returns the entry with the given key, or nil.
func (p *Project) Secret(key string) *SecretEntry {
	for i := range p.Secrets {
		if p.Secrets[i].Key == key {
			return &p.Secrets[i]
		}
	}
	return nil
}

// Metadata carries vault-level timestamps.
type Metadata struct {
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Data is the root vault document. Exactly one in-memory Data exists
// per vault path at a time; the on-disk representation is always the
// encrypted form.
type Data struct {
	Version    string    `json:"version"`
	Metadata   Metadata  `json:"metadata"`
	Projects   []Project `json:"projects"`
	GlobalTags []string  `json:"globalTags"`
}

// NewData returns an empty versioned vault document.
func NewData() *Data {
	now := time.Now().UTC()
	return &Data{
		Version:    Version,
		Metadata:   Metadata{Created: now, LastUpdated: now},
		Projects:   []Project{},
		GlobalTags: []string{},
	}
}

// Project returns the named project, or nil.
func (d *Data) Project(name string) *Project {
	for i := range d.Projects {
		if d.Projects[i].Name == name {
			return &d.Projects[i]
		}
	}
	return nil
}

// Stats summarizes vault contents for status displays.
type Stats struct {
	ProjectCount int
	SecretCount  int
	BySource     map[SecretSource]int
	ByCategory   map[string]int
}

// Stats computes summary counts over the vault document.
func (d *Data) Stats() Stats {
	stats := Stats{
		ProjectCount: len(d.Projects),
		BySource:     make(map[SecretSource]int),
		ByCategory:   make(map[string]int),
	}
	for i := range d.Projects {
		for j := range d.Projects[i].Secrets {
			entry := &d.Projects[i].Secrets[j]
			stats.SecretCount++
			stats.BySource[entry.Source]++
			if entry.Category != "" {
				stats.ByCategory[entry.Category]++
			}
		}
	}
	return stats
}
