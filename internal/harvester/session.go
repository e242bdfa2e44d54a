package harvester

import (
	"time"

	"github.com/google/uuid"

	"github.com/finchsec/magpie/internal/vault"
)

// SessionStatus is the lifecycle state of a harvest session.
// Terminal states are final: a session is never resumed, only
// re-created.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// StepStatus is the state of one workflow step within a session.
type StepStatus string

const (
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Step records one unit of the harvest workflow. Steps are append-only
// within a session.
type Step struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Session is one stateful attempt to harvest a credential for a single
// service. It is mutated in place as steps execute and retained in
// memory for the process lifetime; it is never persisted unless its
// result is explicitly stored into the vault.
type Session struct {
	ID          string        `json:"id"`
	ServiceID   string        `json:"apiService"`
	Method      string        `json:"method"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	Steps       []Step        `json:"steps"`
	Result      *Credential   `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
}

func newSession(serviceID string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		ServiceID: serviceID,
		Method:    "cli",
		Status:    StatusPending,
		StartedAt: time.Now().UTC(),
		Steps:     []Step{},
	}
}

// beginStep appends a running step and returns its index.
func (s *Session) beginStep(name string) int {
	s.Steps = append(s.Steps, Step{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    StepRunning,
		StartedAt: time.Now().UTC(),
	})
	return len(s.Steps) - 1
}

func (s *Session) completeStep(idx int, output string) {
	now := time.Now().UTC()
	s.Steps[idx].Status = StepCompleted
	s.Steps[idx].CompletedAt = &now
	s.Steps[idx].Output = output
}

func (s *Session) failStep(idx int, err error) {
	now := time.Now().UTC()
	s.Steps[idx].Status = StepFailed
	s.Steps[idx].CompletedAt = &now
	s.Steps[idx].Error = err.Error()
}

// Step returns the named step, or nil if it never ran.
func (s *Session) Step(name string) *Step {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i]
		}
	}
	return nil
}

// HarvestMetadata carries provenance details for a harvested credential.
type HarvestMetadata struct {
	HarvestedAt      time.Time `json:"harvestedAt"`
	CLITool          string    `json:"cliTool"`
	RotationAttempts int       `json:"rotationAttempts"`
}

// Credential is the normalized output of a completed session. It
// becomes a vault.SecretEntry when persisted into a project.
type Credential struct {
	Key           string          `json:"key"`
	Value         string          `json:"value"`
	Description   string          `json:"description"`
	Created       time.Time       `json:"created"`
	LastUpdated   time.Time       `json:"lastUpdated"`
	Tags          []string        `json:"tags"`
	Category      string          `json:"category"`
	Source        string          `json:"source"`
	Service       string          `json:"apiService"`
	HarvestMethod string          `json:"harvestMethod"`
	AuthMethod    string          `json:"authMethod"`
	Metadata      HarvestMetadata `json:"harvestMetadata"`
}

// SecretEntry converts the credential into a vault entry, carrying the
// harvest provenance in the entry metadata.
func (c *Credential) SecretEntry() vault.SecretEntry {
	return vault.SecretEntry{
		Key:         c.Key,
		Value:       c.Value,
		Description: c.Description,
		Source:      vault.SourceCLIHarvester,
		Created:     c.Created,
		LastUpdated: c.LastUpdated,
		Tags:        c.Tags,
		Category:    c.Category,
		Metadata: map[string]string{
			"apiService":  c.Service,
			"cliTool":     c.Metadata.CLITool,
			"authMethod":  c.AuthMethod,
			"harvestedAt": c.Metadata.HarvestedAt.Format(time.RFC3339),
		},
	}
}
