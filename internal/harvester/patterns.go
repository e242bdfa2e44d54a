package harvester

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// minGenericCredentialLen is the floor for candidates found by generic
// pattern extraction. Shorter strings are noise, not credentials.
const minGenericCredentialLen = 8

// PatternSet is the harvester's extraction configuration: generic
// token patterns, per-service pattern tables, auth keywords, and the
// minimum accepted credential length. Pattern sets are immutable once
// published; mutations build a new versioned copy and swap it in, so
// a failed mutation rolls back atomically by never swapping.
type PatternSet struct {
	Version int

	// Generic patterns matched against any config or output text.
	Generic []string

	// Service maps service ids to additional patterns.
	Service map[string][]string

	// InteractiveKeywords route auth commands through the interactive
	// child-process path when the command contains one of them.
	InteractiveKeywords []string

	// MinCredentialLen rejects short candidates from generic extraction.
	MinCredentialLen int
}

// DefaultPatternSet returns version 1 of the extraction configuration.
func DefaultPatternSet() *PatternSet {
	return &PatternSet{
		Version: 1,
		Generic: []string{
			`ghp_[A-Za-z0-9]{36}`,
			`github_pat_[A-Za-z0-9_]{22,255}`,
			`AKIA[0-9A-Z]{16}`,
			`sk-[A-Za-z0-9_\-]{20,}`,
			`xox[bpa]-[A-Za-z0-9\-]{20,}`,
			`(?i)(?:token|key|secret|password)["':\s=]+([A-Za-z0-9_\-\.]{8,})`,
		},
		Service:             map[string][]string{},
		InteractiveKeywords: []string{"login", "auth"},
		MinCredentialLen:    minGenericCredentialLen,
	}
}

// clone returns a deep copy with the version bumped.
func (p *PatternSet) clone() *PatternSet {
	next := &PatternSet{
		Version:             p.Version + 1,
		Generic:             append([]string(nil), p.Generic...),
		Service:             make(map[string][]string, len(p.Service)),
		InteractiveKeywords: append([]string(nil), p.InteractiveKeywords...),
		MinCredentialLen:    p.MinCredentialLen,
	}
	for svc, patterns := range p.Service {
		next.Service[svc] = append([]string(nil), patterns...)
	}
	return next
}

// compile validates every pattern in the set.
func (p *PatternSet) compile() error {
	for _, pattern := range p.Generic {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid generic pattern %q: %w", pattern, err)
		}
	}
	for svc, patterns := range p.Service {
		for _, pattern := range patterns {
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("invalid pattern %q for service %s: %w", pattern, svc, err)
			}
		}
	}
	return nil
}

// patternsFor returns the service-specific patterns followed by the
// generic ones.
func (p *PatternSet) patternsFor(serviceID string) []string {
	patterns := append([]string(nil), p.Service[serviceID]...)
	return append(patterns, p.Generic...)
}

// interactive reports whether the command should run through the
// interactive child-process path.
func (p *PatternSet) interactive(command string) bool {
	for _, keyword := range p.InteractiveKeywords {
		if containsFold(command, keyword) {
			return true
		}
	}
	return false
}

// MutationType enumerates the bounded set of self-tuning adjustments.
type MutationType string

const (
	// MutationEnhanceDetection adds service-specific extraction patterns.
	MutationEnhanceDetection MutationType = "enhance-detection"

	// MutationOptimizeExtraction promotes patterns to the front of the
	// generic table so they match first.
	MutationOptimizeExtraction MutationType = "optimize-extraction"

	// MutationAddAuthMethod registers extra keywords that route auth
	// commands through the interactive path.
	MutationAddAuthMethod MutationType = "add-auth-method"

	// MutationImproveValidation raises the minimum credential length.
	MutationImproveValidation MutationType = "improve-validation"
)

// Mutation describes one requested adjustment to the pattern set.
type Mutation struct {
	Type      MutationType
	ServiceID string   // For EnhanceDetection.
	Patterns  []string // For EnhanceDetection / OptimizeExtraction.
	Keywords  []string // For AddAuthMethod.
	MinLength int      // For ImproveValidation.
}

// MutationRecord is the audit entry for one applied (or rejected)
// mutation.
type MutationRecord struct {
	ID          string
	Type        MutationType
	AppliedAt   time.Time
	Success     bool
	FromVersion int
	ToVersion   int
	Changes     []string
	Error       string
}

// apply builds the mutated copy. The receiver is never modified.
func (p *PatternSet) apply(mut Mutation) (*PatternSet, []string, error) {
	next := p.clone()
	var changes []string

	switch mut.Type {
	case MutationEnhanceDetection:
		if mut.ServiceID == "" {
			return nil, nil, fmt.Errorf("enhance-detection requires a service id")
		}
		for _, pattern := range mut.Patterns {
			next.Service[mut.ServiceID] = append(next.Service[mut.ServiceID], pattern)
			changes = append(changes, fmt.Sprintf("service %s: added pattern %q", mut.ServiceID, pattern))
		}
	case MutationOptimizeExtraction:
		for i := len(mut.Patterns) - 1; i >= 0; i-- {
			next.Generic = append([]string{mut.Patterns[i]}, next.Generic...)
			changes = append(changes, fmt.Sprintf("generic: promoted pattern %q", mut.Patterns[i]))
		}
	case MutationAddAuthMethod:
		for _, keyword := range mut.Keywords {
			next.InteractiveKeywords = append(next.InteractiveKeywords, keyword)
			changes = append(changes, fmt.Sprintf("auth: added interactive keyword %q", keyword))
		}
	case MutationImproveValidation:
		if mut.MinLength < next.MinCredentialLen {
			return nil, nil, fmt.Errorf("minimum length can only increase (current %d, requested %d)",
				next.MinCredentialLen, mut.MinLength)
		}
		next.MinCredentialLen = mut.MinLength
		changes = append(changes, fmt.Sprintf("validation: minimum credential length set to %d", mut.MinLength))
	default:
		return nil, nil, fmt.Errorf("unknown mutation type %q", mut.Type)
	}

	if err := next.compile(); err != nil {
		return nil, nil, err
	}
	return next, changes, nil
}

// newMutationRecord builds the bookkeeping entry for a mutation attempt.
func newMutationRecord(mut Mutation, from int) MutationRecord {
	return MutationRecord{
		ID:          uuid.NewString(),
		Type:        mut.Type,
		AppliedAt:   time.Now().UTC(),
		FromVersion: from,
	}
}
