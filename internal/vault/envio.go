package vault

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// envKeyPattern matches valid environment variable names.
var envKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EnvPair is a parsed KEY=value line from a .env document.
type EnvPair struct {
	Key   string
	Value string
}

// ParseEnv parses .env-formatted text into key/value pairs. Blank
// lines and comments are skipped; a malformed line yields an error
// entry for that line without aborting the rest.
func ParseEnv(text string) ([]EnvPair, []ImportError) {
	var pairs []EnvPair
	var errs []ImportError

	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		trimmed = strings.TrimPrefix(trimmed, "export ")

		eq := strings.Index(trimmed, "=")
		if eq < 0 {
			errs = append(errs, ImportError{
				Key:     trimmed,
				Message: fmt.Sprintf("line %d: missing '='", i+1),
			})
			continue
		}

		key := strings.TrimSpace(trimmed[:eq])
		if !envKeyPattern.MatchString(key) {
			errs = append(errs, ImportError{
				Key:     key,
				Message: fmt.Sprintf("line %d: invalid key", i+1),
			})
			continue
		}

		value := strings.TrimSpace(trimmed[eq+1:])
		value = unquoteEnvValue(value)

		pairs = append(pairs, EnvPair{Key: key, Value: value})
	}
	return pairs, errs
}

// unquoteEnvValue strips one level of matching single or double quotes.
func unquoteEnvValue(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// quoteEnvValue wraps values containing whitespace or shell-special
// characters in double quotes for .env serialization.
func quoteEnvValue(value string) string {
	if value == "" {
		return value
	}
	if strings.ContainsAny(value, " \t\n\"'\\$#`") {
		escaped := strings.ReplaceAll(value, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		return `"` + escaped + `"`
	}
	return value
}

// ImportOptions configures ImportEnv.
type ImportOptions struct {
	// Project is the target project. Created if it does not exist.
	Project string

	// Category is stamped onto every imported entry.
	Category string

	// EnvFile records the source file path for provenance.
	EnvFile string

	// Overwrite replaces existing keys. When false, existing keys are
	// recorded as skipped.
	Overwrite bool
}

// ImportError records a single key that could not be imported.
type ImportError struct {
	Key     string
	Message string
}

// ImportResult classifies every key from an env import.
type ImportResult struct {
	Imported []string
	Skipped  []string
	Errors   []ImportError
}

// ImportEnv parses .env-formatted text and inserts the pairs into the
// target project. Per-key failures are isolated into the result's
// error list; the batch itself never fails for a single bad key.
func (s *Store) ImportEnv(ctx context.Context, envText string, opts ImportOptions) (*ImportResult, error) {
	data, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Project == "" {
		opts.Project = "default"
	}

	project := data.Project(opts.Project)
	if project == nil {
		if _, err := s.CreateProject(ctx, opts.Project, ""); err != nil {
			return nil, err
		}
		project = data.Project(opts.Project)
	}

	pairs, parseErrs := ParseEnv(envText)
	result := &ImportResult{Errors: parseErrs}

	now := time.Now().UTC()
	for _, pair := range pairs {
		existing := project.Secret(pair.Key)
		if existing != nil && existing.Category == opts.Category && !opts.Overwrite {
			result.Skipped = append(result.Skipped, pair.Key)
			continue
		}

		if existing != nil {
			// Overwrite keeps the original created timestamp.
			existing.Value = pair.Value
			existing.Source = SourceEnv
			existing.EnvFile = opts.EnvFile
			existing.Category = opts.Category
			existing.LastUpdated = now
		} else {
			project.Secrets = append(project.Secrets, SecretEntry{
				Key:         pair.Key,
				Value:       pair.Value,
				Source:      SourceEnv,
				EnvFile:     opts.EnvFile,
				Category:    opts.Category,
				Created:     now,
				LastUpdated: now,
			})
		}
		result.Imported = append(result.Imported, pair.Key)
	}

	if len(result.Imported) > 0 {
		project.LastUpdated = now
		s.dirty = true
	}
	return result, nil
}

// ExportOptions configures ExportEnv.
type ExportOptions struct {
	// Project selects which project to export. Empty exports nothing.
	Project string

	// Category, when set, narrows the export to one category.
	Category string

	// IncludeComments emits each secret's description as a comment
	// line above its entry.
	IncludeComments bool
}

// ExportEnv serializes the chosen project's secrets into .env syntax.
// A nonexistent project or category yields an empty serialization,
// never an error.
func (s *Store) ExportEnv(ctx context.Context, opts ExportOptions) (string, error) {
	data, err := s.Document(ctx)
	if err != nil {
		return "", err
	}

	project := data.Project(opts.Project)
	if project == nil {
		return "", nil
	}

	var b strings.Builder
	for _, entry := range project.Secrets {
		if opts.Category != "" && entry.Category != opts.Category {
			continue
		}
		if opts.IncludeComments && entry.Description != "" {
			b.WriteString("# ")
			b.WriteString(entry.Description)
			b.WriteString("\n")
		}
		b.WriteString(entry.Key)
		b.WriteString("=")
		b.WriteString(quoteEnvValue(entry.Value))
		b.WriteString("\n")
	}
	return b.String(), nil
}
