package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	merrors "github.com/finchsec/magpie/internal/errors"
)

// Store owns a single vault file. It is not safe for concurrent use by
// multiple processes: the atomic rename protects against partial
// writes, not against lost updates between two writers. Single-writer
// discipline is a requirement of the design.
type Store struct {
	path      string
	retention int
	crypter   Crypter

	data  *Data
	dirty bool
}

// NewStore returns a store for the vault file at path. retention is
// the number of timestamped backups kept after each save; values below
// one fall back to the default of five.
func NewStore(path string, retention int, crypter Crypter) *Store {
	if retention < 1 {
		retention = 5
	}
	return &Store{path: path, retention: retention, crypter: crypter}
}

// Path returns the vault file location.
func (s *Store) Path() string {
	return s.path
}

// Dirty reports whether in-memory changes have not been saved yet.
func (s *Store) Dirty() bool {
	return s.dirty
}

// Initialize creates a new empty vault file. It fails if a vault
// already exists at the path.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("%w: %s", merrors.ErrVaultAlreadyInitialized, s.path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check vault file: %w", err)
	}

	s.data = NewData()
	s.dirty = true
	return s.Save(ctx)
}

// Load reads the vault file into memory. A missing file yields a fresh
// empty document; a present but structurally invalid file is a fatal
// load error, never auto-repaired.
func (s *Store) Load(ctx context.Context) (*Data, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = NewData()
			s.dirty = false
			return s.data, nil
		}
		return nil, fmt.Errorf("failed to read vault file: %w", err)
	}

	if s.crypter.IsEncrypted(s.path) {
		raw, err = s.crypter.Decrypt(ctx, s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt vault: %w", err)
		}
	}

	data, err := parseVault(raw)
	if err != nil {
		return nil, err
	}

	s.data = data
	s.dirty = false
	return s.data, nil
}

// parseVault decodes and structurally validates a vault document.
func parseVault(raw []byte) (*Data, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", merrors.ErrVaultCorrupt, err)
	}

	projectsRaw, ok := doc["projects"]
	if !ok || !jsonStartsWith(projectsRaw, '[') {
		return nil, fmt.Errorf("%w: projects must be an array", merrors.ErrVaultCorrupt)
	}
	metadataRaw, ok := doc["metadata"]
	if !ok || !jsonStartsWith(metadataRaw, '{') {
		return nil, fmt.Errorf("%w: metadata must be an object", merrors.ErrVaultCorrupt)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", merrors.ErrVaultCorrupt, err)
	}
	if data.Projects == nil {
		data.Projects = []Project{}
	}
	if data.GlobalTags == nil {
		data.GlobalTags = []string{}
	}
	return &data, nil
}

func jsonStartsWith(raw json.RawMessage, c byte) bool {
	trimmed := strings.TrimLeft(string(raw), " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == c
}

// Document returns the in-memory vault document, loading it on first use.
func (s *Store) Document(ctx context.Context) (*Data, error) {
	if s.data != nil {
		return s.data, nil
	}
	return s.Load(ctx)
}

// Save persists the in-memory document: write a temp file, encrypt it,
// back up the previous vault file, then atomically rename over the
// target. The original file is never left partially written.
func (s *Store) Save(ctx context.Context) error {
	if s.data == nil {
		return merrors.ErrVaultNotInitialized
	}

	s.data.Metadata.LastUpdated = time.Now().UTC()

	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal vault: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp vault file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp vault file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp vault file: %w", err)
	}

	if err := s.crypter.Encrypt(ctx, tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := s.backupCurrent(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace vault file: %w", err)
	}

	s.pruneBackups()
	s.dirty = false
	return nil
}

// backupCurrent copies the existing vault file to a timestamped backup
// before it is overwritten. A missing vault file is fine: first save.
func (s *Store) backupCurrent() error {
	src, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open vault for backup: %w", err)
	}
	defer src.Close()

	backupPath := fmt.Sprintf("%s.backup.%d", s.path, time.Now().UnixMilli())
	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	return nil
}

// pruneBackups removes all but the newest retention backups. Pruning
// is best-effort: a failed removal never fails the save.
func (s *Store) pruneBackups() {
	matches, err := filepath.Glob(s.path + ".backup.*")
	if err != nil {
		return
	}

	type backup struct {
		path  string
		epoch int64
	}
	var backups []backup
	for _, m := range matches {
		suffix := strings.TrimPrefix(m, s.path+".backup.")
		epoch, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			continue
		}
		backups = append(backups, backup{path: m, epoch: epoch})
	}

	if len(backups) <= s.retention {
		return
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].epoch > backups[j].epoch
	})
	for _, b := range backups[s.retention:] {
		_ = os.Remove(b.path)
	}
}

// CreateProject adds a new named project to the vault.
func (s *Store) CreateProject(ctx context.Context, name, description string) (*Project, error) {
	data, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}

	if data.Project(name) != nil {
		return nil, fmt.Errorf("%w: %s", merrors.ErrProjectExists, name)
	}

	now := time.Now().UTC()
	data.Projects = append(data.Projects, Project{
		Name:        name,
		Description: description,
		Secrets:     []SecretEntry{},
		Created:     now,
		LastUpdated: now,
	})
	s.dirty = true
	return &data.Projects[len(data.Projects)-1], nil
}

// GetProject returns the named project, or nil if it does not exist.
func (s *Store) GetProject(ctx context.Context, name string) (*Project, error) {
	data, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}
	return data.Project(name), nil
}

// RemoveProject deletes the named project and all of its secrets.
func (s *Store) RemoveProject(ctx context.Context, name string) error {
	data, err := s.Document(ctx)
	if err != nil {
		return err
	}

	for i := range data.Projects {
		if data.Projects[i].Name == name {
			data.Projects = append(data.Projects[:i], data.Projects[i+1:]...)
			s.dirty = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", merrors.ErrProjectNotFound, name)
}

// AddSecret inserts a new secret into the named project. Adding a key
// that already exists is an error: overwrites must go through
// UpdateSecret.
func (s *Store) AddSecret(ctx context.Context, projectName string, entry SecretEntry) error {
	data, err := s.Document(ctx)
	if err != nil {
		return err
	}

	project := data.Project(projectName)
	if project == nil {
		return fmt.Errorf("%w: %s", merrors.ErrProjectNotFound, projectName)
	}
	if project.Secret(entry.Key) != nil {
		return fmt.Errorf("%w: %s in project %s", merrors.ErrSecretExists, entry.Key, projectName)
	}

	now := time.Now().UTC()
	if entry.Created.IsZero() {
		entry.Created = now
	}
	entry.LastUpdated = now
	if entry.Source == "" {
		entry.Source = SourceManual
	}

	project.Secrets = append(project.Secrets, entry)
	project.LastUpdated = now
	s.dirty = true
	return nil
}

// SecretUpdate carries the mutable fields of a secret. Nil pointers
// leave the existing value untouched.
type SecretUpdate struct {
	Value       *string
	Description *string
	Category    *string
	Expires     *time.Time
	Tags        []string
	Metadata    map[string]string
}

// UpdateSecret applies updates to an existing secret. The entry's
// Created timestamp is preserved; LastUpdated is refreshed.
func (s *Store) UpdateSecret(ctx context.Context, projectName, key string, updates SecretUpdate) error {
	data, err := s.Document(ctx)
	if err != nil {
		return err
	}

	project := data.Project(projectName)
	if project == nil {
		return fmt.Errorf("%w: %s", merrors.ErrProjectNotFound, projectName)
	}
	entry := project.Secret(key)
	if entry == nil {
		return fmt.Errorf("%w: %s in project %s", merrors.ErrSecretNotFound, key, projectName)
	}

	if updates.Value != nil {
		entry.Value = *updates.Value
	}
	if updates.Description != nil {
		entry.Description = *updates.Description
	}
	if updates.Category != nil {
		entry.Category = *updates.Category
	}
	if updates.Expires != nil {
		entry.Expires = updates.Expires
	}
	if updates.Tags != nil {
		entry.Tags = updates.Tags
	}
	if updates.Metadata != nil {
		entry.Metadata = updates.Metadata
	}

	now := time.Now().UTC()
	entry.LastUpdated = now
	project.LastUpdated = now
	s.dirty = true
	return nil
}

// DeleteSecret removes a secret from the named project.
func (s *Store) DeleteSecret(ctx context.Context, projectName, key string) error {
	data, err := s.Document(ctx)
	if err != nil {
		return err
	}

	project := data.Project(projectName)
	if project == nil {
		return fmt.Errorf("%w: %s", merrors.ErrProjectNotFound, projectName)
	}

	for i := range project.Secrets {
		if project.Secrets[i].Key == key {
			project.Secrets = append(project.Secrets[:i], project.Secrets[i+1:]...)
			project.LastUpdated = time.Now().UTC()
			s.dirty = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s in project %s", merrors.ErrSecretNotFound, key, projectName)
}

// ListFilter narrows ListSecrets output. Zero values match everything.
type ListFilter struct {
	Project  string
	Category string
	Tag      string
}

// ListSecrets returns all secrets matching the filter, in vault order.
func (s *Store) ListSecrets(ctx context.Context, filter ListFilter) ([]SecretEntry, error) {
	data, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}

	var result []SecretEntry
	for i := range data.Projects {
		project := &data.Projects[i]
		if filter.Project != "" && project.Name != filter.Project {
			continue
		}
		for _, entry := range project.Secrets {
			if filter.Category != "" && entry.Category != filter.Category {
				continue
			}
			if filter.Tag != "" && !containsString(entry.Tags, filter.Tag) {
				continue
			}
			result = append(result, entry)
		}
	}
	return result, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
