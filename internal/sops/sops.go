package sops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	merrors "github.com/finchsec/magpie/internal/errors"
)

// Runner executes an external command and returns its stdout and stderr.
// The production implementation shells out via os/exec; tests substitute
// a fake to avoid requiring a sops installation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// KeyGroups holds the recipients for each supported key scheme.
// Multiple schemes are concatenated additively when encrypting: every
// listed recipient can decrypt the file.
type KeyGroups struct {
	KMS          []string // AWS KMS key ARNs.
	PGP          []string // PGP key fingerprints.
	Age          []string // age recipient public keys.
	VaultTransit []string // HashiCorp Vault transit key URIs.
}

// Empty reports whether no recipients are configured at all.
func (g KeyGroups) Empty() bool {
	return len(g.KMS) == 0 && len(g.PGP) == 0 && len(g.Age) == 0 && len(g.VaultTransit) == 0
}

// EncryptFlags serializes the key groups into sops encryption flags.
func (g KeyGroups) EncryptFlags() []string {
	var flags []string
	if len(g.KMS) > 0 {
		flags = append(flags, "--kms", strings.Join(g.KMS, ","))
	}
	if len(g.PGP) > 0 {
		flags = append(flags, "--pgp", strings.Join(g.PGP, ","))
	}
	if len(g.Age) > 0 {
		flags = append(flags, "--age", strings.Join(g.Age, ","))
	}
	if len(g.VaultTransit) > 0 {
		flags = append(flags, "--hc-vault-transit", strings.Join(g.VaultTransit, ","))
	}
	return flags
}

// AddFlags serializes the key groups into key-addition flags, as used
// when updating the recipients of an already encrypted file.
func (g KeyGroups) AddFlags() []string {
	var flags []string
	if len(g.KMS) > 0 {
		flags = append(flags, "--add-kms", strings.Join(g.KMS, ","))
	}
	if len(g.PGP) > 0 {
		flags = append(flags, "--add-pgp", strings.Join(g.PGP, ","))
	}
	if len(g.Age) > 0 {
		flags = append(flags, "--add-age", strings.Join(g.Age, ","))
	}
	if len(g.VaultTransit) > 0 {
		flags = append(flags, "--add-hc-vault-transit", strings.Join(g.VaultTransit, ","))
	}
	return flags
}

// Error describes a failed sops invocation. The original stderr is
// preserved so callers can surface the underlying cause.
type Error struct {
	Op     string // Operation name (encrypt, decrypt, rotate, ...).
	Path   string // File the operation targeted.
	Stderr string // Trimmed stderr from the sops process.
	Err    error  // Underlying exec error.
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("sops %s %s: %v: %s", e.Op, e.Path, e.Err, e.Stderr)
	}
	return fmt.Sprintf("sops %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Shim wraps the external sops binary. All operations shell out; sops
// itself owns the envelope encryption, data keys, and key management.
type Shim struct {
	binary string
	runner Runner
}

// New returns a Shim that invokes the given sops binary.
func New(binary string) *Shim {
	if binary == "" {
		binary = "sops"
	}
	return &Shim{binary: binary, runner: execRunner{}}
}

// NewWithRunner returns a Shim using a custom command runner.
func NewWithRunner(binary string, runner Runner) *Shim {
	s := New(binary)
	s.runner = runner
	return s
}

func (s *Shim) run(ctx context.Context, op, path string, args ...string) ([]byte, error) {
	stdout, stderr, err := s.runner.Run(ctx, s.binary, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q is not on PATH", merrors.ErrSopsNotFound, s.binary)
		}
		return nil, &Error{
			Op:     op,
			Path:   path,
			Stderr: strings.TrimSpace(string(stderr)),
			Err:    err,
		}
	}
	return stdout, nil
}

// storeTypeFlags pins the sops store format to JSON. Without them sops
// infers the store from the file extension, and encrypting under a temp
// name would produce a binary-store envelope that no longer round-trips
// as the original document.
var storeTypeFlags = []string{"--input-type", "json", "--output-type", "json"}

// Encrypt encrypts the file at path in place using the given key groups.
func (s *Shim) Encrypt(ctx context.Context, path string, groups KeyGroups) error {
	if groups.Empty() {
		return merrors.ErrNoKeyGroups
	}

	args := append([]string{"--encrypt", "--in-place"}, storeTypeFlags...)
	args = append(args, groups.EncryptFlags()...)
	args = append(args, path)

	if _, err := s.run(ctx, "encrypt", path, args...); err != nil {
		return fmt.Errorf("%w: %w", merrors.ErrEncryptFailed, err)
	}
	return nil
}

// Decrypt decrypts the file at path and returns the plaintext.
func (s *Shim) Decrypt(ctx context.Context, path string) ([]byte, error) {
	args := append([]string{"--decrypt"}, storeTypeFlags...)
	args = append(args, path)

	plaintext, err := s.run(ctx, "decrypt", path, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", merrors.ErrDecryptFailed, err)
	}
	return plaintext, nil
}

// DecryptTo decrypts the file at path and writes the plaintext to outputPath.
func (s *Shim) DecryptTo(ctx context.Context, path, outputPath string) error {
	args := append([]string{"--decrypt", "--output", outputPath}, storeTypeFlags...)
	args = append(args, path)

	if _, err := s.run(ctx, "decrypt", path, args...); err != nil {
		return fmt.Errorf("%w: %w", merrors.ErrDecryptFailed, err)
	}
	return nil
}

// UpdateKeys adds the given key groups to an already encrypted file and
// re-encrypts the data key so the new recipients can decrypt it.
func (s *Shim) UpdateKeys(ctx context.Context, path string, groups KeyGroups) error {
	if groups.Empty() {
		return merrors.ErrNoKeyGroups
	}

	args := append([]string{"--rotate", "--in-place"}, groups.AddFlags()...)
	args = append(args, path)

	_, err := s.run(ctx, "updatekeys", path, args...)
	return err
}

// Rotate generates a new data key for the file and re-encrypts its
// contents with it.
func (s *Shim) Rotate(ctx context.Context, path string) error {
	_, err := s.run(ctx, "rotate", path, "--rotate", "--in-place", path)
	return err
}

// IsEncrypted reports whether the file at path carries sops metadata.
// A missing or unparseable file is reported as not encrypted.
func (s *Shim) IsEncrypted(path string) bool {
	meta, err := s.Metadata(path)
	return err == nil && meta != nil
}

// Metadata reads the sops metadata stanza from the file at path.
// It returns (nil, nil) when the file exists but carries no metadata,
// and an error only for unreadable files.
func (s *Shim) Metadata(path string) (*FileMetadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseMetadata(raw), nil
}
