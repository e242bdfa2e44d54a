package sops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	merrors "github.com/finchsec/magpie/internal/errors"
)

// fakeRunner scripts subprocess outcomes so shim tests never invoke a
// real sops binary.
type fakeRunner struct {
	calls  [][]string
	stdout []byte
	stderr []byte
	err    error
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.stdout, r.stderr, r.err
}

func TestKeyGroupsEmpty(t *testing.T) {
	if !(KeyGroups{}).Empty() {
		t.Error("zero KeyGroups should be empty")
	}
	if (KeyGroups{Age: []string{"age1xyz"}}).Empty() {
		t.Error("KeyGroups with an age recipient should not be empty")
	}
}

func TestKeyGroupsEncryptFlags(t *testing.T) {
	groups := KeyGroups{
		KMS: []string{"arn:aws:kms:us-east-1:111:key/abc", "arn:aws:kms:us-east-1:222:key/def"},
		Age: []string{"age1xyz"},
	}

	want := []string{
		"--kms", "arn:aws:kms:us-east-1:111:key/abc,arn:aws:kms:us-east-1:222:key/def",
		"--age", "age1xyz",
	}
	if got := groups.EncryptFlags(); !reflect.DeepEqual(got, want) {
		t.Errorf("EncryptFlags() = %v, want %v", got, want)
	}
}

func TestKeyGroupsAddFlags(t *testing.T) {
	groups := KeyGroups{
		PGP:          []string{"FBC7B9E2A4F9289AC0C1D4843D16CEE4A27381B4"},
		VaultTransit: []string{"https://vault.example.com/v1/transit/keys/app"},
	}

	want := []string{
		"--add-pgp", "FBC7B9E2A4F9289AC0C1D4843D16CEE4A27381B4",
		"--add-hc-vault-transit", "https://vault.example.com/v1/transit/keys/app",
	}
	if got := groups.AddFlags(); !reflect.DeepEqual(got, want) {
		t.Errorf("AddFlags() = %v, want %v", got, want)
	}
}

func TestEncryptRequiresKeyGroups(t *testing.T) {
	runner := &fakeRunner{}
	shim := NewWithRunner("sops", runner)

	err := shim.Encrypt(context.Background(), "vault.json", KeyGroups{})
	if !errors.Is(err, merrors.ErrNoKeyGroups) {
		t.Errorf("Encrypt() = %v, want ErrNoKeyGroups", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("no key groups should mean no sops invocation, got %v", runner.calls)
	}
}

func TestEncryptBuildsCommandLine(t *testing.T) {
	runner := &fakeRunner{}
	shim := NewWithRunner("sops", runner)

	groups := KeyGroups{Age: []string{"age1xyz"}}
	if err := shim.Encrypt(context.Background(), "/tmp/vault.json", groups); err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}

	want := []string{
		"sops", "--encrypt", "--in-place",
		"--input-type", "json", "--output-type", "json",
		"--age", "age1xyz", "/tmp/vault.json",
	}
	if len(runner.calls) != 1 || !reflect.DeepEqual(runner.calls[0], want) {
		t.Errorf("sops invoked with %v, want %v", runner.calls, want)
	}
}

// Saves encrypt the document under a temp name before the rename, so
// the store format must be pinned on the command line rather than
// inferred from the file extension. Otherwise sops would pick the
// binary store for a ".tmp-NNN" suffix and the decrypted output would
// come back wrapped as a string under "data".
func TestStoreFormatIsPinnedRegardlessOfExtension(t *testing.T) {
	runner := &fakeRunner{stdout: []byte(`{"projects":[]}`)}
	shim := NewWithRunner("sops", runner)

	groups := KeyGroups{Age: []string{"age1xyz"}}
	if err := shim.Encrypt(context.Background(), "/tmp/vault.json.tmp-12345", groups); err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if _, err := shim.Decrypt(context.Background(), "/tmp/vault.json"); err != nil {
		t.Fatalf("Decrypt() failed: %v", err)
	}

	for _, call := range runner.calls {
		argv := strings.Join(call, " ")
		if !strings.Contains(argv, "--input-type json") || !strings.Contains(argv, "--output-type json") {
			t.Errorf("store format not pinned in %v", call)
		}
	}
}

func TestDecryptReturnsPlaintext(t *testing.T) {
	runner := &fakeRunner{stdout: []byte(`{"secret":"value"}`)}
	shim := NewWithRunner("sops", runner)

	plaintext, err := shim.Decrypt(context.Background(), "/tmp/vault.json")
	if err != nil {
		t.Fatalf("Decrypt() failed: %v", err)
	}
	if string(plaintext) != `{"secret":"value"}` {
		t.Errorf("plaintext = %q", plaintext)
	}
}

func TestDecryptFailurePreservesStderr(t *testing.T) {
	runner := &fakeRunner{
		stderr: []byte("Failed to get the data key required to decrypt the SOPS file.\n"),
		err:    fmt.Errorf("exit status 128"),
	}
	shim := NewWithRunner("sops", runner)

	_, err := shim.Decrypt(context.Background(), "/tmp/vault.json")
	if !errors.Is(err, merrors.ErrDecryptFailed) {
		t.Fatalf("Decrypt() = %v, want ErrDecryptFailed", err)
	}

	var sopsErr *Error
	if !errors.As(err, &sopsErr) {
		t.Fatalf("error chain %v is missing *sops.Error", err)
	}
	if !strings.Contains(sopsErr.Stderr, "data key") {
		t.Errorf("stderr not preserved: %q", sopsErr.Stderr)
	}
	if sopsErr.Op != "decrypt" {
		t.Errorf("op = %q, want decrypt", sopsErr.Op)
	}
}

func TestMissingBinaryIsSentinel(t *testing.T) {
	runner := &fakeRunner{err: exec.ErrNotFound}
	shim := NewWithRunner("sops", runner)

	_, err := shim.Decrypt(context.Background(), "/tmp/vault.json")
	if !errors.Is(err, merrors.ErrSopsNotFound) {
		t.Errorf("Decrypt() = %v, want ErrSopsNotFound", err)
	}
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *FileMetadata
	}{
		{"not JSON", "plain text", nil},
		{"JSON without stanza", `{"projects":[]}`, nil},
		{"stanza without version", `{"sops":{}}`, nil},
		{
			"encrypted file",
			`{"data":"ENC[...]","sops":{"version":"3.8.1","lastmodified":"2024-06-01T10:00:00Z","age":[{"recipient":"age1xyz"}],"kms":null}}`,
			&FileMetadata{Version: "3.8.1", LastModified: "2024-06-01T10:00:00Z", AgeCount: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseMetadata([]byte(tt.raw))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseMetadata() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsEncrypted(t *testing.T) {
	dir := t.TempDir()
	shim := New("sops")

	plainPath := filepath.Join(dir, "plain.json")
	if err := os.WriteFile(plainPath, []byte(`{"projects":[]}`), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	encPath := filepath.Join(dir, "enc.json")
	encContent := `{"data":"ENC[...]","sops":{"version":"3.8.1"}}`
	if err := os.WriteFile(encPath, []byte(encContent), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if shim.IsEncrypted(plainPath) {
		t.Error("plain file reported as encrypted")
	}
	if !shim.IsEncrypted(encPath) {
		t.Error("sops file reported as plaintext")
	}
	if shim.IsEncrypted(filepath.Join(dir, "missing.json")) {
		t.Error("missing file reported as encrypted")
	}
}
