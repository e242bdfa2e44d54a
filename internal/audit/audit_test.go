package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/finchsec/magpie/internal/configs"
)

func withTempDataDir(t *testing.T) string {
	t.Helper()
	original := configs.UserMagpieSettings
	dir := t.TempDir()
	configs.UserMagpieSettings = &configs.UserSettings{
		UserDataPath:    dir,
		UserConfigsPath: dir,
	}
	t.Cleanup(func() { configs.UserMagpieSettings = original })
	return dir
}

func TestLogAppendsJSONLines(t *testing.T) {
	withTempDataDir(t)

	Log(Entry{Operation: "harvest", Service: "github", Status: "completed"})
	Log(Entry{Operation: "vault.add", Project: "backend", SecretKey: "API_KEY"})

	raw, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("failed to read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var first Entry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not valid JSON: %v", err)
	}
	if first.Operation != "harvest" || first.Service != "github" {
		t.Errorf("first entry = %+v", first)
	}
	if first.Timestamp == "" {
		t.Error("timestamp should be filled in automatically")
	}

	var second Entry
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("second line is not valid JSON: %v", err)
	}
	if second.Project != "backend" || second.SecretKey != "API_KEY" {
		t.Errorf("second entry = %+v", second)
	}
}

func TestLogPathUnderDataDir(t *testing.T) {
	dir := withTempDataDir(t)

	if got := LogPath(); got != filepath.Join(dir, "audit.jsonl") {
		t.Errorf("LogPath() = %q", got)
	}
}

func TestLogNeverFails(t *testing.T) {
	original := configs.UserMagpieSettings
	configs.UserMagpieSettings = nil
	defer func() { configs.UserMagpieSettings = original }()

	// Must be a silent no-op without settings.
	Log(Entry{Operation: "harvest"})
}
