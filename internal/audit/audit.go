package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/finchsec/magpie/internal/configs"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"` // RFC3339 with microseconds.
	Operation string `json:"op"` // Operation name.

	// Optional fields depending on operation.
	Project      string   `json:"project,omitempty"`       // For vault mutations.
	SecretKey    string   `json:"secret_key,omitempty"`    // For add/update/delete.
	Service      string   `json:"service,omitempty"`       // For harvest.
	SessionID    string   `json:"session_id,omitempty"`    // For harvest.
	Status       string   `json:"status,omitempty"`        // For harvest (completed/failed).
	Keys         []string `json:"keys,omitempty"`          // For import/export.
	KeysCount    int      `json:"keys_count,omitempty"`    // For import/export.
	SkippedCount int      `json:"skipped_count,omitempty"` // For import.
	Error        string   `json:"error,omitempty"`         // For failed operations.
}

// Log appends an entry to the audit log.
// If logging fails it returns silently. Operations should not fail
// just because audit logging failed.
func Log(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	logPath := LogPath()
	if logPath == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return
	}

	// #nosec G306 -- audit log contains no secret values.
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// LogPath returns the path to the audit log file.
func LogPath() string {
	if configs.UserMagpieSettings == nil {
		return ""
	}
	return filepath.Join(configs.UserMagpieSettings.UserDataPath, "audit.jsonl")
}
