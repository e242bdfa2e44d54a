// Package audit provides audit trail logging for Magpie operations.
//
// Every significant operation (vault mutation, env import/export,
// harvest session outcome) is recorded in a user-level audit log.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line)
// under the user data directory:
//
//	~/.local/share/magpie/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Operation name
//   - Operation-specific details (project, secret key, service, ...)
//
// Secret values are never written to the audit log.
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk
// full, etc.), the operation continues without error. Operations
// should never fail just because audit logging failed.
package audit
