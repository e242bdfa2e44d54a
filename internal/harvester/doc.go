// Package harvester drives third-party CLI tools to extract API
// credentials, one stateful session per service.
//
// # Workflow
//
// Every session runs a strict step sequence, each step tracked with
// its own running/completed/failed state:
//
//  1. Tool detection: `<tool> --version` with fallback probes,
//     memoized per tool name for the process lifetime. Concurrent
//     checks for the same tool coalesce via singleflight.
//  2. Installation: only when detection fails; bounded at five
//     minutes, confirmed by a re-probe after the cache entry is
//     invalidated.
//  3. Authentication: commands containing "login" or "auth" run
//     through a piped child process with stdin closed immediately;
//     others are a simple bounded exec (60s).
//  4. Extraction: by config file (JSON/YAML/TOML parsers with a
//     regex-table fallback), or by environment variable. The
//     "command" method is reserved and fails hard.
//  5. Validation: the first candidate is checked against the
//     service's declared key formats and wrapped into a Credential
//     with full provenance.
//
// The first failing step aborts the remainder and marks the session
// failed. Sessions are never resumed; callers re-invoke Harvest.
//
// # Hooks
//
// External observers subscribe through the typed event bus (Hooks).
// Handler panics are recovered and logged, never allowed to interrupt
// a harvest.
//
// # Pattern mutations
//
// The extraction-pattern table is a versioned immutable PatternSet.
// Mutations build a new copy, compile-check it, and swap it in; a
// failing mutation never publishes, which is the rollback.
package harvester
