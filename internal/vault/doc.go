// Package vault implements Magpie's encrypted secrets store.
//
// A vault is a single versioned JSON document holding projects, each
// owning an ordered list of secret entries unique by key. On disk the
// document is always encrypted by the external sops binary (via the
// sops package); in memory it is held as exactly one *Data per vault
// path.
//
// # Persistence
//
// Saves are crash-safe: the document is written to a temp file in the
// vault directory, the temp file is encrypted, the previous vault file
// is copied to a timestamped backup (<path>.backup.<epoch-ms>), and
// the temp file is atomically renamed over the target. The five most
// recent backups are retained; older ones are pruned after each save.
//
// The atomic rename protects against partial writes, not against lost
// updates between two concurrent writers. The design assumes a single
// writer per vault file; no cross-process lock is taken.
//
// # Env import/export
//
// ImportEnv parses standard .env syntax (KEY=value with optional
// quoting) and classifies every key as imported, skipped, or errored;
// one bad line never aborts the batch. ExportEnv serializes a
// project's secrets back into .env syntax, quoting values that contain
// whitespace or shell-special characters.
package vault
