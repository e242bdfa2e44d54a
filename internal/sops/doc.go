// Package sops wraps the external sops binary for encryption at rest.
//
// Magpie never implements envelope encryption itself. Every operation
// (encrypt, decrypt, key updates, data-key rotation) shells out to
// sops, which owns the data keys and the key-group handling for KMS,
// PGP, age, and Vault-transit recipients.
//
// Failures surface as *Error values carrying the operation, the target
// path, and the trimmed stderr of the sops process, so the underlying
// cause is never swallowed.
//
// Encryption detection is passive: IsEncrypted reads the file and
// looks for the well-known "sops" metadata stanza. A file without the
// stanza, or one that does not parse, is simply not encrypted; that is
// an answer, not an error.
package sops
