package sops

import (
	"encoding/json"
)

// FileMetadata is the subset of the sops metadata stanza that Magpie
// inspects. The stanza is written by sops into every encrypted file.
type FileMetadata struct {
	Version      string // sops version that last wrote the file.
	LastModified string // RFC3339 timestamp of the last encryption.
	KMSCount     int
	PGPCount     int
	AgeCount     int
	VaultCount   int
}

// sopsStanza mirrors the on-disk "sops" object in an encrypted JSON file.
type sopsStanza struct {
	Version      string            `json:"version"`
	LastModified string            `json:"lastmodified"`
	KMS          []json.RawMessage `json:"kms"`
	PGP          []json.RawMessage `json:"pgp"`
	Age          []json.RawMessage `json:"age"`
	HCVault      []json.RawMessage `json:"hc_vault"`
}

// parseMetadata extracts sops metadata from raw file content. Content
// that is not JSON, or JSON without a sops stanza, yields nil: the file
// is simply not encrypted.
func parseMetadata(raw []byte) *FileMetadata {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	stanzaRaw, ok := doc["sops"]
	if !ok {
		return nil
	}

	var stanza sopsStanza
	if err := json.Unmarshal(stanzaRaw, &stanza); err != nil {
		return nil
	}
	if stanza.Version == "" {
		return nil
	}

	return &FileMetadata{
		Version:      stanza.Version,
		LastModified: stanza.LastModified,
		KMSCount:     len(stanza.KMS),
		PGPCount:     len(stanza.PGP),
		AgeCount:     len(stanza.Age),
		VaultCount:   len(stanza.HCVault),
	}
}
