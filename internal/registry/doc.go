// Package registry holds the static catalog of API services Magpie
// knows how to harvest credentials for.
//
// Each entry records the service's CLI tooling (install and auth
// commands, credential config location, extraction method) and the
// key formats it issues. The catalog is process-wide immutable state:
// it is populated at init and only queried afterwards, so lookups are
// safe from any goroutine.
package registry
