// Package configs manages Magpie's user configuration.
//
// Configuration lives in a TOML file under the user config directory
// (e.g. ~/.config/magpie/config.toml) and covers the vault location,
// backup retention, and the sops key groups used for encryption at
// rest. A missing config file is not an error: defaults apply.
package configs
