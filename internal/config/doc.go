// Package config loads, normalizes, and validates the winnow TOML
// configuration. Defaults apply when no file exists; CLI flags override
// loaded values at the command layer.
package config
