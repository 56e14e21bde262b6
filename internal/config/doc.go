// Package config loads, normalizes, and validates the BigRack configuration.
//
// Configuration lives in a single TOML file. Load resolves the file from an
// explicit path, ~/.config/bigrack/config.toml, or a project-local
// bigrack.toml, merges it over repository defaults, expands every path field,
// and validates the result so downstream packages never see a half-formed
// config. The embedded sample powers `bigrack config init`.
package config
