// Package config loads, normalizes, and validates audiosub configuration.
//
// Configuration is read from TOML (default ~/.config/audiosub/config.toml, or
// ./audiosub.toml when present). Missing values fall back to the defaults in
// defaults.go, and the model credential falls back to environment variables,
// optionally seeded from a .env file in the working directory.
//
// The loaded Config is the only place credentials are resolved. Downstream
// packages receive values explicitly at construction time and never consult
// the environment themselves.
package config
