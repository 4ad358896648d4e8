// Package config loads, normalizes, and validates cinefetch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// TMDB_TOKEN, SIZE_POSTER, and SIZE_BACKDROP. The Config type centralizes every
// knob the pipeline and CLI need so the batch entry point receives one explicit
// value instead of reading process-wide state.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
