// Package config loads, normalizes, and validates mediadup configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEDIADUP_DB_PATH. The Config type centralizes every knob the engine and CLI
// need, so scan roots, similarity thresholds, and index locations are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
