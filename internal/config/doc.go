// Package config loads, normalizes, and validates streamwatch configuration
// data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TWITCH_CLIENT_ID and DETECTION_THRESHOLD. The Config type centralizes every
// knob the daemon and CLI need, allowing data directories, Twitch credentials,
// and detection thresholds to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
