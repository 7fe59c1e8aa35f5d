// Package config loads, normalizes, and validates tagprint configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TAGPRINT_PRINTER_HOST and NTFY_TOPIC. The Config type centralizes every knob
// the relay daemon and CLI need: where fallback label files land, which printer
// receives raw ZPL, and how logs are shaped.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
