// Package config loads, normalizes, and validates voiceloom configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VOICELOOM_TOOLKIT_DIR. The Config type centralizes every knob the pipeline
// and CLI need, allowing the data tree, toolkit location, and pretrained asset
// paths to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
