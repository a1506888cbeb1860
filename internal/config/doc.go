// Package config loads, normalizes, and validates cadet configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CADET_API_KEY. The Config type centralizes every knob the pipeline and CLI
// need: where work units live, where durable state files are kept, how hard
// the recognition service may be driven, and how results are logged.
//
// Always obtain settings through this package so downstream code receives
// absolute state file paths, canonical log formats, and clear validation
// errors that name the offending TOML key.
package config
