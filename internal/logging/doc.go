// Package logging assembles structured slog loggers and formatting helpers used
// across cadet.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code automatically tags log
// lines with the run ID, work unit, item key, and worker number. When a log
// directory is configured, every record is also written as JSON to a file so
// long unattended runs leave a machine-readable trail. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
