// Package notifications delivers run events via ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// pipeline code publishes unconditionally. Per-event toggles in config.toml
// suppress individual event kinds.
package notifications
