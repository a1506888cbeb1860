// Package services defines shared utilities consumed by the pipeline and the
// recognition service integration.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, work unit names, and item keys for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that separate fatal
//     bookkeeping failures from per-item outcomes.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
