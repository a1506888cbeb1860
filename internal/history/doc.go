// Package history journals pipeline runs and per-item outcomes in SQLite.
//
// The journal is observational. The records table and the error log remain
// the durable source of truth for which items are complete; the journal adds
// per-run totals and timing so operators can answer "what happened last night"
// without grepping CSV files. Schema changes bump schemaVersion; users delete
// history.db to adopt the new schema.
package history
