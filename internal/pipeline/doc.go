// Package pipeline drives one extraction run over the pending work units.
//
// A run holds an exclusive lock on the state directory, loads the completion
// ledger from the result tables, then walks the pending units in order. Each
// unit's images are fanned out over the worker pool; every image is either
// skipped as already complete, skipped for lack of budget, or sent to the
// recognition service exactly once and its outcome appended to the records
// table or the error log. A unit is marked processed only when every image
// was handled in this or an earlier run.
//
// Records and error-log rows are the source of truth. The run journal,
// metrics, and notifications are side channels whose failures are logged and
// never stop a run.
package pipeline
