// Package preflight provides readiness checks for the filesystem paths and
// the recognition service that cadet depends on.
//
// These checks run in two contexts:
//   - "cadet run" calls RunAll before starting, without the service check,
//     and refuses to start when any check fails.
//   - "cadet preflight" prints every result, including the service check when
//     --check-llm is given.
package preflight
