// Package main hosts the cadet CLI entrypoint and command graph.
//
// The Cobra command tree seeds the pending work-unit list, runs the
// extraction pipeline in the foreground, and reports on progress from the
// durable state files and the run journal. Configuration resolution, logger
// setup, and collaborator wiring live here so each command stays a thin
// adapter over the internal packages.
package main
