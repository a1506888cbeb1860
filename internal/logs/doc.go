// Package logs reads back the daily JSON log files written by the logging
// package. It locates the newest file, tails it with an optional follow mode,
// and filters and renders entries for the 'cadet logs' command.
package logs
