// Package logging assembles the slog loggers used by cinefetch.
//
// It owns the console and JSON handlers, level parsing, the per-day log file
// under the state directory, and helpers that tag log lines with the batch run
// id, record id, and asset kind carried on a context. NewNop returns a logger
// for tests and wiring code that cannot fail.
package logging
