// Package main hosts the cinefetch CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once per invocation, builds the
// slog logger, and hands batch work to internal/assets. Commands cover the
// download batch, the local-path pass, the upstream popular-list fetch,
// readiness checks, ledger history, and configuration scaffolding.
//
// Logs go to stderr and the daily file under the state directory; stdout is
// reserved for summaries so --json output can be piped.
package main
