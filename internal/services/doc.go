// Package services defines shared utilities consumed by the asset pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp batch run IDs, record IDs, and asset kinds for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into fatal setup errors versus contained per-job failures.
//
// Use these helpers when wiring new pipeline code so operational behaviour
// (error classification, observability) stays uniform across the tool.
package services
