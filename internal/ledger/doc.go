// Package ledger records the history of asset batches in a small SQLite
// database under the state directory.
//
// Each run stores its counts and one row per download job with the terminal
// status, attempt count and failure classification. The ledger is an audit
// trail only; nothing in the batch pipeline reads it back to decide what to
// download.
package ledger
