// Package ledger keeps an append-only SQLite history of generation runs and
// the provider attempts made for each asset.
//
// The ledger is a record, not resume state: nothing reads it back into the
// asset store. The `history` command renders it and the orchestrator writes
// to it through its Recorder interface.
package ledger
