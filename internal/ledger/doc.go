// Package ledger records pipeline run history in a local SQLite database:
// one row per run plus one row per executed stage. The ledger exists for
// after-the-fact inspection; pipeline execution never reads from it.
package ledger
