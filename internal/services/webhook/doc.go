// Package webhook reconciles asynchronous provider notifications into the
// ledger. Every notification is written to an inbox before it is applied, so
// a crash between receipt and reconciliation is recovered by the replayer.
// Applying the same notification twice is a no-op.
package webhook
