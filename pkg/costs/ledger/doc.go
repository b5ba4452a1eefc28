// Package ledger provides a durable SQLite archive of cost entries.
//
// The in-memory cost monitor remains the source of truth for budget math;
// the ledger is a write-behind sink (it implements costs.Archiver) that
// survives restarts and serves historical queries and exports.
//
// A cron-scheduled pruner enforces the retention window on the database
// independently of the monitor's in-memory pruning.
package ledger
