// Package history keeps a SQLite ledger of import runs and the result of
// every folder upload, so operators can see what a cron-driven run did
// without digging through logs.
package history
