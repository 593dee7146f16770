// Package store keeps a history of validation runs in SQLite.
//
// Each run records its trigger, inputs, the combined content fingerprint
// of the inputs, its outcome and per-level counts, plus every violation
// it reported. Two drivers are supported: "sqlite" (modernc.org/sqlite,
// pure Go, the default) and "sqlite3" (github.com/mattn/go-sqlite3, cgo).
//
// With max_runs set, Record prunes all but the newest runs in the same
// transaction.
package store
