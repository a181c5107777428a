// Package metadata is the durable ledger behind incremental indexing.
//
// It persists two kinds of records in SQLite: repository configurations
// (keyed by name) and per-file fingerprints (keyed by repository ID and
// file ID). Fingerprints are the crash-safety anchor of the pipeline: a
// fingerprint is written only after the file's chunks have been embedded
// and upserted, so an interrupted run leaves the file classified as new
// or modified on the next pass, never falsely indexed.
//
// Two SQLite drivers are supported via build tags: modernc.org/sqlite
// (pure Go, the default) and mattn/go-sqlite3 (cgo). The database runs in
// WAL mode with a single write connection.
package metadata
