// Package indexer coordinates the incremental indexing pipeline:
// scan -> classify -> chunk -> embed -> upsert -> commit fingerprint.
//
// Fingerprints are committed only after a file's chunks are durably in
// the vector store, so a crash mid-run re-processes at most the files
// that were in flight. Modified files delete their stale points before
// new ones are inserted, and per-file failures never abort the rest of
// a batch.
package indexer
