// Package types defines the shared vocabulary of the indexing pipeline:
// repository configuration, file fingerprints, chunks, embedding points,
// and indexing status records.
//
// The types in this package are plain data with validation helpers. They
// carry no behavior beyond derivation of stable identifiers (file IDs,
// point IDs) so that every pipeline stage agrees on identity without
// sharing state.
package types
