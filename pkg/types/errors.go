package types

import "errors"

// Error taxonomy for the indexing pipeline. Callers classify failures by
// errors.Is against these sentinels; wrapped detail carries the specifics.
var (
	// ErrInvalidInput indicates a bad path or parameter. Fatal, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransientProvider indicates an embedding or vector-store failure
	// that is isolated at chunk or batch granularity and does not abort
	// the run.
	ErrTransientProvider = errors.New("transient provider error")

	// ErrConfiguration indicates missing credentials or an unusable
	// provider configuration. Fatal at construction time.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a duplicate record.
	ErrAlreadyExists = errors.New("already exists")

	// ErrIndexingInProgress is returned when a repository already has an
	// indexing run in flight.
	ErrIndexingInProgress = errors.New("indexing already in progress")
)
