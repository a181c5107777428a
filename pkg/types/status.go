package types

import "time"

// IndexState is the lifecycle state of an indexing run.
// Transitions: pending -> processing -> {completed | failed}. Terminal
// states are final.
type IndexState string

const (
	StatePending    IndexState = "pending"
	StateProcessing IndexState = "processing"
	StateCompleted  IndexState = "completed"
	StateFailed     IndexState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s IndexState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// IndexingStatus is the pollable progress record for one repository's
// indexing run. PercentComplete is monotonically non-decreasing within a
// run. Counters are retained on failure for diagnostics.
type IndexingStatus struct {
	Repository      string     `json:"repository"`
	State           IndexState `json:"state"`
	PercentComplete float64    `json:"percentage_complete"`
	TotalFiles      int        `json:"total_files"`
	ProcessedFiles  int        `json:"processed_files"`
	SkippedFiles    int        `json:"skipped_files"`
	FailedFiles     int        `json:"failed_files"`
	DeletedFiles    int        `json:"deleted_files"`
	TotalChunks     int        `json:"total_chunks"`
	EmbeddedChunks  int        `json:"embedded_chunks"`
	FailedChunks    int        `json:"failed_chunks"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      time.Time  `json:"finished_at,omitempty"`
}
