package status

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// Tracker holds the latest indexing status per repository. A new run
// replaces the previous record; reads return copies.
type Tracker struct {
	mu    sync.RWMutex
	runs  map[string]*types.IndexingStatus
	clock func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		runs:  make(map[string]*types.IndexingStatus),
		clock: time.Now,
	}
}

// Begin records a new pending run for the repository, replacing any
// previous record.
func (t *Tracker) Begin(repository string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[repository] = &types.IndexingStatus{
		Repository: repository,
		State:      types.StatePending,
		StartedAt:  t.clock(),
	}
}

// Start transitions the run to processing and records the file totals
// the percentage is computed against.
func (t *Tracker) Start(repository string, totalFiles, skippedFiles int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run, ok := t.runs[repository]
	if !ok || run.State.Terminal() {
		return
	}
	run.State = types.StateProcessing
	run.TotalFiles = totalFiles
	run.SkippedFiles = skippedFiles
}

// FileDone records one processed file and its chunk outcome.
func (t *Tracker) FileDone(repository string, chunks, embedded, failedChunks int, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run, ok := t.runs[repository]
	if !ok || run.State.Terminal() {
		return
	}
	run.ProcessedFiles++
	run.TotalChunks += chunks
	run.EmbeddedChunks += embedded
	run.FailedChunks += failedChunks
	if failed {
		run.FailedFiles++
	}
	run.PercentComplete = monotonicPercent(run.PercentComplete, run.ProcessedFiles, run.TotalFiles)
}

// FileDeleted records one removed file's cleanup.
func (t *Tracker) FileDeleted(repository string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run, ok := t.runs[repository]
	if !ok || run.State.Terminal() {
		return
	}
	run.DeletedFiles++
}

// Complete marks the run finished. With failed files the terminal state
// is failed but all counters are retained.
func (t *Tracker) Complete(repository string, runErr error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run, ok := t.runs[repository]
	if !ok || run.State.Terminal() {
		return
	}
	run.FinishedAt = t.clock()
	if runErr != nil {
		run.State = types.StateFailed
		run.Error = runErr.Error()
		return
	}
	if run.FailedFiles > 0 {
		run.State = types.StateFailed
		run.Error = fmt.Sprintf("%d of %d files failed", run.FailedFiles, run.TotalFiles)
		return
	}
	run.State = types.StateCompleted
	run.PercentComplete = 100
}

// Get returns a copy of the repository's latest status.
func (t *Tracker) Get(repository string) (types.IndexingStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	run, ok := t.runs[repository]
	if !ok {
		return types.IndexingStatus{}, false
	}
	return *run, true
}

// List returns copies of every repository's latest status, ordered by
// repository name.
func (t *Tracker) List() []types.IndexingStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.IndexingStatus, 0, len(t.runs))
	for _, run := range t.runs {
		out = append(out, *run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Repository < out[j].Repository })
	return out
}

// Remove drops a repository's status record.
func (t *Tracker) Remove(repository string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.runs, repository)
}

// monotonicPercent never lets the reported percentage move backwards,
// even if totals were estimated low at the start of a run.
func monotonicPercent(current float64, processed, total int) float64 {
	if total <= 0 {
		return current
	}
	pct := float64(processed) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	if pct < current {
		return current
	}
	return pct
}
