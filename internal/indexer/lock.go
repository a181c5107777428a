package indexer

import "sync"

// RunGuard enforces single-flight indexing per repository. TryAcquire is
// non-blocking: a second run requested while one is in flight is refused
// rather than queued.
type RunGuard struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewRunGuard creates an empty guard.
func NewRunGuard() *RunGuard {
	return &RunGuard{active: make(map[string]bool)}
}

// TryAcquire attempts to claim the repository without blocking.
// Returns true if the claim succeeded, false if a run is already active.
func (g *RunGuard) TryAcquire(repository string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[repository] {
		return false
	}
	g.active[repository] = true
	return true
}

// Release frees the repository. Must only be called after a successful
// TryAcquire.
func (g *RunGuard) Release(repository string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, repository)
}
