// Package watcher re-indexes repositories on a polling interval. Polling
// keeps change detection identical between manual and watched runs: every
// tick is a normal scan, and a run only starts when the scan finds work.
package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// Watcher runs one cancellable polling loop per watched repository.
// The scan and reindex functions are injected so the loop stays
// decoupled from the indexer's concrete types.
type Watcher struct {
	hasChanges func(ctx context.Context, repository string) (bool, error)
	reindex    func(ctx context.Context, repository string) error
	log        *zap.Logger

	// baseCtx bounds the ticks themselves. Stopping a single watch only
	// signals its loop; a pass already in flight keeps running under
	// baseCtx until it finishes. Close cancels baseCtx.
	baseCtx context.Context
	cancel  context.CancelFunc

	mu    sync.Mutex
	stops map[string]chan struct{}
	wg    sync.WaitGroup
}

// New creates a Watcher driving the given scan and reindex functions.
func New(
	hasChanges func(ctx context.Context, repository string) (bool, error),
	reindex func(ctx context.Context, repository string) error,
	log *zap.Logger,
) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		hasChanges: hasChanges,
		reindex:    reindex,
		log:        log,
		baseCtx:    baseCtx,
		cancel:     cancel,
		stops:      make(map[string]chan struct{}),
	}
}

// Start begins watching a repository at the given interval. Starting an
// already-watched repository is a no-op; the existing loop and its
// interval are kept.
func (w *Watcher) Start(repository string, interval time.Duration) error {
	if interval <= 0 {
		interval = types.DefaultWatchInterval
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.stops[repository]; ok {
		w.log.Debug("watch already running", zap.String("repository", repository))
		return nil
	}

	stop := make(chan struct{})
	w.stops[repository] = stop

	w.wg.Add(1)
	go w.loop(stop, repository, interval)

	w.log.Info("watch started",
		zap.String("repository", repository),
		zap.Duration("interval", interval))
	return nil
}

// Stop ends a repository's watch loop. A tick already in flight runs
// to completion; only future ticks are cancelled. Stopping an unwatched
// repository is a no-op.
func (w *Watcher) Stop(repository string) bool {
	w.mu.Lock()
	stop, ok := w.stops[repository]
	if ok {
		delete(w.stops, repository)
	}
	w.mu.Unlock()

	if ok {
		close(stop)
		w.log.Info("watch stopped", zap.String("repository", repository))
	}
	return ok
}

// Watching reports whether a repository has an active watch loop.
func (w *Watcher) Watching(repository string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.stops[repository]
	return ok
}

// Watched returns the names of all actively watched repositories.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.stops))
	for name := range w.stops {
		out = append(out, name)
	}
	return out
}

// Close stops every watch loop, cancels any tick still in flight, and
// waits for the loops to exit.
func (w *Watcher) Close() {
	w.mu.Lock()
	for name, stop := range w.stops {
		close(stop)
		delete(w.stops, name)
	}
	w.mu.Unlock()
	w.cancel()
	w.wg.Wait()
}

func (w *Watcher) loop(stop <-chan struct{}, repository string, interval time.Duration) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-w.baseCtx.Done():
			return
		case <-ticker.C:
			w.tick(w.baseCtx, repository)
		}
	}
}

// tick scans for deltas and runs the shared pipeline only when there is
// work. A run already in flight is skipped, not queued.
func (w *Watcher) tick(ctx context.Context, repository string) {
	changed, err := w.hasChanges(ctx, repository)
	if err != nil {
		w.log.Warn("watch scan failed",
			zap.String("repository", repository),
			zap.Error(err))
		return
	}
	if !changed {
		return
	}

	if err := w.reindex(ctx, repository); err != nil {
		if errors.Is(err, types.ErrIndexingInProgress) {
			return
		}
		w.log.Warn("watch reindex failed",
			zap.String("repository", repository),
			zap.Error(err))
	}
}
