package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elgui/mcp-ragdocs/internal/chunk"
	"github.com/elgui/mcp-ragdocs/internal/gitinfo"
	"github.com/elgui/mcp-ragdocs/internal/metadata"
	"github.com/elgui/mcp-ragdocs/internal/scanner"
	"github.com/elgui/mcp-ragdocs/internal/status"
	"github.com/elgui/mcp-ragdocs/internal/symbols"
	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// DefaultBatchSize is the number of files processed concurrently before
// the next batch starts.
const DefaultBatchSize = 50

// Embedder generates one embedding vector per chunk text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorSink is the slice of the vector store the pipeline writes to.
type VectorSink interface {
	Upsert(ctx context.Context, points []types.Point) error
	DeleteByFileIDs(ctx context.Context, repository string, fileIDs []string) error
	DeleteByRepository(ctx context.Context, repository string) error
}

// Statistics summarizes one indexing run.
type Statistics struct {
	FilesIndexed   int
	FilesSkipped   int
	FilesUnchanged int
	FilesFailed    int
	FilesDeleted   int
	ChunksCreated  int
	ChunksEmbedded int
	Duration       time.Duration
	ErrorMessages  []string
}

// Indexer coordinates incremental indexing runs.
type Indexer struct {
	store     metadata.Store
	sink      VectorSink
	embed     Embedder
	scanner   *scanner.Scanner
	extractor *symbols.Extractor
	tracker   *status.Tracker
	guard     *RunGuard
	log       *zap.Logger

	batchSize int
	workers   int
}

// New creates an Indexer. A zero batchSize falls back to DefaultBatchSize.
func New(store metadata.Store, sink VectorSink, embed Embedder, tracker *status.Tracker, batchSize int, log *zap.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{
		store:     store,
		sink:      sink,
		embed:     embed,
		scanner:   scanner.New(log),
		extractor: symbols.New(),
		tracker:   tracker,
		guard:     NewRunGuard(),
		log:       log,
		batchSize: batchSize,
		workers:   runtime.NumCPU(),
	}
}

// Status returns the latest run status for a repository.
func (idx *Indexer) Status(repository string) (types.IndexingStatus, bool) {
	return idx.tracker.Get(repository)
}

// StatusAll returns the latest run status of every repository.
func (idx *Indexer) StatusAll() []types.IndexingStatus {
	return idx.tracker.List()
}

// IndexRepository runs one incremental indexing pass over the named
// repository. Only one run per repository is allowed at a time; a
// concurrent request returns ErrIndexingInProgress and the caller can
// poll the existing run instead.
func (idx *Indexer) IndexRepository(ctx context.Context, name string) (*Statistics, error) {
	cfg, err := idx.store.GetRepository(ctx, name)
	if err != nil {
		return nil, err
	}

	if !idx.guard.TryAcquire(name) {
		return nil, fmt.Errorf("%w: repository %q", types.ErrIndexingInProgress, name)
	}
	defer idx.guard.Release(name)

	started := time.Now()
	idx.tracker.Begin(name)

	stats, err := idx.run(ctx, cfg)
	if err != nil {
		idx.tracker.Complete(name, err)
		return nil, err
	}
	stats.Duration = time.Since(started)

	idx.tracker.Complete(name, nil)
	idx.log.Info("indexing run finished",
		zap.String("repository", name),
		zap.Int("indexed", stats.FilesIndexed),
		zap.Int("unchanged", stats.FilesUnchanged),
		zap.Int("failed", stats.FilesFailed),
		zap.Int("deleted", stats.FilesDeleted),
		zap.Int("chunks", stats.ChunksEmbedded),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// HasChanges reports whether a scan of the repository would find any
// work. Watch ticks use this to avoid spinning up runs on a quiet tree.
func (idx *Indexer) HasChanges(ctx context.Context, name string) (bool, error) {
	cfg, err := idx.store.GetRepository(ctx, name)
	if err != nil {
		return false, err
	}
	scan, err := idx.scanner.Scan(ctx, cfg)
	if err != nil {
		return false, err
	}
	stored, err := idx.store.AllFingerprints(ctx, types.RepositoryID(cfg.Name))
	if err != nil {
		return false, err
	}
	return scanner.HasDeltas(scanner.Classify(scan.Files, stored)), nil
}

// RemoveRepository deletes a repository's configuration, fingerprints,
// and every point it owns in the vector store. Points go first so a
// failure leaves the metadata intact for a retry.
func (idx *Indexer) RemoveRepository(ctx context.Context, name string) error {
	cfg, err := idx.store.GetRepository(ctx, name)
	if err != nil {
		return err
	}
	if !idx.guard.TryAcquire(name) {
		return fmt.Errorf("%w: repository %q", types.ErrIndexingInProgress, name)
	}
	defer idx.guard.Release(name)

	if err := idx.sink.DeleteByRepository(ctx, cfg.Name); err != nil {
		return fmt.Errorf("deleting repository points: %w", err)
	}
	if err := idx.store.RemoveAllFingerprints(ctx, types.RepositoryID(cfg.Name)); err != nil {
		return err
	}
	if err := idx.store.DeleteRepository(ctx, cfg.Name); err != nil {
		return err
	}
	idx.tracker.Remove(cfg.Name)
	return nil
}

func (idx *Indexer) run(ctx context.Context, cfg *types.RepositoryConfig) (*Statistics, error) {
	repoID := types.RepositoryID(cfg.Name)

	scan, err := idx.scanner.Scan(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", cfg.Path, err)
	}
	stored, err := idx.store.AllFingerprints(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("loading fingerprints: %w", err)
	}
	changes := scanner.Classify(scan.Files, stored)

	stats := &Statistics{FilesSkipped: scan.Skipped}
	var work []types.FileChange
	var deleted []types.FileChange
	for _, ch := range changes {
		switch ch.Kind {
		case types.ChangeNew, types.ChangeModified:
			work = append(work, ch)
		case types.ChangeDeleted:
			deleted = append(deleted, ch)
		case types.ChangeUnchanged:
			stats.FilesUnchanged++
		}
	}

	idx.tracker.Start(cfg.Name, len(work), scan.Skipped)

	if err := idx.processDeleted(ctx, cfg, repoID, deleted, stats); err != nil {
		return nil, err
	}

	commitSHA := gitinfo.CurrentCommitSHA(cfg.Path)
	if commitSHA != "" {
		idx.log.Debug("annotating run with git metadata",
			zap.String("repository", cfg.Name),
			zap.String("commit", commitSHA),
			zap.String("branch", gitinfo.CurrentBranch(cfg.Path)))
	}

	var mu sync.Mutex
	for start := 0; start < len(work); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(work) {
			end = len(work)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(idx.workers)
		for _, change := range work[start:end] {
			g.Go(func() error {
				res := idx.processFile(gctx, cfg, repoID, change, commitSHA)

				mu.Lock()
				stats.ChunksCreated += res.chunks
				stats.ChunksEmbedded += res.embedded
				if res.err != nil {
					stats.FilesFailed++
					stats.ErrorMessages = append(stats.ErrorMessages,
						fmt.Sprintf("%s: %v", change.RelPath, res.err))
				} else {
					stats.FilesIndexed++
				}
				mu.Unlock()

				idx.tracker.FileDone(cfg.Name, res.chunks, res.embedded, res.failedChunks, res.err != nil)

				// Per-file failures are isolated; only cancellation
				// stops the batch.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

// processDeleted removes points and fingerprints for files that vanished
// from disk. Point deletion precedes fingerprint removal so a crash in
// between re-runs the delete instead of orphaning points.
func (idx *Indexer) processDeleted(ctx context.Context, cfg *types.RepositoryConfig, repoID string, deleted []types.FileChange, stats *Statistics) error {
	if len(deleted) == 0 {
		return nil
	}

	fileIDs := make([]string, len(deleted))
	for i, ch := range deleted {
		fileIDs[i] = ch.FileID
	}
	if err := idx.sink.DeleteByFileIDs(ctx, cfg.Name, fileIDs); err != nil {
		return fmt.Errorf("deleting points for removed files: %w", err)
	}
	for _, ch := range deleted {
		if err := idx.store.RemoveFingerprint(ctx, repoID, ch.FileID); err != nil {
			return fmt.Errorf("removing fingerprint %s: %w", ch.RelPath, err)
		}
		stats.FilesDeleted++
		idx.tracker.FileDeleted(cfg.Name)
	}
	return nil
}

type fileResult struct {
	chunks       int
	embedded     int
	failedChunks int
	err          error
}

// processFile carries one file through chunk -> embed -> upsert ->
// fingerprint. Any failure leaves the stored fingerprint untouched so
// the next run retries the file.
func (idx *Indexer) processFile(ctx context.Context, cfg *types.RepositoryConfig, repoID string, change types.FileChange, commitSHA string) fileResult {
	content, err := os.ReadFile(change.AbsPath)
	if err != nil {
		return fileResult{err: fmt.Errorf("reading file: %w", err)}
	}

	chunks, err := idx.chunkFile(cfg, change, content, commitSHA)
	if err != nil {
		return fileResult{err: err}
	}

	res := fileResult{chunks: len(chunks)}

	// Embed every chunk before touching the store, partitioning failures
	// from successes. A failed chunk never drops its siblings: the
	// successes still get upserted, the failures are counted, and any
	// failure keeps the fingerprint uncommitted so the next run retries
	// the file.
	points := make([]types.Point, 0, len(chunks))
	var embedErr error
	for i, c := range chunks {
		vec, err := idx.embed.GenerateEmbedding(ctx, c.Text)
		if err != nil {
			res.failedChunks++
			if embedErr == nil {
				embedErr = fmt.Errorf("embedding chunk %d: %w", i, err)
			}
			continue
		}
		res.embedded++
		points = append(points, types.Point{
			ID:     types.PointID(change.FileID, i),
			Vector: vec,
			Payload: types.PointPayload{
				Chunk:            c,
				Repository:       cfg.Name,
				IsRepositoryFile: true,
				Timestamp:        time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
	if len(points) == 0 && embedErr != nil {
		// Nothing survived; leave the old points live for a clean retry.
		res.err = embedErr
		return res
	}

	// Modified files drop their stale points first: the old chunk layout
	// may have more chunks than the new one, and deterministic IDs only
	// overwrite matching indexes.
	if change.Kind == types.ChangeModified {
		if err := idx.sink.DeleteByFileIDs(ctx, cfg.Name, []string{change.FileID}); err != nil {
			res.err = fmt.Errorf("deleting stale points: %w", err)
			return res
		}
	}

	if len(points) > 0 {
		if err := idx.sink.Upsert(ctx, points); err != nil {
			res.err = fmt.Errorf("upserting points: %w", err)
			return res
		}
	}

	if embedErr != nil {
		res.err = embedErr
		return res
	}

	if err := idx.store.SetFingerprint(ctx, &types.FileFingerprint{
		RepositoryID: repoID,
		FileID:       change.FileID,
		FilePath:     change.RelPath,
		ContentHash:  change.ContentHash,
		ModTime:      change.ModTime,
	}); err != nil {
		res.err = fmt.Errorf("committing fingerprint: %w", err)
		return res
	}

	return res
}

// chunkFile segments content per the extension's configured strategy and
// fills in the chunk metadata shared by every strategy.
func (idx *Indexer) chunkFile(cfg *types.RepositoryConfig, change types.FileChange, content []byte, commitSHA string) ([]types.Chunk, error) {
	ext := strings.ToLower(filepath.Ext(change.RelPath))
	strategy := types.StrategyLine
	if extCfg, ok := cfg.Extensions[ext]; ok && extCfg.ChunkStrategy != "" {
		strategy = extCfg.ChunkStrategy
	}

	var chunks []types.Chunk
	if strategy == types.StrategySemantic && idx.extractor.Supported(ext) {
		var err error
		chunks, err = idx.extractor.ChunkFile(change.RelPath, content, change.FileID)
		if err != nil {
			return nil, err
		}
	} else {
		if strategy == types.StrategySemantic {
			// No symbol parser for this extension; fall back to lines.
			strategy = types.StrategyLine
		}
		texts := chunk.Split(string(content), strategy, cfg.ChunkSize)
		for i, text := range texts {
			chunks = append(chunks, types.Chunk{
				Text:        text,
				FileID:      change.FileID,
				Domain:      types.DomainDocs,
				Language:    symbols.Language(ext),
				ChunkIndex:  i,
				TotalChunks: len(texts),
			})
		}
	}

	for i := range chunks {
		chunks[i].FilePath = change.RelPath
		chunks[i].Title = change.RelPath
		chunks[i].CommitSHA = commitSHA
	}
	return chunks, nil
}
