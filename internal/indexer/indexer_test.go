package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elgui/mcp-ragdocs/internal/status"
	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// memStore is an in-memory metadata.Store for pipeline tests.
type memStore struct {
	mu           sync.Mutex
	repos        map[string]*types.RepositoryConfig
	fingerprints map[string]map[string]types.FileFingerprint
}

func newMemStore() *memStore {
	return &memStore{
		repos:        make(map[string]*types.RepositoryConfig),
		fingerprints: make(map[string]map[string]types.FileFingerprint),
	}
}

func (m *memStore) CreateRepository(_ context.Context, cfg *types.RepositoryConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[cfg.Name]; ok {
		return types.ErrAlreadyExists
	}
	m.repos[cfg.Name] = cfg
	return nil
}

func (m *memStore) GetRepository(_ context.Context, name string) (*types.RepositoryConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.repos[name]
	if !ok {
		return nil, types.ErrNotFound
	}
	return cfg, nil
}

func (m *memStore) UpdateRepository(_ context.Context, cfg *types.RepositoryConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos[cfg.Name] = cfg
	return nil
}

func (m *memStore) DeleteRepository(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.repos, name)
	return nil
}

func (m *memStore) ListRepositories(_ context.Context) ([]*types.RepositoryConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.RepositoryConfig
	for _, cfg := range m.repos {
		out = append(out, cfg)
	}
	return out, nil
}

func (m *memStore) GetFingerprint(_ context.Context, repoID, fileID string) (*types.FileFingerprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp, ok := m.fingerprints[repoID][fileID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &fp, nil
}

func (m *memStore) SetFingerprint(_ context.Context, fp *types.FileFingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fingerprints[fp.RepositoryID] == nil {
		m.fingerprints[fp.RepositoryID] = make(map[string]types.FileFingerprint)
	}
	m.fingerprints[fp.RepositoryID][fp.FileID] = *fp
	return nil
}

func (m *memStore) RemoveFingerprint(_ context.Context, repoID, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fingerprints[repoID], fileID)
	return nil
}

func (m *memStore) AllFingerprints(_ context.Context, repoID string) (map[string]types.FileFingerprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]types.FileFingerprint, len(m.fingerprints[repoID]))
	for k, v := range m.fingerprints[repoID] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) RemoveAllFingerprints(_ context.Context, repoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fingerprints, repoID)
	return nil
}

func (m *memStore) Close() error { return nil }

// sinkOp records one vector-store call for ordering assertions.
type sinkOp struct {
	op      string // upsert, deleteFiles, deleteRepo
	fileIDs []string
	points  int
}

type fakeSink struct {
	mu        sync.Mutex
	ops       []sinkOp
	upsertErr error
}

func (f *fakeSink) Upsert(_ context.Context, points []types.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.Payload.FileID
	}
	f.ops = append(f.ops, sinkOp{op: "upsert", fileIDs: ids, points: len(points)})
	return nil
}

func (f *fakeSink) DeleteByFileIDs(_ context.Context, _ string, fileIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, sinkOp{op: "deleteFiles", fileIDs: fileIDs})
	return nil
}

func (f *fakeSink) DeleteByRepository(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, sinkOp{op: "deleteRepo"})
	return nil
}

func (f *fakeSink) opNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	for i, op := range f.ops {
		out[i] = op.op
	}
	return out
}

type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failWith string // fail any text containing this substring
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failWith != "" && strings.Contains(text, f.failWith) {
		return nil, errors.New("provider unavailable")
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestRepo(t *testing.T, store *memStore, files map[string]string) *types.RepositoryConfig {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	cfg := &types.RepositoryConfig{Name: "docs", Path: dir}
	cfg.ApplyDefaults()
	require.NoError(t, store.CreateRepository(context.Background(), cfg))
	return cfg
}

func newTestIndexer(store *memStore, sink *fakeSink, embed *fakeEmbedder) *Indexer {
	return New(store, sink, embed, status.NewTracker(), 0, zap.NewNop())
}

func TestIndexRepositoryFirstRun(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{}
	newTestRepo(t, store, map[string]string{
		"README.md": "# Title\n\nFirst paragraph.\n\nSecond paragraph.\n",
		"notes.txt": "just notes\n",
	})

	idx := newTestIndexer(store, sink, embed)
	stats, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Zero(t, stats.FilesFailed)
	assert.Greater(t, stats.ChunksEmbedded, 0)

	repoID := types.RepositoryID("docs")
	fps, err := store.AllFingerprints(context.Background(), repoID)
	require.NoError(t, err)
	assert.Len(t, fps, 2)

	st, ok := idx.Status("docs")
	require.True(t, ok)
	assert.Equal(t, types.StateCompleted, st.State)
	assert.Equal(t, 100.0, st.PercentComplete)
}

func TestIndexRepositoryUnchangedIsNoop(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{}
	newTestRepo(t, store, map[string]string{"a.md": "alpha\n"})

	idx := newTestIndexer(store, sink, embed)
	_, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	embedCallsAfterFirst := embed.callCount()
	opsAfterFirst := len(sink.opNames())

	stats, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesUnchanged)
	assert.Zero(t, stats.FilesIndexed)
	assert.Equal(t, embedCallsAfterFirst, embed.callCount())
	assert.Equal(t, opsAfterFirst, len(sink.opNames()))
}

func TestIndexRepositoryAddedFileOnly(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{}
	cfg := newTestRepo(t, store, map[string]string{"a.md": "alpha\n"})

	idx := newTestIndexer(store, sink, embed)
	_, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)
	callsAfterFirst := embed.callCount()

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Path, "b.md"), []byte("beta\n"), 0o644))

	stats, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesUnchanged)
	// only b.md cost embedding calls
	assert.Equal(t, callsAfterFirst+1, embed.callCount())
}

func TestIndexRepositoryModifiedDeletesBeforeInsert(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{}
	cfg := newTestRepo(t, store, map[string]string{"a.md": "alpha\n"})

	idx := newTestIndexer(store, sink, embed)
	_, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	// force an mtime difference even on coarse filesystems
	past := time.Now().Add(-time.Hour)
	path := filepath.Join(cfg.Path, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("alpha rewritten\n"), 0o644))
	require.NoError(t, os.Chtimes(path, past, past))

	sink.mu.Lock()
	sink.ops = nil
	sink.mu.Unlock()

	stats, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)

	require.Equal(t, []string{"deleteFiles", "upsert"}, sink.opNames())
}

func TestIndexRepositoryDeletedFile(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{}
	cfg := newTestRepo(t, store, map[string]string{"a.md": "alpha\n", "b.md": "beta\n"})

	idx := newTestIndexer(store, sink, embed)
	_, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(cfg.Path, "b.md")))

	stats, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesDeleted)
	assert.Equal(t, 1, stats.FilesUnchanged)

	repoID := types.RepositoryID("docs")
	fileID := types.FileID(repoID, "b.md")
	_, err = store.GetFingerprint(context.Background(), repoID, fileID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestIndexRepositoryFailedUpsertKeepsNoFingerprint(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{upsertErr: errors.New("qdrant down")}
	embed := &fakeEmbedder{}
	newTestRepo(t, store, map[string]string{"a.md": "alpha\n"})

	idx := newTestIndexer(store, sink, embed)
	stats, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesFailed)
	assert.Zero(t, stats.FilesIndexed)

	fps, err := store.AllFingerprints(context.Background(), types.RepositoryID("docs"))
	require.NoError(t, err)
	assert.Empty(t, fps)

	st, ok := idx.Status("docs")
	require.True(t, ok)
	assert.Equal(t, types.StateFailed, st.State)
}

func TestIndexRepositoryEmbeddingFailureIsolated(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{failWith: "poison"}
	newTestRepo(t, store, map[string]string{
		"good.md": "wholesome content\n",
		"bad.md":  "poison content\n",
	})

	idx := newTestIndexer(store, sink, embed)
	stats, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesFailed)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "bad.md")

	// the failed file retries on the next run
	stats, err = idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 1, stats.FilesUnchanged)
}

func TestIndexRepositoryFailedChunkKeepsSiblings(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{failWith: "poison"}
	cfg := newTestRepo(t, store, map[string]string{
		"mixed.md": "healthy paragraph.\n\npoison paragraph.\n",
	})
	// force each paragraph into its own chunk so the sibling scenario
	// the assertions describe actually occurs (review finding F7)
	cfg.ChunkSize = 20

	idx := newTestIndexer(store, sink, embed)
	stats, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	// the poisoned chunk fails the file, but the healthy sibling is
	// still embedded and upserted
	assert.Equal(t, 2, stats.ChunksCreated)
	assert.Equal(t, 1, stats.ChunksEmbedded)
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Zero(t, stats.FilesIndexed)

	require.Equal(t, []string{"upsert"}, sink.opNames())
	sink.mu.Lock()
	assert.Equal(t, 1, sink.ops[0].points)
	sink.mu.Unlock()

	// no fingerprint committed, so the whole file retries next run
	fps, err := store.AllFingerprints(context.Background(), types.RepositoryID("docs"))
	require.NoError(t, err)
	assert.Empty(t, fps)
}

func TestIndexRepositoryAllChunksFailedNoWrites(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{failWith: "poison"}
	newTestRepo(t, store, map[string]string{
		"bad.md": "poison one.\n\npoison two.\n",
	})

	idx := newTestIndexer(store, sink, embed)
	stats, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesFailed)
	assert.Zero(t, stats.ChunksEmbedded)
	assert.Empty(t, sink.opNames())
}

func TestIndexRepositorySingleFlight(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{}
	newTestRepo(t, store, map[string]string{"a.md": "alpha\n"})

	idx := newTestIndexer(store, sink, embed)
	require.True(t, idx.guard.TryAcquire("docs"))

	_, err := idx.IndexRepository(context.Background(), "docs")
	assert.ErrorIs(t, err, types.ErrIndexingInProgress)

	idx.guard.Release("docs")
	_, err = idx.IndexRepository(context.Background(), "docs")
	assert.NoError(t, err)
}

func TestIndexRepositoryUnknownRepo(t *testing.T) {
	idx := newTestIndexer(newMemStore(), &fakeSink{}, &fakeEmbedder{})
	_, err := idx.IndexRepository(context.Background(), "ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestHasChanges(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{}
	cfg := newTestRepo(t, store, map[string]string{"a.md": "alpha\n"})

	idx := newTestIndexer(store, sink, embed)

	changed, err := idx.HasChanges(context.Background(), "docs")
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	changed, err = idx.HasChanges(context.Background(), "docs")
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Path, "new.md"), []byte("fresh\n"), 0o644))
	changed, err = idx.HasChanges(context.Background(), "docs")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestRemoveRepository(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{}
	newTestRepo(t, store, map[string]string{"a.md": "alpha\n"})

	idx := newTestIndexer(store, sink, embed)
	_, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	require.NoError(t, idx.RemoveRepository(context.Background(), "docs"))

	ops := sink.opNames()
	assert.Equal(t, "deleteRepo", ops[len(ops)-1])

	_, err = store.GetRepository(context.Background(), "docs")
	assert.ErrorIs(t, err, types.ErrNotFound)

	fps, err := store.AllFingerprints(context.Background(), types.RepositoryID("docs"))
	require.NoError(t, err)
	assert.Empty(t, fps)

	_, ok := idx.Status("docs")
	assert.False(t, ok)
}

func TestSemanticStrategyUsesSymbols(t *testing.T) {
	store := newMemStore()
	sink := &fakeSink{}
	embed := &fakeEmbedder{}
	src := `package sample

// Add returns the sum of two ints.
func Add(a, b int) int { return a + b }
`
	newTestRepo(t, store, map[string]string{"sample.go": src})

	idx := newTestIndexer(store, sink, embed)
	stats, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesIndexed)
	// one documented symbol yields a docs chunk and a code chunk
	assert.Equal(t, 2, stats.ChunksEmbedded)
}

func TestRunGuard(t *testing.T) {
	g := NewRunGuard()
	assert.True(t, g.TryAcquire("a"))
	assert.False(t, g.TryAcquire("a"))
	assert.True(t, g.TryAcquire("b"))
	g.Release("a")
	assert.True(t, g.TryAcquire("a"))
}

func TestStatusAll(t *testing.T) {
	store := newMemStore()
	idx := newTestIndexer(store, &fakeSink{}, &fakeEmbedder{})
	newTestRepo(t, store, map[string]string{"a.md": "alpha\n"})

	_, err := idx.IndexRepository(context.Background(), "docs")
	require.NoError(t, err)

	all := idx.StatusAll()
	require.Len(t, all, 1)
	assert.Equal(t, "docs", all[0].Repository)
	assert.Equal(t, types.StateCompleted, all[0].State)
}
