package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL mode for better concurrency between readers and the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (creating if needed) the metadata database at
// dbPath and applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRepository inserts a new repository configuration.
func (s *SQLiteStore) CreateRepository(ctx context.Context, cfg *types.RepositoryConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}

	include, exclude, extensions, err := marshalConfig(cfg)
	if err != nil {
		return err
	}

	now := time.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO repositories (id, name, path, include_patterns, exclude_patterns,
			watch_enabled, watch_interval_ns, chunk_size, extensions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		types.RepositoryID(cfg.Name), cfg.Name, cfg.Path, include, exclude,
		cfg.WatchEnabled, int64(cfg.WatchInterval), cfg.ChunkSize, extensions,
		cfg.CreatedAt.UnixNano(), cfg.UpdatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: repository %q", types.ErrAlreadyExists, cfg.Name)
		}
		return fmt.Errorf("failed to create repository: %w", err)
	}
	return nil
}

// GetRepository fetches a repository configuration by name.
func (s *SQLiteStore) GetRepository(ctx context.Context, name string) (*types.RepositoryConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, path, include_patterns, exclude_patterns, watch_enabled,
			watch_interval_ns, chunk_size, extensions, created_at, updated_at
		FROM repositories WHERE name = ?`, name)
	return scanRepository(row)
}

// UpdateRepository replaces the stored configuration for cfg.Name.
func (s *SQLiteStore) UpdateRepository(ctx context.Context, cfg *types.RepositoryConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}

	include, exclude, extensions, err := marshalConfig(cfg)
	if err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE repositories
		SET path = ?, include_patterns = ?, exclude_patterns = ?, watch_enabled = ?,
			watch_interval_ns = ?, chunk_size = ?, extensions = ?, updated_at = ?
		WHERE name = ?`,
		cfg.Path, include, exclude, cfg.WatchEnabled, int64(cfg.WatchInterval),
		cfg.ChunkSize, extensions, cfg.UpdatedAt.UnixNano(), cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to update repository: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: repository %q", types.ErrNotFound, cfg.Name)
	}
	return nil
}

// DeleteRepository removes a repository configuration and, through the
// schema's cascade, all of its fingerprints.
func (s *SQLiteStore) DeleteRepository(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM repositories WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete repository: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: repository %q", types.ErrNotFound, name)
	}
	return nil
}

// ListRepositories returns all repository configurations ordered by name.
func (s *SQLiteStore) ListRepositories(ctx context.Context) ([]*types.RepositoryConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, path, include_patterns, exclude_patterns, watch_enabled,
			watch_interval_ns, chunk_size, extensions, created_at, updated_at
		FROM repositories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var configs []*types.RepositoryConfig
	for rows.Next() {
		cfg, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// GetFingerprint fetches one fingerprint, or ErrNotFound.
func (s *SQLiteStore) GetFingerprint(ctx context.Context, repositoryID, fileID string) (*types.FileFingerprint, error) {
	var fp types.FileFingerprint
	var modTimeNS int64
	err := s.db.QueryRowContext(ctx, `
		SELECT repository_id, file_id, file_path, content_hash, mod_time_ns
		FROM fingerprints WHERE repository_id = ? AND file_id = ?`,
		repositoryID, fileID).
		Scan(&fp.RepositoryID, &fp.FileID, &fp.FilePath, &fp.ContentHash, &modTimeNS)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: fingerprint %s/%s", types.ErrNotFound, repositoryID, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprint: %w", err)
	}
	fp.ModTime = time.Unix(0, modTimeNS)
	return &fp, nil
}

// SetFingerprint inserts or replaces one fingerprint.
func (s *SQLiteStore) SetFingerprint(ctx context.Context, fp *types.FileFingerprint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fingerprints (repository_id, file_id, file_path, content_hash, mod_time_ns, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(repository_id, file_id) DO UPDATE SET
			file_path = excluded.file_path,
			content_hash = excluded.content_hash,
			mod_time_ns = excluded.mod_time_ns,
			updated_at = excluded.updated_at`,
		fp.RepositoryID, fp.FileID, fp.FilePath, fp.ContentHash,
		fp.ModTime.UnixNano(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set fingerprint: %w", err)
	}
	return nil
}

// RemoveFingerprint deletes one fingerprint. Deleting a missing
// fingerprint is not an error: removal is idempotent.
func (s *SQLiteStore) RemoveFingerprint(ctx context.Context, repositoryID, fileID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM fingerprints WHERE repository_id = ? AND file_id = ?",
		repositoryID, fileID)
	if err != nil {
		return fmt.Errorf("failed to remove fingerprint: %w", err)
	}
	return nil
}

// AllFingerprints returns the repository's full fingerprint map keyed by
// file ID.
func (s *SQLiteStore) AllFingerprints(ctx context.Context, repositoryID string) (map[string]types.FileFingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT repository_id, file_id, file_path, content_hash, mod_time_ns
		FROM fingerprints WHERE repository_id = ?`, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	fps := make(map[string]types.FileFingerprint)
	for rows.Next() {
		var fp types.FileFingerprint
		var modTimeNS int64
		if err := rows.Scan(&fp.RepositoryID, &fp.FileID, &fp.FilePath, &fp.ContentHash, &modTimeNS); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		fp.ModTime = time.Unix(0, modTimeNS)
		fps[fp.FileID] = fp
	}
	return fps, rows.Err()
}

// RemoveAllFingerprints drops every fingerprint for a repository.
func (s *SQLiteStore) RemoveAllFingerprints(ctx context.Context, repositoryID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM fingerprints WHERE repository_id = ?", repositoryID)
	if err != nil {
		return fmt.Errorf("failed to remove fingerprints: %w", err)
	}
	return nil
}

// rowScanner lets scanRepository work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepository(row rowScanner) (*types.RepositoryConfig, error) {
	var cfg types.RepositoryConfig
	var include, exclude, extensions string
	var watchIntervalNS, createdNS, updatedNS int64

	err := row.Scan(&cfg.Name, &cfg.Path, &include, &exclude, &cfg.WatchEnabled,
		&watchIntervalNS, &cfg.ChunkSize, &extensions, &createdNS, &updatedNS)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: repository", types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan repository: %w", err)
	}

	if err := json.Unmarshal([]byte(include), &cfg.Include); err != nil {
		return nil, fmt.Errorf("failed to decode include patterns: %w", err)
	}
	if err := json.Unmarshal([]byte(exclude), &cfg.Exclude); err != nil {
		return nil, fmt.Errorf("failed to decode exclude patterns: %w", err)
	}
	if err := json.Unmarshal([]byte(extensions), &cfg.Extensions); err != nil {
		return nil, fmt.Errorf("failed to decode extension config: %w", err)
	}

	cfg.WatchInterval = time.Duration(watchIntervalNS)
	cfg.CreatedAt = time.Unix(0, createdNS)
	cfg.UpdatedAt = time.Unix(0, updatedNS)
	return &cfg, nil
}

func marshalConfig(cfg *types.RepositoryConfig) (include, exclude, extensions string, err error) {
	inc, err := json.Marshal(emptyAsSlice(cfg.Include))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode include patterns: %w", err)
	}
	exc, err := json.Marshal(emptyAsSlice(cfg.Exclude))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode exclude patterns: %w", err)
	}
	exts, err := json.Marshal(cfg.Extensions)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode extension config: %w", err)
	}
	return string(inc), string(exc), string(exts), nil
}

func emptyAsSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// isUniqueViolation matches the constraint error text of both supported
// drivers; neither exports a typed sentinel for this through database/sql.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint violation")
}
