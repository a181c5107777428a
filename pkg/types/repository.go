package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Default configuration values applied when a RepositoryConfig leaves a
// field unset.
const (
	DefaultChunkSize     = 1000
	DefaultWatchInterval = 5 * time.Minute
)

// ChunkStrategy selects how a file's content is segmented.
type ChunkStrategy string

const (
	// StrategyLine accumulates whole lines up to the size limit.
	StrategyLine ChunkStrategy = "line"
	// StrategyParagraph accumulates blank-line-delimited paragraphs.
	StrategyParagraph ChunkStrategy = "paragraph"
	// StrategySemantic extracts documented symbols from code files.
	StrategySemantic ChunkStrategy = "semantic"
)

// ExtensionConfig controls per-extension indexing behavior.
type ExtensionConfig struct {
	Include       bool          `json:"include"`
	ChunkStrategy ChunkStrategy `json:"chunk_strategy"`
}

// RepositoryConfig describes one indexed file tree. Name is the unique key.
type RepositoryConfig struct {
	Name          string                     `json:"name"`
	Path          string                     `json:"path"`
	Include       []string                   `json:"include"`
	Exclude       []string                   `json:"exclude"`
	WatchEnabled  bool                       `json:"watch_enabled"`
	WatchInterval time.Duration              `json:"watch_interval"`
	ChunkSize     int                        `json:"chunk_size"`
	Extensions    map[string]ExtensionConfig `json:"extensions"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// DefaultExtensions returns the built-in per-extension configuration:
// code files go through symbol extraction, docs through paragraph
// chunking, everything else through line chunking.
func DefaultExtensions() map[string]ExtensionConfig {
	return map[string]ExtensionConfig{
		".go":   {Include: true, ChunkStrategy: StrategySemantic},
		".py":   {Include: true, ChunkStrategy: StrategySemantic},
		".md":   {Include: true, ChunkStrategy: StrategyParagraph},
		".rst":  {Include: true, ChunkStrategy: StrategyParagraph},
		".txt":  {Include: true, ChunkStrategy: StrategyParagraph},
		".json": {Include: true, ChunkStrategy: StrategyLine},
		".yaml": {Include: true, ChunkStrategy: StrategyLine},
		".yml":  {Include: true, ChunkStrategy: StrategyLine},
		".toml": {Include: true, ChunkStrategy: StrategyLine},
	}
}

// ApplyDefaults fills unset fields with defaults. Extension settings are
// merged over the built-in table so a config only overrides what it names.
func (c *RepositoryConfig) ApplyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = DefaultWatchInterval
	}
	merged := DefaultExtensions()
	for ext, cfg := range c.Extensions {
		merged[ext] = cfg
	}
	c.Extensions = merged
}

// Validate checks required fields.
func (c *RepositoryConfig) Validate() error {
	if c.Name == "" {
		return errors.New("repository name is required")
	}
	if c.Path == "" {
		return errors.New("repository path is required")
	}
	return nil
}

// RepositoryID derives the stable identifier for a repository from its name.
func RepositoryID(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])[:16]
}

// FileID derives the deterministic identifier for a file within a
// repository. It depends only on the repository ID and the relative path,
// so it is stable across runs and content changes.
func FileID(repositoryID, relPath string) string {
	sum := sha256.Sum256([]byte(repositoryID + ":" + relPath))
	return hex.EncodeToString(sum[:])[:16]
}

// FileFingerprint records what was last durably indexed for one file.
// A fingerprint is written only after the file's chunks have been embedded
// and upserted, never before.
type FileFingerprint struct {
	RepositoryID string    `json:"repository_id"`
	FileID       string    `json:"file_id"`
	FilePath     string    `json:"file_path"`
	ContentHash  string    `json:"content_hash"`
	ModTime      time.Time `json:"mod_time"`
}

// ChangeKind classifies a file relative to its stored fingerprint.
type ChangeKind string

const (
	ChangeNew       ChangeKind = "new"
	ChangeModified  ChangeKind = "modified"
	ChangeUnchanged ChangeKind = "unchanged"
	ChangeDeleted   ChangeKind = "deleted"
)

// FileChange pairs a file with its classification for one scan pass.
type FileChange struct {
	Kind        ChangeKind
	FileID      string
	RelPath     string
	AbsPath     string
	ContentHash string
	ModTime     time.Time
}
