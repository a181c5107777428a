package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Domain classifies a chunk as prose or source code.
type Domain string

const (
	DomainCode Domain = "code"
	DomainDocs Domain = "docs"
)

// Chunk is a contiguous retrievable slice of a file's text together with
// the metadata the vector store needs to filter and attribute it.
// ChunkIndex is contiguous 0..TotalChunks-1 within one file.
type Chunk struct {
	Text        string `json:"text"`
	SourceURL   string `json:"url"`
	Title       string `json:"title"`
	FilePath    string `json:"filePath"`
	Language    string `json:"language"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	FileID      string `json:"fileId"`
	Symbol      string `json:"symbol,omitempty"`
	Domain      Domain `json:"domain"`
	StartLine   int    `json:"startLine"`
	EndLine     int    `json:"endLine"`
	CommitSHA   string `json:"commit_sha,omitempty"`
}

// Validate checks the chunk invariants that matter to the pipeline.
func (c *Chunk) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.FileID == "" {
		return errors.New("chunk file ID is required")
	}
	if c.ChunkIndex < 0 {
		return errors.New("chunk index must be non-negative")
	}
	if c.TotalChunks > 0 && c.ChunkIndex >= c.TotalChunks {
		return errors.New("chunk index must be less than total chunks")
	}
	switch c.Domain {
	case DomainCode, DomainDocs:
	default:
		return errors.New("invalid chunk domain")
	}
	return nil
}

// Point is a vector-store record: an embedding vector plus the chunk
// payload. IDs are deterministic per (file, chunk index) so upserting the
// same chunk replaces rather than duplicates.
type Point struct {
	ID      string
	Vector  []float32
	Payload PointPayload
}

// PointPayload is the per-point payload schema persisted in the vector
// store. It embeds the chunk fields and adds repository attribution.
type PointPayload struct {
	Chunk
	Repository       string `json:"repository"`
	IsRepositoryFile bool   `json:"isRepositoryFile"`
	Timestamp        string `json:"timestamp"`
}

// PointID derives a stable UUID for a chunk's vector-store record from the
// file ID and chunk index. Stability across runs is what makes upsert
// idempotent for unchanged chunk layouts.
func PointID(fileID string, chunkIndex int) string {
	name := fileID + "/" + strconv.Itoa(chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
