package vectorstore

import (
	"errors"
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{VectorSize: 768}
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, "documentation", cfg.Collection)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBackoff)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Collection: "docs"}
	err := cfg.Validate()
	assert.ErrorIs(t, err, types.ErrConfiguration)

	cfg.VectorSize = 768
	assert.NoError(t, cfg.Validate())
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"unavailable", status.Error(grpccodes.Unavailable, "down"), true},
		{"deadline exceeded", status.Error(grpccodes.DeadlineExceeded, "slow"), true},
		{"resource exhausted", status.Error(grpccodes.ResourceExhausted, "full"), true},
		{"aborted", status.Error(grpccodes.Aborted, "conflict"), true},
		{"invalid argument", status.Error(grpccodes.InvalidArgument, "bad"), false},
		{"not found", status.Error(grpccodes.NotFound, "missing"), false},
		{"unauthenticated", status.Error(grpccodes.Unauthenticated, "key"), false},
		{"plain error", errors.New("not grpc"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransientError(tt.err))
		})
	}
}

func TestFileFilter(t *testing.T) {
	filter := fileFilter("my-docs", []string{"f1", "f2"})
	require.Len(t, filter.Must, 3)

	repo := filter.Must[0].GetField()
	require.NotNil(t, repo)
	assert.Equal(t, keyRepository, repo.Key)
	assert.Equal(t, "my-docs", repo.Match.GetKeyword())

	repoFile := filter.Must[1].GetField()
	require.NotNil(t, repoFile)
	assert.Equal(t, keyIsRepositoryFile, repoFile.Key)
	assert.True(t, repoFile.Match.GetBoolean())

	files := filter.Must[2].GetField()
	require.NotNil(t, files)
	assert.Equal(t, keyFileID, files.Key)
	assert.Equal(t, []string{"f1", "f2"}, files.Match.GetKeywords().Strings)
}

func TestRepositoryFilter(t *testing.T) {
	filter := repositoryFilter("my-docs")
	require.Len(t, filter.Must, 2)
	assert.Equal(t, "my-docs", filter.Must[0].GetField().Match.GetKeyword())
}

func TestPayloadMap(t *testing.T) {
	payload := types.PointPayload{
		Chunk: types.Chunk{
			Text:        "func main() {}",
			FilePath:    "cmd/main.go",
			Language:    "go",
			ChunkIndex:  2,
			TotalChunks: 5,
			FileID:      "abc123",
			Symbol:      "main",
			Domain:      types.DomainCode,
			StartLine:   10,
			EndLine:     12,
			CommitSHA:   "deadbeef",
		},
		Repository:       "my-docs",
		IsRepositoryFile: true,
		Timestamp:        "2026-08-28T00:00:00Z",
	}

	m := payloadMap(payload)

	assert.Equal(t, "func main() {}", m["text"].GetStringValue())
	assert.Equal(t, int64(2), m["chunkIndex"].GetIntegerValue())
	assert.Equal(t, int64(5), m["totalChunks"].GetIntegerValue())
	assert.Equal(t, "abc123", m[keyFileID].GetStringValue())
	assert.Equal(t, "code", m["domain"].GetStringValue())
	assert.Equal(t, "main", m["symbol"].GetStringValue())
	assert.Equal(t, "deadbeef", m["commit_sha"].GetStringValue())
	assert.True(t, m[keyIsRepositoryFile].GetBoolValue())
	assert.Equal(t, int64(10), m["startLine"].GetIntegerValue())
}

func TestPayloadMapOmitsEmptyOptionals(t *testing.T) {
	payload := types.PointPayload{
		Chunk: types.Chunk{
			Text:   "plain prose",
			FileID: "f1",
			Domain: types.DomainDocs,
		},
		Repository: "my-docs",
	}

	m := payloadMap(payload)

	_, hasSymbol := m["symbol"]
	_, hasCommit := m["commit_sha"]
	assert.False(t, hasSymbol)
	assert.False(t, hasCommit)
}

func TestQdrantPointConstruction(t *testing.T) {
	id := types.PointID("file-1", 0)
	p := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(id),
		Vectors: qdrant.NewVectors(0.1, 0.2),
	}
	assert.Equal(t, id, p.Id.GetUuid())
}
