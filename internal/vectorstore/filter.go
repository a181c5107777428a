package vectorstore

import (
	"github.com/qdrant/go-client/qdrant"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// repositoryFilter matches every repository-file point of one repository.
// The isRepositoryFile condition keeps points indexed from other sources
// (manually added documentation) out of repository-scoped deletes.
func repositoryFilter(repository string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			keywordCondition(keyRepository, repository),
			boolCondition(keyIsRepositoryFile, true),
		},
	}
}

// fileFilter narrows repositoryFilter to a set of file IDs.
func fileFilter(repository string, fileIDs []string) *qdrant.Filter {
	filter := repositoryFilter(repository)
	filter.Must = append(filter.Must, keywordsCondition(keyFileID, fileIDs))
	return filter
}

func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func keywordsCondition(key string, values []string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keywords{
						Keywords: &qdrant.RepeatedStrings{Strings: values},
					},
				},
			},
		},
	}
}

func boolCondition(key string, value bool) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Boolean{Boolean: value},
				},
			},
		},
	}
}

// payloadMap converts a point payload into Qdrant's value representation.
// Keys follow the payload json tags so filters and readers agree.
func payloadMap(p types.PointPayload) map[string]*qdrant.Value {
	m := map[string]any{
		"text":              p.Text,
		"url":               p.SourceURL,
		"title":             p.Title,
		"filePath":          p.FilePath,
		"language":          p.Language,
		"chunkIndex":        int64(p.ChunkIndex),
		"totalChunks":       int64(p.TotalChunks),
		keyFileID:           p.FileID,
		"domain":            string(p.Domain),
		"startLine":         int64(p.StartLine),
		"endLine":           int64(p.EndLine),
		keyRepository:       p.Repository,
		keyIsRepositoryFile: p.IsRepositoryFile,
		"timestamp":         p.Timestamp,
	}
	if p.Symbol != "" {
		m["symbol"] = p.Symbol
	}
	if p.CommitSHA != "" {
		m["commit_sha"] = p.CommitSHA
	}
	return qdrant.NewValueMap(m)
}
