package metadata

import (
	"context"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// Store is the durable ledger of repository configurations and file
// fingerprints. Implementations must survive process restart.
type Store interface {
	// Repository configuration operations. Name is the unique key.
	CreateRepository(ctx context.Context, cfg *types.RepositoryConfig) error
	GetRepository(ctx context.Context, name string) (*types.RepositoryConfig, error)
	UpdateRepository(ctx context.Context, cfg *types.RepositoryConfig) error
	DeleteRepository(ctx context.Context, name string) error
	ListRepositories(ctx context.Context) ([]*types.RepositoryConfig, error)

	// Fingerprint operations, keyed by (repositoryID, fileID).
	GetFingerprint(ctx context.Context, repositoryID, fileID string) (*types.FileFingerprint, error)
	SetFingerprint(ctx context.Context, fp *types.FileFingerprint) error
	RemoveFingerprint(ctx context.Context, repositoryID, fileID string) error

	// AllFingerprints returns the repository's full fingerprint map,
	// keyed by file ID, for change classification.
	AllFingerprints(ctx context.Context, repositoryID string) (map[string]types.FileFingerprint, error)

	// RemoveAllFingerprints drops every fingerprint for a repository.
	RemoveAllFingerprints(ctx context.Context, repositoryID string) error

	Close() error
}
