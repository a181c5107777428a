package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// Payload keys the delete filters match on. They mirror the json tags of
// types.PointPayload.
const (
	keyRepository       = "repository"
	keyIsRepositoryFile = "isRepositoryFile"
	keyFileID           = "fileId"
)

// Config holds Qdrant connection and collection settings.
type Config struct {
	Host           string
	Port           int
	UseTLS         bool
	APIKey         string
	Collection     string
	VectorSize     int
	MaxRetries     int
	RetryBackoff   time.Duration
	MaxMessageSize int
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "documentation"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 32 * 1024 * 1024
	}
}

// Validate rejects configurations the store cannot run with.
func (c Config) Validate() error {
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name is required", types.ErrConfiguration)
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", types.ErrConfiguration)
	}
	return nil
}

// IsTransientError reports whether a gRPC error is worth retrying.
// Unavailability and resource pressure are transient; bad arguments,
// missing collections, and auth failures are not.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// Store writes and deletes chunk points in a single Qdrant collection.
type Store struct {
	client *qdrant.Client
	config Config
	log    *zap.Logger
}

// New connects to Qdrant over gRPC and verifies the server is reachable.
func New(cfg Config, log *zap.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	store := &Store{client: client, config: cfg, log: log}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check: %w", err)
	}

	return store, nil
}

// Close releases the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Collection returns the collection name this store writes to.
func (s *Store) Collection() string {
	return s.config.Collection
}

// EnsureCollection creates the collection if it does not exist yet.
// Existing collections are left untouched.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if exists {
		return nil
	}

	err = s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.config.VectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.config.Collection, err)
	}

	s.log.Info("created collection",
		zap.String("collection", s.config.Collection),
		zap.Int("vector_size", s.config.VectorSize))
	return nil
}

// Upsert writes points into the collection. Point IDs are deterministic,
// so re-upserting an unchanged chunk replaces the existing record.
func (s *Store) Upsert(ctx context.Context, points []types.Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qpoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payloadMap(p.Payload),
		}
	}

	err := s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.Collection,
			Points:         qpoints,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// DeleteByFileIDs removes every point belonging to the given files of one
// repository. Used before re-inserting a modified file and when a file
// disappears from disk.
func (s *Store) DeleteByFileIDs(ctx context.Context, repository string, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	return s.deleteByFilter(ctx, fileFilter(repository, fileIDs))
}

// DeleteByRepository removes every point of a repository. Used when the
// repository itself is removed from the index.
func (s *Store) DeleteByRepository(ctx context.Context, repository string) error {
	return s.deleteByFilter(ctx, repositoryFilter(repository))
}

func (s *Store) deleteByFilter(ctx context.Context, filter *qdrant.Filter) error {
	err := s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.Collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
					Filter: filter,
				},
			},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	return nil
}

// retryOperation retries transient failures with exponential backoff.
func (s *Store) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}

		s.log.Warn("retrying after transient failure",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}
