package mcp

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/elgui/mcp-ragdocs/internal/indexer"
	"github.com/elgui/mcp-ragdocs/internal/metadata"
	"github.com/elgui/mcp-ragdocs/internal/watcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "mcp-ragdocs"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp     *server.MCPServer
	store   metadata.Store
	indexer *indexer.Indexer
	watcher *watcher.Watcher
	log     *zap.Logger
}

// NewServer creates the MCP server and registers every tool.
func NewServer(store metadata.Store, idx *indexer.Indexer, watch *watcher.Watcher, log *zap.Logger) *Server {
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		store:   store,
		indexer: idx,
		watcher: watch,
		log:     log,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(addRepositoryTool(), s.handleAddRepository)
	s.mcp.AddTool(updateRepositoryTool(), s.handleUpdateRepository)
	s.mcp.AddTool(removeRepositoryTool(), s.handleRemoveRepository)
	s.mcp.AddTool(listRepositoriesTool(), s.handleListRepositories)
	s.mcp.AddTool(triggerReindexTool(), s.handleTriggerReindex)
	s.mcp.AddTool(getIndexingStatusTool(), s.handleGetIndexingStatus)
	s.mcp.AddTool(startWatchTool(), s.handleStartWatch)
	s.mcp.AddTool(stopWatchTool(), s.handleStopWatch)
}

// RestoreWatches starts watch loops for every repository that had
// watching enabled when the process last shut down.
func (s *Server) RestoreWatches(ctx context.Context) error {
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return err
	}
	for _, cfg := range repos {
		if !cfg.WatchEnabled {
			continue
		}
		if err := s.watcher.Start(cfg.Name, cfg.WatchInterval); err != nil {
			s.log.Warn("restoring watch failed",
				zap.String("repository", cfg.Name),
				zap.Error(err))
		}
	}
	return nil
}

// Serve starts the MCP server on stdio and blocks until the context is
// cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	defer s.watcher.Close()
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, in, out)
}
