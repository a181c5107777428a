package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/elgui/mcp-ragdocs/internal/config"
	"github.com/elgui/mcp-ragdocs/internal/embedder"
	"github.com/elgui/mcp-ragdocs/internal/indexer"
	"github.com/elgui/mcp-ragdocs/internal/logging"
	"github.com/elgui/mcp-ragdocs/internal/mcp"
	"github.com/elgui/mcp-ragdocs/internal/metadata"
	"github.com/elgui/mcp-ragdocs/internal/status"
	"github.com/elgui/mcp-ragdocs/internal/vectorstore"
	"github.com/elgui/mcp-ragdocs/internal/watcher"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: ~/.config/ragdocs/config.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mcp-ragdocs\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", metadata.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", metadata.DriverName)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ragdocs: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting mcp-ragdocs",
		zap.String("version", version),
		zap.String("sqlite_driver", metadata.DriverName),
		zap.String("build_mode", metadata.BuildMode))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	store, err := metadata.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	var fallback *embedder.Config
	if cfg.Embedding.Fallback.Provider != "" {
		fallback = &embedder.Config{
			Provider: cfg.Embedding.Fallback.Provider,
			BaseURL:  cfg.Embedding.Fallback.BaseURL,
			APIKey:   cfg.Embedding.Fallback.APIKey,
			Model:    cfg.Embedding.Fallback.Model,
		}
	}
	provider, err := embedder.NewFromConfig(ctx, embedder.Config{
		Provider: cfg.Embedding.Provider,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
		Model:    cfg.Embedding.Model,
	}, fallback, cfg.Embedding.CacheSize, log)
	if err != nil {
		return err
	}
	defer provider.Close()

	sink, err := vectorstore.New(vectorstore.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		UseTLS:     cfg.Qdrant.UseTLS,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		VectorSize: provider.Dimension(),
	}, log)
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.EnsureCollection(ctx); err != nil {
		return err
	}

	tracker := status.NewTracker()
	idx := indexer.New(store, sink, provider, tracker, cfg.Indexing.BatchSize, log)

	watch := watcher.New(
		idx.HasChanges,
		func(ctx context.Context, repository string) error {
			_, err := idx.IndexRepository(ctx, repository)
			return err
		},
		log,
	)
	defer watch.Close()

	server := mcp.NewServer(store, idx, watch, log)
	if err := server.RestoreWatches(ctx); err != nil {
		return fmt.Errorf("restoring watches: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
