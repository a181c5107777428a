// Command ragdocs-check verifies that the configured embedding provider
// and Qdrant are reachable before the MCP server is wired into a client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/elgui/mcp-ragdocs/internal/config"
	"github.com/elgui/mcp-ragdocs/internal/embedder"
	"github.com/elgui/mcp-ragdocs/internal/vectorstore"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: ~/.config/ragdocs/config.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ragdocs-check: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("all checks passed")
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := zap.NewNop()

	provider, err := embedder.Build(embedder.Config{
		Provider: cfg.Embedding.Provider,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
		Model:    cfg.Embedding.Model,
	}, nil)
	if err != nil {
		return err
	}
	defer provider.Close()

	fmt.Printf("embedding provider: %s (model %s, dimension %d)\n",
		provider.Provider(), provider.Model(), provider.Dimension())

	if err := provider.CheckAvailability(ctx); err != nil {
		return fmt.Errorf("provider availability: %w", err)
	}
	fmt.Println("provider reachable")

	vec, err := provider.GenerateEmbedding(ctx, "ragdocs connectivity check")
	if err != nil {
		return fmt.Errorf("test embedding: %w", err)
	}
	fmt.Printf("test embedding generated (%d dimensions)\n", len(vec))

	sink, err := vectorstore.New(vectorstore.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		UseTLS:     cfg.Qdrant.UseTLS,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		VectorSize: provider.Dimension(),
	}, log)
	if err != nil {
		return fmt.Errorf("qdrant: %w", err)
	}
	defer sink.Close()
	fmt.Printf("qdrant reachable (collection %q)\n", sink.Collection())

	return nil
}
