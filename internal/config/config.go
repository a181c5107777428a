// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// EnvPrefix namespaces the environment variables the loader reads.
const EnvPrefix = "RAGDOCS_"

// Config is the root server configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Qdrant    QdrantConfig    `koanf:"qdrant"`
	Indexing  IndexingConfig  `koanf:"indexing"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

// DatabaseConfig locates the SQLite metadata database.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// ProviderConfig selects one embedding provider.
type ProviderConfig struct {
	Provider string `koanf:"provider"` // ollama or openai
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
	Model    string `koanf:"model"`
}

// EmbeddingConfig selects the primary provider and an optional fallback
// tried once per failed request.
type EmbeddingConfig struct {
	ProviderConfig `koanf:",squash"`
	Fallback       ProviderConfig `koanf:"fallback"`
	CacheSize      int            `koanf:"cache_size"`
}

// QdrantConfig holds vector store connection settings.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	UseTLS     bool   `koanf:"use_tls"`
	APIKey     string `koanf:"api_key"`
	Collection string `koanf:"collection"`
}

// IndexingConfig tunes the indexing pipeline.
type IndexingConfig struct {
	BatchSize int `koanf:"batch_size"`
}

// Load reads configuration from the YAML file at path, then overrides
// with RAGDOCS_ environment variables. A missing file is not an error;
// defaults plus environment carry a zero-config start.
//
// Environment variables map section_field: RAGDOCS_QDRANT_HOST becomes
// qdrant.host, RAGDOCS_EMBEDDING_API_KEY becomes embedding.api_key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = DefaultPath()
	}

	if content, err := os.ReadFile(path); err == nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", types.ErrConfiguration, path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: reading %s: %v", types.ErrConfiguration, path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("%w: loading environment: %v", types.ErrConfiguration, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", types.ErrConfiguration, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "ragdocs", "config.yaml")
}

// envTransform maps RAGDOCS_SECTION_FIELD_NAME to section.field_name.
// The split is on the first underscore after the prefix; field names keep
// their remaining underscores.
func envTransform(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.Path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.Database.Path = filepath.Join(home, ".local", "share", "ragdocs", "ragdocs.db")
		} else {
			c.Database.Path = "ragdocs.db"
		}
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "ollama"
	}
	if c.Indexing.BatchSize == 0 {
		c.Indexing.BatchSize = 50
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", types.ErrConfiguration, c.Log.Level)
	}
	if c.Indexing.BatchSize <= 0 {
		return fmt.Errorf("%w: indexing batch size must be positive", types.ErrConfiguration)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("%w: openai provider requires an api key", types.ErrConfiguration)
	}
	return nil
}
