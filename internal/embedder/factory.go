package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// Config selects and configures a single provider.
type Config struct {
	Provider string // ollama or openai
	BaseURL  string // Optional: override the provider endpoint
	APIKey   string // Required for openai
	Model    string // Optional: override the default model
}

// Build creates a provider from explicit configuration. All constructed
// providers share the given cache.
func Build(cfg Config, cache *Cache) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cache), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cache)
	case "":
		return nil, fmt.Errorf("%w: no embedding provider configured", types.ErrConfiguration)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", types.ErrConfiguration, cfg.Provider)
	}
}

// NewFromConfig builds the primary provider and, when configured, wraps it
// with a fallback. A misconfigured primary is tolerated as long as the
// fallback passes its availability check; the run then proceeds on the
// fallback alone.
func NewFromConfig(ctx context.Context, primary Config, fallback *Config, cacheSize int, log *zap.Logger) (Provider, error) {
	cache := NewCache(cacheSize)

	prim, primErr := Build(primary, cache)
	var fall Provider
	if fallback != nil {
		var err error
		fall, err = Build(*fallback, cache)
		if err != nil {
			log.Warn("fallback embedding provider unusable",
				zap.String("provider", fallback.Provider),
				zap.Error(err))
			fall = nil
		}
	}

	if primErr != nil {
		if fall == nil {
			return nil, primErr
		}
		if err := fall.CheckAvailability(ctx); err != nil {
			return nil, errors.Join(primErr, err)
		}
		log.Warn("primary embedding provider misconfigured, proceeding on fallback",
			zap.String("primary", primary.Provider),
			zap.String("fallback", fall.Provider()),
			zap.Error(primErr))
		return fall, nil
	}

	if fall == nil {
		return prim, nil
	}
	return NewWithFallback(prim, fall, log), nil
}

// WithFallback tries the primary provider first and the fallback exactly
// once when the primary fails. Both providers must produce vectors of the
// same dimension for the shared collection to stay consistent, so the
// reported dimension is always the primary's.
type WithFallback struct {
	primary  Provider
	fallback Provider
	log      *zap.Logger
}

// NewWithFallback wraps primary with a single-shot fallback.
func NewWithFallback(primary, fallback Provider, log *zap.Logger) *WithFallback {
	return &WithFallback{primary: primary, fallback: fallback, log: log}
}

func (w *WithFallback) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec, err := w.primary.GenerateEmbedding(ctx, text)
	if err == nil {
		return vec, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	w.log.Warn("primary embedding provider failed, trying fallback",
		zap.String("primary", w.primary.Provider()),
		zap.String("fallback", w.fallback.Provider()),
		zap.Error(err))

	vec, fbErr := w.fallback.GenerateEmbedding(ctx, text)
	if fbErr != nil {
		return nil, errors.Join(err, fbErr)
	}
	return vec, nil
}

func (w *WithFallback) Dimension() int {
	return w.primary.Dimension()
}

func (w *WithFallback) Provider() string {
	return w.primary.Provider() + "+" + w.fallback.Provider()
}

func (w *WithFallback) Model() string {
	return w.primary.Model()
}

func (w *WithFallback) CheckAvailability(ctx context.Context) error {
	if err := w.primary.CheckAvailability(ctx); err == nil {
		return nil
	}
	return w.fallback.CheckAvailability(ctx)
}

func (w *WithFallback) Close() error {
	return errors.Join(w.primary.Close(), w.fallback.Close())
}
