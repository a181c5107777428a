package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 1, MaxDelay: 1, Multiplier: 1}
}

func TestOllamaProvider(t *testing.T) {
	t.Run("successful embedding", func(t *testing.T) {
		var gotModel, gotPrompt string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/api/embeddings", r.URL.Path)

			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotModel, gotPrompt = req["model"], req["prompt"]

			json.NewEncoder(w).Encode(map[string]any{
				"embedding": []float32{0.1, 0.2, 0.3},
			})
		}))
		defer server.Close()

		provider := NewOllamaProvider(server.URL, "", nil)

		vec, err := provider.GenerateEmbedding(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
		assert.Equal(t, DefaultOllamaModel, gotModel)
		assert.Equal(t, "hello", gotPrompt)
	})

	t.Run("cache avoids second call", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1}})
		}))
		defer server.Close()

		provider := NewOllamaProvider(server.URL, "", NewCache(10))

		_, err := provider.GenerateEmbedding(context.Background(), "cached text")
		require.NoError(t, err)
		_, err = provider.GenerateEmbedding(context.Background(), "cached text")
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient failure", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1}})
		}))
		defer server.Close()

		provider := NewOllamaProvider(server.URL, "", nil)

		vec, err := retryWithBackoff(context.Background(), fastRetry(), func() ([]float32, error) {
			return provider.callAPI(context.Background(), "flaky")
		})
		require.NoError(t, err)
		assert.Equal(t, []float32{1}, vec)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent failure does not retry", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		provider := NewOllamaProvider(server.URL, "", nil)

		_, err := retryWithBackoff(context.Background(), fastRetry(), func() ([]float32, error) {
			return provider.callAPI(context.Background(), "missing model")
		})
		require.Error(t, err)
		assert.False(t, errors.Is(err, types.ErrTransientProvider))
		assert.Equal(t, 1, calls)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		provider := NewOllamaProvider("http://unused", "", nil)
		_, err := provider.GenerateEmbedding(context.Background(), "  ")
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})

	t.Run("availability check", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/tags", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		provider := NewOllamaProvider(server.URL, "", nil)
		assert.NoError(t, provider.CheckAvailability(context.Background()))

		server.Close()
		err := provider.CheckAvailability(context.Background())
		assert.ErrorIs(t, err, types.ErrConfiguration)
	})
}

func TestOpenAIProvider(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewOpenAIProvider("", "", "", nil)
		assert.ErrorIs(t, err, types.ErrConfiguration)
	})

	t.Run("successful embedding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/embeddings", r.URL.Path)
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"index": 0, "embedding": []float32{0.5, 0.6}},
				},
			})
		}))
		defer server.Close()

		provider, err := NewOpenAIProvider(server.URL, "test-key", "", nil)
		require.NoError(t, err)

		vec, err := provider.GenerateEmbedding(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, 0.6}, vec)
		assert.Equal(t, DefaultOpenAIModel, provider.Model())
		assert.Equal(t, OpenAIDimension, provider.Dimension())
	})

	t.Run("rate limit is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		provider, err := NewOpenAIProvider(server.URL, "test-key", "", nil)
		require.NoError(t, err)

		_, err = provider.callAPI(context.Background(), "throttled")
		assert.ErrorIs(t, err, types.ErrTransientProvider)
	})

	t.Run("empty response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
		}))
		defer server.Close()

		provider, err := NewOpenAIProvider(server.URL, "test-key", "", nil)
		require.NoError(t, err)

		_, err = provider.callAPI(context.Background(), "void")
		assert.Error(t, err)
	})
}
