// Package embedder generates vector embeddings for chunk text through
// HTTP providers (Ollama, OpenAI) with LRU caching, bounded retry, and
// an optional fallback provider tried once per failed request.
package embedder
