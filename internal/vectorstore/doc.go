// Package vectorstore persists chunk embeddings in Qdrant over gRPC.
// It owns collection lifecycle, idempotent point upserts, and the
// filter-based deletes that keep the store in sync with file changes.
package vectorstore
