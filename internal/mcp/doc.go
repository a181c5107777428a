// Package mcp implements the Model Context Protocol server for ragdocs.
//
// The server speaks JSON-RPC 2.0 over stdio and exposes the repository
// lifecycle to MCP clients:
//   - add_repository / update_repository / remove_repository / list_repositories
//   - trigger_reindex: run one incremental indexing pass
//   - get_indexing_status: poll the progress of a run
//   - start_watch / stop_watch: control polling re-indexing
//
// Stdout is reserved for the protocol; all logging goes to stderr.
//
// Error codes follow JSON-RPC conventions:
//   - -32602: invalid params (missing/invalid arguments)
//   - -32603: internal error
//   - -32001: repository not found
//   - -32002: indexing already in progress
//   - -32003: repository already exists
package mcp
