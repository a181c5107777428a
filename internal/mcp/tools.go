package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/elgui/mcp-ragdocs/internal/indexer"
	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound           = -32001 // Repository not registered
	ErrorCodeIndexingInProgress = -32002 // Another indexing run is active
	ErrorCodeAlreadyExists      = -32003 // Repository name already taken
)

// handleAddRepository registers a repository and runs its first pass.
func (s *Server) handleAddRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, paramError("name", "missing or empty")
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, paramError("path", "missing or empty")
	}
	if err := validatePath(path); err != nil {
		return nil, paramError("path", err.Error())
	}

	cfg := &types.RepositoryConfig{
		Name:          name,
		Path:          path,
		Include:       getStringSlice(args, "include"),
		Exclude:       getStringSlice(args, "exclude"),
		WatchEnabled:  getBoolDefault(args, "watch_enabled", false),
		WatchInterval: getDurationSeconds(args, "watch_interval_seconds", 0),
		ChunkSize:     getIntDefault(args, "chunk_size", 0),
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	}

	if err := s.store.CreateRepository(ctx, cfg); err != nil {
		return nil, mapStoreError(err)
	}

	stats, err := s.indexer.IndexRepository(ctx, name)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if cfg.WatchEnabled {
		if err := s.watcher.Start(name, cfg.WatchInterval); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "starting watch", map[string]interface{}{"error": err.Error()})
		}
	}

	return mcp.NewToolResultText(formatJSON(runResponse(name, stats))), nil
}

// handleUpdateRepository merges the provided fields into an existing
// configuration, restarts its watch if needed, and re-indexes.
func (s *Server) handleUpdateRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, paramError("name", "missing or empty")
	}

	cfg, err := s.store.GetRepository(ctx, name)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if path, ok := args["path"].(string); ok && path != "" {
		if err := validatePath(path); err != nil {
			return nil, paramError("path", err.Error())
		}
		cfg.Path = path
	}
	if _, ok := args["include"]; ok {
		cfg.Include = getStringSlice(args, "include")
	}
	if _, ok := args["exclude"]; ok {
		cfg.Exclude = getStringSlice(args, "exclude")
	}
	if v, ok := args["watch_enabled"].(bool); ok {
		cfg.WatchEnabled = v
	}
	if d := getDurationSeconds(args, "watch_interval_seconds", 0); d > 0 {
		cfg.WatchInterval = d
	}
	if v := getIntDefault(args, "chunk_size", 0); v > 0 {
		cfg.ChunkSize = v
	}
	cfg.UpdatedAt = time.Now().UTC()

	if err := cfg.Validate(); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	}
	if err := s.store.UpdateRepository(ctx, cfg); err != nil {
		return nil, mapStoreError(err)
	}

	// Restart the watch so interval and enablement changes take effect.
	s.watcher.Stop(name)
	if cfg.WatchEnabled {
		if err := s.watcher.Start(name, cfg.WatchInterval); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "starting watch", map[string]interface{}{"error": err.Error()})
		}
	}

	stats, err := s.indexer.IndexRepository(ctx, name)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return mcp.NewToolResultText(formatJSON(runResponse(name, stats))), nil
}

// handleRemoveRepository removes a repository and all of its points.
func (s *Server) handleRemoveRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, errResult := requiredName(request)
	if errResult != nil {
		return nil, errResult
	}

	s.watcher.Stop(name)
	if err := s.indexer.RemoveRepository(ctx, name); err != nil {
		return nil, mapStoreError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"removed":    true,
		"repository": name,
	})), nil
}

// handleListRepositories lists configurations with their watch state.
func (s *Server) handleListRepositories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}

	list := make([]map[string]interface{}, 0, len(repos))
	for _, cfg := range repos {
		list = append(list, map[string]interface{}{
			"name":                   cfg.Name,
			"path":                   cfg.Path,
			"include":                cfg.Include,
			"exclude":                cfg.Exclude,
			"watch_enabled":          cfg.WatchEnabled,
			"watch_interval_seconds": int(cfg.WatchInterval / time.Second),
			"chunk_size":             cfg.ChunkSize,
			"watching":               s.watcher.Watching(cfg.Name),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"repositories": list,
		"count":        len(list),
	})), nil
}

// handleTriggerReindex runs one incremental pass.
func (s *Server) handleTriggerReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, errResult := requiredName(request)
	if errResult != nil {
		return nil, errResult
	}

	stats, err := s.indexer.IndexRepository(ctx, name)
	if err != nil {
		// A trigger that races an active run is not an error: hand back
		// the status of the run already in flight.
		if errors.Is(err, types.ErrIndexingInProgress) {
			if st, ok := s.indexer.Status(name); ok {
				return mcp.NewToolResultText(formatStatusJSON(st)), nil
			}
			return mcp.NewToolResultText(formatJSON(map[string]interface{}{
				"repository": name,
				"state":      string(types.StateProcessing),
			})), nil
		}
		return nil, mapStoreError(err)
	}

	return mcp.NewToolResultText(formatJSON(runResponse(name, stats))), nil
}

// handleGetIndexingStatus reports the latest run for one or all repos.
func (s *Server) handleGetIndexingStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	name, _ := args["name"].(string)

	if name != "" {
		st, ok := s.indexer.Status(name)
		if !ok {
			return nil, newMCPError(ErrorCodeNotFound, "no indexing run recorded", map[string]interface{}{
				"repository": name,
			})
		}
		return mcp.NewToolResultText(formatStatusJSON(st)), nil
	}

	return mcp.NewToolResultText(formatStatusJSON(s.indexer.StatusAll())), nil
}

// handleStartWatch starts polling re-indexing for a repository.
func (s *Server) handleStartWatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, errResult := requiredName(request)
	if errResult != nil {
		return nil, errResult
	}
	args, _ := request.Params.Arguments.(map[string]interface{})

	cfg, err := s.store.GetRepository(ctx, name)
	if err != nil {
		return nil, mapStoreError(err)
	}

	interval := getDurationSeconds(args, "interval_seconds", cfg.WatchInterval)
	// Start is idempotent: repeating it for an already-watched name keeps
	// the running loop.
	if err := s.watcher.Start(name, interval); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "starting watch", map[string]interface{}{"error": err.Error()})
	}

	// Persist so the watch survives a restart.
	cfg.WatchEnabled = true
	cfg.WatchInterval = interval
	cfg.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateRepository(ctx, cfg); err != nil {
		return nil, mapStoreError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"watching":         true,
		"repository":       name,
		"interval_seconds": int(interval / time.Second),
	})), nil
}

// handleStopWatch stops polling re-indexing for a repository.
func (s *Server) handleStopWatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, errResult := requiredName(request)
	if errResult != nil {
		return nil, errResult
	}

	stopped := s.watcher.Stop(name)

	if cfg, err := s.store.GetRepository(ctx, name); err == nil && cfg.WatchEnabled {
		cfg.WatchEnabled = false
		cfg.UpdatedAt = time.Now().UTC()
		if err := s.store.UpdateRepository(ctx, cfg); err != nil {
			return nil, mapStoreError(err)
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"watching":   false,
		"stopped":    stopped,
		"repository": name,
	})), nil
}

// Helper functions

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

func paramError(param, reason string) error {
	return newMCPError(ErrorCodeInvalidParams, param+" parameter is invalid", map[string]interface{}{
		"param":  param,
		"reason": reason,
	})
}

// mapStoreError translates domain sentinels into MCP error codes.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, "repository not found", map[string]interface{}{"error": err.Error()})
	case errors.Is(err, types.ErrAlreadyExists):
		return newMCPError(ErrorCodeAlreadyExists, "repository already exists", map[string]interface{}{"error": err.Error()})
	case errors.Is(err, types.ErrIndexingInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{"error": err.Error()})
	case errors.Is(err, types.ErrInvalidInput), errors.Is(err, types.ErrConfiguration):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, "operation failed", map[string]interface{}{"error": err.Error()})
	}
}

func requiredName(request mcp.CallToolRequest) (string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return "", paramError("name", "missing or empty")
	}
	return name, nil
}

// validatePath checks that a path is an absolute, readable directory.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return errors.New("path must be absolute")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.New("path does not exist")
	}
	if err != nil {
		return errors.New("path is not readable")
	}
	if !info.IsDir() {
		return errors.New("path is not a directory")
	}
	return nil
}

// runResponse formats an indexing run's statistics for the client.
func runResponse(name string, stats *indexer.Statistics) map[string]interface{} {
	response := map[string]interface{}{
		"repository":      name,
		"files_indexed":   stats.FilesIndexed,
		"files_unchanged": stats.FilesUnchanged,
		"files_skipped":   stats.FilesSkipped,
		"files_failed":    stats.FilesFailed,
		"files_deleted":   stats.FilesDeleted,
		"chunks_created":  stats.ChunksCreated,
		"chunks_embedded": stats.ChunksEmbedded,
		"duration_ms":     stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		if len(stats.ErrorMessages) > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = len(stats.ErrorMessages)
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}
	return response
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// formatStatusJSON formats status values as indented JSON.
func formatStatusJSON(v interface{}) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getDurationSeconds extracts a seconds parameter as a duration.
func getDurationSeconds(args map[string]interface{}, key string, defaultValue time.Duration) time.Duration {
	if v := getIntDefault(args, key, 0); v > 0 {
		return time.Duration(v) * time.Second
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter.
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
