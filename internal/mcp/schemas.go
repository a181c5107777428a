package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func repositoryProperties() map[string]interface{} {
	return map[string]interface{}{
		"name": map[string]interface{}{
			"type":        "string",
			"description": "Unique repository name",
		},
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the file tree to index",
		},
		"include": map[string]interface{}{
			"type":        "array",
			"description": "Glob patterns to include (empty means include all)",
			"items":       map[string]interface{}{"type": "string"},
		},
		"exclude": map[string]interface{}{
			"type":        "array",
			"description": "Glob patterns to exclude (take precedence over include)",
			"items":       map[string]interface{}{"type": "string"},
		},
		"watch_enabled": map[string]interface{}{
			"type":        "boolean",
			"description": "Re-index automatically on a polling interval",
			"default":     false,
		},
		"watch_interval_seconds": map[string]interface{}{
			"type":        "integer",
			"description": "Polling interval in seconds (default 300)",
			"minimum":     1,
		},
		"chunk_size": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum chunk size in characters (default 1000)",
			"minimum":     1,
		},
	}
}

// addRepositoryTool returns the tool definition for add_repository
func addRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_repository",
		Description: "Register a local file tree for indexing and run the initial indexing pass",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: repositoryProperties(),
			Required:   []string{"name", "path"},
		},
	}
}

// updateRepositoryTool returns the tool definition for update_repository
func updateRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_repository",
		Description: "Update a repository's configuration and re-index it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: repositoryProperties(),
			Required:   []string{"name"},
		},
	}
}

// removeRepositoryTool returns the tool definition for remove_repository
func removeRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_repository",
		Description: "Remove a repository, its fingerprints, and all of its indexed chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Repository name",
				},
			},
			Required: []string{"name"},
		},
	}
}

// listRepositoriesTool returns the tool definition for list_repositories
func listRepositoriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_repositories",
		Description: "List registered repositories with their configuration and watch state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// triggerReindexTool returns the tool definition for trigger_reindex
func triggerReindexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "trigger_reindex",
		Description: "Run one incremental indexing pass over a repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Repository name",
				},
			},
			Required: []string{"name"},
		},
	}
}

// getIndexingStatusTool returns the tool definition for get_indexing_status
func getIndexingStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_indexing_status",
		Description: "Get the progress of the latest indexing run, for one repository or all",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Repository name (omit for all repositories)",
				},
			},
		},
	}
}

// startWatchTool returns the tool definition for start_watch
func startWatchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "start_watch",
		Description: "Start polling re-indexing for a repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Repository name",
				},
				"interval_seconds": map[string]interface{}{
					"type":        "integer",
					"description": "Polling interval in seconds (default: the repository's configured interval)",
					"minimum":     1,
				},
			},
			Required: []string{"name"},
		},
	}
}

// stopWatchTool returns the tool definition for stop_watch
func stopWatchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "stop_watch",
		Description: "Stop polling re-indexing for a repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Repository name",
				},
			},
			Required: []string{"name"},
		},
	}
}
