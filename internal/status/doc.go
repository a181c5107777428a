// Package status tracks per-repository indexing runs: lifecycle state,
// file and chunk counters, and a monotonic completion percentage that
// MCP clients can poll while a run is in flight.
package status
