// Package api provides the HTTP API server for the recall memory engine.
package api

import "time"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string

	// ReconcileInterval, when non-zero, runs ReconcileAll in the background
	// on this period while the server is up.
	ReconcileInterval time.Duration

	// ReconcileWorkers sizes the reconciliation worker pool.
	ReconcileWorkers uint

	// DisableMCP turns the /mcp endpoint into an empty MCP server.
	DisableMCP bool
}
