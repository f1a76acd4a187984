// Package api provides the HTTP API server for the tiered tutoring memory
// engine: the chat pipeline, memory search, and step buffer management.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string
}
