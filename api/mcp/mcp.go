// Package mcp provides an MCP (Model Context Protocol) server over the
// tutoring memory engine, exposing memory search and step recall as tools.
package mcp

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/paideialabs/paideia/pkg/memory"
	"github.com/paideialabs/paideia/pkg/utils"
)

// MemorySearcher runs semantic retrieval over a user's memory.
type MemorySearcher interface {
	Search(ctx context.Context, userID, query string) ([]memory.MemoryChunk, error)
}

// StepLoader reads the Tier-1 buffer for one step.
type StepLoader interface {
	Load(ctx context.Context, key memory.StepKey) (*memory.StepMemoryState, error)
}

type Config struct {
	// Searcher backs the memory_search tool.
	Searcher MemorySearcher

	// Buffer backs the step_recall tool.
	Buffer StepLoader

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	// Create the MCP server
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "paideia",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Searcher == nil {
		return nil, errors.New("memory searcher is required")
	}
	if c.Buffer == nil {
		return nil, errors.New("step buffer is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	// Add tools
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memorySearchToolName,
		Description: memorySearchDescription,
	}, s.handleMemorySearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        stepRecallToolName,
		Description: stepRecallDescription,
	}, s.handleStepRecall)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
