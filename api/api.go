package api

import (
	"context"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/paideialabs/paideia/pkg/llm"
	"github.com/paideialabs/paideia/pkg/memory"
	"github.com/paideialabs/paideia/pkg/memory/assembler"
	"github.com/paideialabs/paideia/pkg/memory/router"
	"github.com/paideialabs/paideia/pkg/memory/stepbuffer"
	"github.com/paideialabs/paideia/pkg/worker"
)

// MemoryIndex is the slice of the semantic index the server needs.
type MemoryIndex interface {
	EnsureFresh(ctx context.Context, userID, currentStepID string) error
	Search(ctx context.Context, userID, query string) ([]memory.MemoryChunk, error)
}

// Enqueuer accepts background persistence jobs.
type Enqueuer interface {
	Enqueue(job worker.Job) bool
}

// Components are the engine pieces the server orchestrates.
// They are injected to allow sharing with the MCP server and the CLI.
type Components struct {
	Router    *router.Router
	Buffer    *stepbuffer.Buffer
	Index     MemoryIndex
	Assembler *assembler.Assembler
	Completer llm.Completer
	Pool      Enqueuer

	// Model is the completion model used for tutoring replies.
	Model string

	// MCPHandler optionally mounts an MCP server at /mcp.
	MCPHandler http.Handler
}

// Server is the API server for the tutoring memory engine.
type Server struct {
	config     Config
	components Components
	logger     *zap.Logger
	app        *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, components Components, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:     config,
		components: components,
		logger:     logger,
		app:        app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/chat", s.handleChat)
	app.Post("/memory/search", s.handleMemorySearch)
	app.Post("/steps/clear", s.handleStepsClear)

	if components.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(components.MCPHandler))
	}

	return s
}

// App returns the underlying fiber app, exposed for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
