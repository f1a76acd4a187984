// Package servecmder provides the serve command for running the memory API server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paideialabs/paideia/api"
	"github.com/paideialabs/paideia/api/mcp"
	"github.com/paideialabs/paideia/pkg/cache"
	"github.com/paideialabs/paideia/pkg/cache/badger"
	cacheinmemory "github.com/paideialabs/paideia/pkg/cache/inmemory"
	"github.com/paideialabs/paideia/pkg/config"
	"github.com/paideialabs/paideia/pkg/docstore"
	docsinmemory "github.com/paideialabs/paideia/pkg/docstore/inmemory"
	"github.com/paideialabs/paideia/pkg/docstore/postgres"
	"github.com/paideialabs/paideia/pkg/docstore/sqlite"
	embeddingutils "github.com/paideialabs/paideia/pkg/embeddings/utils"
	"github.com/paideialabs/paideia/pkg/eventstream"
	eventskafka "github.com/paideialabs/paideia/pkg/eventstream/kafka"
	eventsnop "github.com/paideialabs/paideia/pkg/eventstream/nop"
	"github.com/paideialabs/paideia/pkg/knowledge"
	llmutils "github.com/paideialabs/paideia/pkg/llm/utils"
	"github.com/paideialabs/paideia/pkg/logger"
	"github.com/paideialabs/paideia/pkg/memory/assembler"
	"github.com/paideialabs/paideia/pkg/memory/router"
	"github.com/paideialabs/paideia/pkg/memory/semantic"
	"github.com/paideialabs/paideia/pkg/memory/stepbuffer"
	"github.com/paideialabs/paideia/pkg/persona"
	"github.com/paideialabs/paideia/pkg/vector"
	vectorutils "github.com/paideialabs/paideia/pkg/vector/utils"
	"github.com/paideialabs/paideia/pkg/worker"
)

// completionAPIKeyEnv is the only place API keys are read from. They are
// never stored in config.toml.
const completionAPIKeyEnv = "PAIDEIA_COMPLETION_API_KEY"

// serveFlags is the flag registry for the serve command. Every flag maps to
// a viper key so the flag > env > file > default precedence chain holds.
var serveFlags = config.FlagSet{
	config.FlagAPIListen:        {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	config.FlagCacheProvider:    {Name: "cache", ViperKey: "cache.provider", Description: "Cache provider (badger, inmemory)"},
	config.FlagCachePath:        {Name: "cache-path", ViperKey: "cache.path", Description: "Directory for the Badger cache (empty for in-memory)"},
	config.FlagDocstoreProvider: {Name: "docstore", ViperKey: "docstore.provider", Description: "Document store provider (sqlite, postgres, inmemory)"},
	config.FlagSQLite:           {Name: "sqlite", Shorthand: "s", ViperKey: "docstore.sqlite_path", Description: "Path to the SQLite document store (default: in-memory)"},
	config.FlagPostgres:         {Name: "postgres", ViperKey: "docstore.postgres_url", Description: "Postgres connection URL for the document store"},
	config.FlagVectorStoreProv:  {Name: "vector-store", ViperKey: "vector_store.provider", Description: "Vector store provider (sqlitevec, qdrant, chroma)"},
	config.FlagVectorStoreTgt:   {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store target (path, host:port, or URL)"},
	config.FlagEmbeddingProv:    {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama, mock)"},
	config.FlagEmbeddingTgt:     {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider base URL"},
	config.FlagEmbeddingModel:   {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	config.FlagEmbeddingDims:    {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding vector dimensions"},
	config.FlagCompletionProv:   {Name: "provider", ViperKey: "completion.provider", Description: "Completion provider (anthropic, openai, ollama)"},
	config.FlagCompletionTgt:    {Name: "upstream", Shorthand: "u", ViperKey: "completion.target", Description: "Completion provider base URL"},
	config.FlagCompletionModel:  {Name: "model", Shorthand: "m", ViperKey: "completion.model", Description: "Completion model name"},
	config.FlagTokenBudget:      {Name: "token-budget", ViperKey: "memory.token_budget", Description: "Estimated-token ceiling for the verbatim step window"},
	config.FlagKeepRecent:       {Name: "keep-recent", ViperKey: "memory.keep_recent", Description: "Verbatim turns kept when a step window is folded"},
	config.FlagCharBudget:       {Name: "char-budget", ViperKey: "assembler.char_budget", Description: "Character budget for assembled context blocks"},
	config.FlagRosterPath:       {Name: "roster", ViperKey: "router.roster_path", Description: "Path to a persona roster TOML file (empty for built-in roster)"},
	config.FlagKnowledgeProv:    {Name: "knowledge", ViperKey: "knowledge.provider", Description: "Domain knowledge provider (dir, none)"},
	config.FlagKnowledgePath:    {Name: "knowledge-path", ViperKey: "knowledge.path", Description: "Directory of domain knowledge markdown files"},
	config.FlagEventsProvider:   {Name: "events", ViperKey: "events.provider", Description: "Event stream provider (kafka, none)"},
	config.FlagEventsBrokers:    {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma-separated Kafka bootstrap brokers"},
	config.FlagEventsTopic:      {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic for memory events"},
}

// serveFlagKeys is the registry key order used for flag binding.
var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagCacheProvider,
	config.FlagCachePath,
	config.FlagDocstoreProvider,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagCompletionProv,
	config.FlagCompletionTgt,
	config.FlagCompletionModel,
	config.FlagTokenBudget,
	config.FlagKeepRecent,
	config.FlagCharBudget,
	config.FlagRosterPath,
	config.FlagKnowledgeProv,
	config.FlagKnowledgePath,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

type ServeCommander struct {
	listen     string
	cacheProv  string
	cachePath  string
	docsProv   string
	sqlitePath string
	pgURL      string
	vecProv    string
	vecTarget  string
	embProv    string
	embTarget  string
	embModel   string
	embDims    uint
	provider   string
	upstream   string
	model      string
	tokens     uint
	keepRecent uint
	charBudget uint
	rosterPath string
	knowProv   string
	knowPath   string
	eventsProv string
	brokers    string
	topic      string

	debug  bool
	logger *zap.Logger
}

const serveLongDesc string = `Run the paideia memory API server.

Starts the HTTP API (chat, memory search, step management) together with
the MCP endpoint and the background persistence worker pool. Configuration
comes from flags, PAIDEIA_* environment variables, and config.toml, in
that order of precedence.

Examples:
  paideia serve
  paideia serve --listen :9090 --provider anthropic --model claude-sonnet-4-5
  paideia serve --events kafka --events-brokers localhost:9092`

const serveShortDesc string = "Run the paideia memory server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)

			return cmder.run(config.FromViper(v))
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagCacheProvider, &cmder.cacheProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagCachePath, &cmder.cachePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagDocstoreProvider, &cmder.docsProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagPostgres, &cmder.pgURL)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &cmder.vecProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreTgt, &cmder.vecTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagCompletionProv, &cmder.provider)
	config.AddStringFlag(cmd, serveFlags, config.FlagCompletionTgt, &cmder.upstream)
	config.AddStringFlag(cmd, serveFlags, config.FlagCompletionModel, &cmder.model)
	config.AddUintFlag(cmd, serveFlags, config.FlagTokenBudget, &cmder.tokens)
	config.AddUintFlag(cmd, serveFlags, config.FlagKeepRecent, &cmder.keepRecent)
	config.AddUintFlag(cmd, serveFlags, config.FlagCharBudget, &cmder.charBudget)
	config.AddStringFlag(cmd, serveFlags, config.FlagRosterPath, &cmder.rosterPath)
	config.AddStringFlag(cmd, serveFlags, config.FlagKnowledgeProv, &cmder.knowProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagKnowledgePath, &cmder.knowPath)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsProvider, &cmder.eventsProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTopic, &cmder.topic)

	return cmd
}

func (c *ServeCommander) run(cfg *config.Config) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	slogger := logger.New(logger.WithDebug(c.debug))

	ctx := context.Background()

	// Tier-1 cache
	cacheStore, err := c.newCacheStore(cfg)
	if err != nil {
		return err
	}
	defer cacheStore.Close()

	// Document store
	docs, err := c.newDocstore(ctx, cfg)
	if err != nil {
		return err
	}
	defer docs.Close()

	// Vector store
	driver, err := c.newVectorDriver(ctx, cfg, slogger)
	if err != nil {
		return err
	}
	defer driver.Close()

	// Embedder
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   int(cfg.Embedding.Dimensions),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	// Completer
	completer, err := llmutils.NewCompleter(&llmutils.NewCompleterOpts{
		ProviderType: cfg.Completion.Provider,
		TargetURL:    cfg.Completion.Target,
		Model:        cfg.Completion.Model,
		APIKey:       os.Getenv(completionAPIKeyEnv),
	})
	if err != nil {
		return fmt.Errorf("creating completer: %w", err)
	}
	defer completer.Close()

	// Domain knowledge
	retriever, err := c.newKnowledgeRetriever(cfg, slogger)
	if err != nil {
		return err
	}
	defer retriever.Close()

	// Memory tiers
	buffer := stepbuffer.NewBuffer(cacheStore, completer, stepbuffer.Config{
		TokenBudget: int(cfg.Memory.TokenBudget),
		KeepRecent:  int(cfg.Memory.KeepRecent),
	}, slogger)

	index := semantic.NewIndex(cacheStore, docs, driver, embedder, semantic.Config{}, slogger)

	asm := assembler.NewAssembler(retriever, index, cacheStore, assembler.Config{
		CharBudget: int(cfg.Assembler.CharBudget),
	}, slogger)

	// Persona router. The curriculum catalog is an external system; no
	// describer is wired here.
	roster, err := c.newRoster(cfg)
	if err != nil {
		return err
	}
	rtr := router.NewRouter(roster, completer, nil, router.Config{
		Model: cfg.Router.Model,
	}, slogger)

	// Event stream
	publisher, err := c.newPublisher(cfg, slogger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Background persistence pool
	pool, err := worker.NewPool(&worker.Config{
		Store:     docs,
		Recorder:  index,
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}

	// MCP server
	mcpServer, err := mcp.NewServer(mcp.Config{
		Searcher: index,
		Buffer:   buffer,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	// API server
	apiServer := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
	}, api.Components{
		Router:     rtr,
		Buffer:     buffer,
		Index:      index,
		Assembler:  asm,
		Completer:  completer,
		Pool:       pool,
		Model:      cfg.Completion.Model,
		MCPHandler: mcpServer.Handler(),
	}, c.logger)

	c.logger.Info("starting paideia server",
		zap.String("listen", cfg.API.Listen),
		zap.String("completion_provider", cfg.Completion.Provider),
		zap.String("completion_model", cfg.Completion.Model),
		zap.String("docstore", cfg.Docstore.Provider),
		zap.String("vector_store", cfg.VectorStore.Provider),
		zap.String("events", cfg.Events.Provider),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		pool.Close()
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		if err := apiServer.Shutdown(); err != nil {
			c.logger.Warn("api shutdown", zap.Error(err))
		}
		// Drain queued persistence jobs before closing stores.
		pool.Close()
		return nil
	}
}

func (c *ServeCommander) newCacheStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Provider {
	case "badger", "":
		store, err := badger.NewStore(badger.Config{Path: cfg.Cache.Path}, c.logger)
		if err != nil {
			return nil, fmt.Errorf("creating badger cache: %w", err)
		}
		return store, nil
	case "inmemory":
		return cacheinmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Cache.Provider)
	}
}

func (c *ServeCommander) newDocstore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.Docstore.Provider {
	case "sqlite", "":
		path := cfg.Docstore.SQLitePath
		if path == "" {
			c.logger.Info("no sqlite path configured, using in-memory document store")
			path = ":memory:"
		}
		store, err := sqlite.NewStore(path)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite document store: %w", err)
		}
		return store, nil
	case "postgres":
		if cfg.Docstore.PostgresURL == "" {
			return nil, fmt.Errorf("docstore.postgres_url is required for the postgres provider")
		}
		store, err := postgres.NewStore(ctx, cfg.Docstore.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("creating postgres document store: %w", err)
		}
		return store, nil
	case "inmemory":
		return docsinmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported docstore provider: %s", cfg.Docstore.Provider)
	}
}

func (c *ServeCommander) newVectorDriver(ctx context.Context, cfg *config.Config, slogger *slog.Logger) (vector.Driver, error) {
	opts := &vectorutils.NewVectorDriverOpts{
		ProviderType:   cfg.VectorStore.Provider,
		CollectionName: cfg.VectorStore.Collection,
		Dimensions:     cfg.Embedding.Dimensions,
		Logger:         slogger,
	}

	switch cfg.VectorStore.Provider {
	case "qdrant":
		host, portStr, err := net.SplitHostPort(cfg.VectorStore.Target)
		if err != nil {
			return nil, fmt.Errorf("vector_store.target must be host:port for qdrant: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
		}
		opts.Host = host
		opts.Port = port
	case "sqlitevec":
		path := cfg.VectorStore.Target
		if path == "" {
			path = ":memory:"
		}
		opts.DBPath = path
	default:
		opts.TargetURL = cfg.VectorStore.Target
	}

	driver, err := vectorutils.NewVectorDriver(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}
	return driver, nil
}

func (c *ServeCommander) newKnowledgeRetriever(cfg *config.Config, slogger *slog.Logger) (knowledge.Retriever, error) {
	switch cfg.Knowledge.Provider {
	case "dir":
		if cfg.Knowledge.Path == "" {
			return nil, fmt.Errorf("knowledge.path is required for the dir provider")
		}
		retriever, err := knowledge.NewDirRetriever(cfg.Knowledge.Path, slogger)
		if err != nil {
			return nil, fmt.Errorf("creating knowledge retriever: %w", err)
		}
		return retriever, nil
	case "none", "":
		return knowledge.NewStatic(""), nil
	default:
		return nil, fmt.Errorf("unsupported knowledge provider: %s", cfg.Knowledge.Provider)
	}
}

func (c *ServeCommander) newRoster(cfg *config.Config) (*persona.Roster, error) {
	if cfg.Router.RosterPath == "" {
		return persona.DefaultRoster(), nil
	}
	roster, err := persona.LoadRoster(cfg.Router.RosterPath)
	if err != nil {
		return nil, fmt.Errorf("loading persona roster: %w", err)
	}
	return roster, nil
}

func (c *ServeCommander) newPublisher(cfg *config.Config, slogger *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case "kafka":
		publisher, err := eventskafka.NewPublisher(eventskafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		}, slogger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return publisher, nil
	case "none", "":
		return eventsnop.NewPublisher(), nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", cfg.Events.Provider)
	}
}
