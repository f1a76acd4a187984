package config

const (
	defaultAPIListen = ":8080"

	defaultCacheProvider = "badger"

	defaultDocstoreProvider = "sqlite"

	defaultVectorProvider = "sqlitevec"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultCompletionProvider = "ollama"
	defaultCompletionTarget   = "http://localhost:11434"
	defaultCompletionModel    = "llama3.1"

	defaultMemoryTokenBudget = 2000
	defaultMemoryKeepRecent  = 4

	defaultAssemblerCharBudget = 8000

	defaultKnowledgeProvider = "none"

	defaultEventsProvider = "none"
	defaultEventsTopic    = "paideia.memory.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Cache: CacheConfig{
			Provider: defaultCacheProvider,
		},
		Docstore: DocstoreConfig{
			Provider: defaultDocstoreProvider,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Completion: CompletionConfig{
			Provider: defaultCompletionProvider,
			Target:   defaultCompletionTarget,
			Model:    defaultCompletionModel,
		},
		Memory: MemoryConfig{
			TokenBudget: defaultMemoryTokenBudget,
			KeepRecent:  defaultMemoryKeepRecent,
		},
		Assembler: AssemblerConfig{
			CharBudget: defaultAssemblerCharBudget,
		},
		Knowledge: KnowledgeConfig{
			Provider: defaultKnowledgeProvider,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
