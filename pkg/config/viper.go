package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/paideialabs/paideia/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PAIDEIA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PAIDEIA_API_LISTEN, PAIDEIA_CACHE_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: PAIDEIA_API_LISTEN, PAIDEIA_DOCSTORE_SQLITE_PATH, etc.
	v.SetEnvPrefix("PAIDEIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from a viper instance created with
// InitViper. The result reflects the full precedence chain, so callers get
// flag, env, file, and default values already merged.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Cache: CacheConfig{
			Provider: v.GetString("cache.provider"),
			Path:     v.GetString("cache.path"),
		},
		Docstore: DocstoreConfig{
			Provider:    v.GetString("docstore.provider"),
			SQLitePath:  v.GetString("docstore.sqlite_path"),
			PostgresURL: v.GetString("docstore.postgres_url"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Collection: v.GetString("vector_store.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		Completion: CompletionConfig{
			Provider: v.GetString("completion.provider"),
			Target:   v.GetString("completion.target"),
			Model:    v.GetString("completion.model"),
		},
		Memory: MemoryConfig{
			TokenBudget: v.GetUint("memory.token_budget"),
			KeepRecent:  v.GetUint("memory.keep_recent"),
		},
		Assembler: AssemblerConfig{
			CharBudget: v.GetUint("assembler.char_budget"),
		},
		Router: RouterConfig{
			Model:      v.GetString("router.model"),
			RosterPath: v.GetString("router.roster_path"),
		},
		Knowledge: KnowledgeConfig{
			Provider: v.GetString("knowledge.provider"),
			Path:     v.GetString("knowledge.path"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  brokersFromViper(v),
			Topic:    v.GetString("events.topic"),
		},
	}
}

// brokersFromViper normalizes the broker list. TOML files carry an array,
// while flags and env vars carry a comma-separated string, so each element
// is re-split on commas.
func brokersFromViper(v *viper.Viper) []string {
	var out []string
	for _, raw := range v.GetStringSlice("events.brokers") {
		out = append(out, splitBrokers(raw)...)
	}
	return out
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Cache
	v.SetDefault("cache.provider", d.Cache.Provider)
	v.SetDefault("cache.path", d.Cache.Path)

	// Docstore
	v.SetDefault("docstore.provider", d.Docstore.Provider)
	v.SetDefault("docstore.sqlite_path", d.Docstore.SQLitePath)
	v.SetDefault("docstore.postgres_url", d.Docstore.PostgresURL)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Completion
	v.SetDefault("completion.provider", d.Completion.Provider)
	v.SetDefault("completion.target", d.Completion.Target)
	v.SetDefault("completion.model", d.Completion.Model)

	// Memory
	v.SetDefault("memory.token_budget", d.Memory.TokenBudget)
	v.SetDefault("memory.keep_recent", d.Memory.KeepRecent)

	// Assembler
	v.SetDefault("assembler.char_budget", d.Assembler.CharBudget)

	// Router
	v.SetDefault("router.model", d.Router.Model)
	v.SetDefault("router.roster_path", d.Router.RosterPath)

	// Knowledge
	v.SetDefault("knowledge.provider", d.Knowledge.Provider)
	v.SetDefault("knowledge.path", d.Knowledge.Path)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
