package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent paideia configuration stored as config.toml
// in the .paideia/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	API         APIConfig         `toml:"api"`
	Cache       CacheConfig       `toml:"cache"`
	Docstore    DocstoreConfig    `toml:"docstore"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Completion  CompletionConfig  `toml:"completion"`
	Memory      MemoryConfig      `toml:"memory"`
	Assembler   AssemblerConfig   `toml:"assembler"`
	Router      RouterConfig      `toml:"router"`
	Knowledge   KnowledgeConfig   `toml:"knowledge"`
	Events      EventsConfig      `toml:"events"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// CacheConfig holds Tier-1 cache settings.
type CacheConfig struct {
	Provider string `toml:"provider,omitempty"`
	Path     string `toml:"path,omitempty"`
}

// DocstoreConfig holds document store settings.
type DocstoreConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresURL string `toml:"postgres_url,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// CompletionConfig holds chat completion provider settings. API keys come
// from the PAIDEIA_COMPLETION_API_KEY environment variable, never the file.
type CompletionConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// MemoryConfig holds Tier-1 step buffer settings.
type MemoryConfig struct {
	TokenBudget uint `toml:"token_budget,omitempty"`
	KeepRecent  uint `toml:"keep_recent,omitempty"`
}

// AssemblerConfig holds context assembly settings.
type AssemblerConfig struct {
	CharBudget uint `toml:"char_budget,omitempty"`
}

// RouterConfig holds persona routing settings.
type RouterConfig struct {
	Model      string `toml:"model,omitempty"`
	RosterPath string `toml:"roster_path,omitempty"`
}

// KnowledgeConfig holds domain knowledge retrieval settings.
type KnowledgeConfig struct {
	Provider string `toml:"provider,omitempty"`
	Path     string `toml:"path,omitempty"`
}

// EventsConfig holds event stream settings. Brokers is comma-separated in
// the key/value surface and a TOML array in the file.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"cache.provider": {
		get: func(c *Config) string { return c.Cache.Provider },
		set: func(c *Config, v string) error { c.Cache.Provider = v; return nil },
	},
	"cache.path": {
		get: func(c *Config) string { return c.Cache.Path },
		set: func(c *Config, v string) error { c.Cache.Path = v; return nil },
	},
	"docstore.provider": {
		get: func(c *Config) string { return c.Docstore.Provider },
		set: func(c *Config, v string) error { c.Docstore.Provider = v; return nil },
	},
	"docstore.sqlite_path": {
		get: func(c *Config) string { return c.Docstore.SQLitePath },
		set: func(c *Config, v string) error { c.Docstore.SQLitePath = v; return nil },
	},
	"docstore.postgres_url": {
		get: func(c *Config) string { return c.Docstore.PostgresURL },
		set: func(c *Config, v string) error { c.Docstore.PostgresURL = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"completion.provider": {
		get: func(c *Config) string { return c.Completion.Provider },
		set: func(c *Config, v string) error { c.Completion.Provider = v; return nil },
	},
	"completion.target": {
		get: func(c *Config) string { return c.Completion.Target },
		set: func(c *Config, v string) error { c.Completion.Target = v; return nil },
	},
	"completion.model": {
		get: func(c *Config) string { return c.Completion.Model },
		set: func(c *Config, v string) error { c.Completion.Model = v; return nil },
	},
	"memory.token_budget": {
		get: func(c *Config) string {
			if c.Memory.TokenBudget == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Memory.TokenBudget), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for memory.token_budget: %w", err)
			}
			c.Memory.TokenBudget = uint(n)
			return nil
		},
	},
	"memory.keep_recent": {
		get: func(c *Config) string {
			if c.Memory.KeepRecent == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Memory.KeepRecent), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for memory.keep_recent: %w", err)
			}
			c.Memory.KeepRecent = uint(n)
			return nil
		},
	},
	"assembler.char_budget": {
		get: func(c *Config) string {
			if c.Assembler.CharBudget == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Assembler.CharBudget), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for assembler.char_budget: %w", err)
			}
			c.Assembler.CharBudget = uint(n)
			return nil
		},
	},
	"router.model": {
		get: func(c *Config) string { return c.Router.Model },
		set: func(c *Config, v string) error { c.Router.Model = v; return nil },
	},
	"router.roster_path": {
		get: func(c *Config) string { return c.Router.RosterPath },
		set: func(c *Config, v string) error { c.Router.RosterPath = v; return nil },
	},
	"knowledge.provider": {
		get: func(c *Config) string { return c.Knowledge.Provider },
		set: func(c *Config, v string) error { c.Knowledge.Provider = v; return nil },
	},
	"knowledge.path": {
		get: func(c *Config) string { return c.Knowledge.Path },
		set: func(c *Config, v string) error { c.Knowledge.Path = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = splitBrokers(v)
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

// splitBrokers parses a comma-separated broker list, dropping empty entries.
func splitBrokers(v string) []string {
	var out []string
	for _, b := range strings.Split(v, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
