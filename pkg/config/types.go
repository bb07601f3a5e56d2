package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent recall configuration stored as config.toml
// in the .recall/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Engine      EngineConfig      `toml:"engine"`
	Events      EventsConfig      `toml:"events"`
}

// StorageConfig selects the authoritative structured store.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// VectorStoreConfig selects the similarity index.
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
	APIKey     string `toml:"api_key,omitempty"`
	CacheSize  uint   `toml:"cache_size,omitempty"`
}

// LLMConfig holds the chat completion provider used for decisions,
// classification and synthesis.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// API server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EngineConfig tunes the consistency coordinator.
type EngineConfig struct {
	ContextWindow     uint   `toml:"context_window,omitempty"`
	SearchLimit       uint   `toml:"search_limit,omitempty"`
	OwnerLock         string `toml:"owner_lock,omitempty"`
	RedisAddr         string `toml:"redis_addr,omitempty"`
	ReconcileInterval string `toml:"reconcile_interval,omitempty"`
	ReconcileWorkers  uint   `toml:"reconcile_workers,omitempty"`
}

// EventsConfig selects where memory lifecycle events are published.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
	NATSURL  string `toml:"nats_url,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.cache_size": uintKey("embedding.cache_size", func(c *Config) *uint { return &c.Embedding.CacheSize }),

	"llm.provider": stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":   stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":    stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.api_key":  stringKey(func(c *Config) *string { return &c.LLM.APIKey }),

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"engine.context_window": uintKey("engine.context_window", func(c *Config) *uint { return &c.Engine.ContextWindow }),
	"engine.search_limit":   uintKey("engine.search_limit", func(c *Config) *uint { return &c.Engine.SearchLimit }),
	"engine.owner_lock": {
		get: func(c *Config) string { return c.Engine.OwnerLock },
		set: func(c *Config, v string) error {
			switch v {
			case "none", "local", "redis":
				c.Engine.OwnerLock = v
				return nil
			default:
				return fmt.Errorf("invalid value for engine.owner_lock: %q (want none, local or redis)", v)
			}
		},
	},
	"engine.redis_addr": stringKey(func(c *Config) *string { return &c.Engine.RedisAddr }),
	"engine.reconcile_interval": {
		get: func(c *Config) string { return c.Engine.ReconcileInterval },
		set: func(c *Config, v string) error {
			if v != "" {
				if _, err := time.ParseDuration(v); err != nil {
					return fmt.Errorf("invalid value for engine.reconcile_interval: %w", err)
				}
			}
			c.Engine.ReconcileInterval = v
			return nil
		},
	},
	"engine.reconcile_workers": uintKey("engine.reconcile_workers", func(c *Config) *uint { return &c.Engine.ReconcileWorkers }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"events.nats_url": stringKey(func(c *Config) *string { return &c.Events.NATSURL }),
}

// orderedKeys is the display order of configKeys, matching the TOML layout.
var orderedKeys = []string{
	"storage.provider",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.api_key",
	"embedding.cache_size",
	"llm.provider",
	"llm.target",
	"llm.model",
	"llm.api_key",
	"api.listen",
	"client.api_target",
	"engine.context_window",
	"engine.search_limit",
	"engine.owner_lock",
	"engine.redis_addr",
	"engine.reconcile_interval",
	"engine.reconcile_workers",
	"events.provider",
	"events.brokers",
	"events.topic",
	"events.nats_url",
}
