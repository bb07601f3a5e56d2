package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. RECALL_API_LISTEN or RECALL_STORAGE_SQLITE_PATH.
const EnvPrefix = "RECALL"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the RECALL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RECALL_API_LISTEN, RECALL_LLM_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

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

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper values so
// commands see a single merged view of flags, env, file and defaults.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
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
			APIKey:     v.GetString("embedding.api_key"),
			CacheSize:  v.GetUint("embedding.cache_size"),
		},
		LLM: LLMConfig{
			Provider: v.GetString("llm.provider"),
			Target:   v.GetString("llm.target"),
			Model:    v.GetString("llm.model"),
			APIKey:   v.GetString("llm.api_key"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		Engine: EngineConfig{
			ContextWindow:     v.GetUint("engine.context_window"),
			SearchLimit:       v.GetUint("engine.search_limit"),
			OwnerLock:         v.GetString("engine.owner_lock"),
			RedisAddr:         v.GetString("engine.redis_addr"),
			ReconcileInterval: v.GetString("engine.reconcile_interval"),
			ReconcileWorkers:  v.GetUint("engine.reconcile_workers"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
			NATSURL:  v.GetString("events.nats_url"),
		},
	}
}

// ReconcileEvery parses the reconcile interval. Zero means periodic
// reconciliation is disabled.
func (e EngineConfig) ReconcileEvery() (time.Duration, error) {
	if e.ReconcileInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.ReconcileInterval)
	if err != nil {
		return 0, fmt.Errorf("parsing engine.reconcile_interval: %w", err)
	}
	return d, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)

	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("client.api_target", d.Client.APITarget)

	v.SetDefault("engine.context_window", d.Engine.ContextWindow)
	v.SetDefault("engine.search_limit", d.Engine.SearchLimit)
	v.SetDefault("engine.owner_lock", d.Engine.OwnerLock)
	v.SetDefault("engine.redis_addr", d.Engine.RedisAddr)
	v.SetDefault("engine.reconcile_interval", d.Engine.ReconcileInterval)
	v.SetDefault("engine.reconcile_workers", d.Engine.ReconcileWorkers)

	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
	v.SetDefault("events.nats_url", d.Events.NATSURL)
}
