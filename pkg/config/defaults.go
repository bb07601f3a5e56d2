package config

const (
	defaultStorageProvider = "sqlite"
	defaultVectorProvider  = "chromem"
	defaultCollection      = "recall_memories"

	defaultOllamaTarget        = "http://localhost:11434"
	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingCacheSize  = 10000

	defaultLLMProvider = "ollama"
	defaultLLMModel    = "gemma3"

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultContextWindow    = 5
	defaultSearchLimit      = 5
	defaultOwnerLock        = "none"
	defaultRedisAddr        = "localhost:6379"
	defaultReconcileWorkers = 4

	defaultEventsProvider = "nop"
	defaultEventsBrokers  = "localhost:9092"
	defaultEventsTopic    = "recall.memories"
	defaultNATSURL        = "nats://localhost:4222"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			CacheSize:  defaultEmbeddingCacheSize,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultOllamaTarget,
			Model:    defaultLLMModel,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Engine: EngineConfig{
			ContextWindow:    defaultContextWindow,
			SearchLimit:      defaultSearchLimit,
			OwnerLock:        defaultOwnerLock,
			RedisAddr:        defaultRedisAddr,
			ReconcileWorkers: defaultReconcileWorkers,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Brokers:  defaultEventsBrokers,
			Topic:    defaultEventsTopic,
			NATSURL:  defaultNATSURL,
		},
	}
}
