package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// (e.g. --api-target on every client command) can't drift between commands.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "api.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen       = "listen"
	FlagAPITarget       = "api-target"
	FlagStorageProv     = "storage-provider"
	FlagSQLite          = "sqlite"
	FlagPostgresDSN     = "postgres-dsn"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagLLMProv         = "llm-provider"
	FlagLLMTarget       = "llm-target"
	FlagLLMModel        = "llm-model"
	FlagOwnerLock       = "owner-lock"
	FlagEventsProv      = "events-provider"
	FlagReconcileEvery  = "reconcile-interval"
	FlagSearchLimit     = "limit"
)

// Flags is the registry shared by every recall command.
var Flags = FlagSet{
	FlagAPIListen:       {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:       {Name: "api-target", ViperKey: "client.api_target", Description: "recall API server URL"},
	FlagStorageProv:     {Name: "storage-provider", ViperKey: "storage.provider", Description: "Structured store provider (sqlite, postgres, memory)"},
	FlagSQLite:          {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite database (default: .recall/recall.sqlite)"},
	FlagPostgresDSN:     {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Similarity index provider (chromem, sqlite, chroma, qdrant, pgvector)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Similarity index target (URL, DSN or file path)"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama, openai)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagLLMProv:         {Name: "llm-provider", ViperKey: "llm.provider", Description: "Chat provider (ollama, openai, anthropic)"},
	FlagLLMTarget:       {Name: "llm-target", ViperKey: "llm.target", Description: "Chat provider URL"},
	FlagLLMModel:        {Name: "llm-model", ViperKey: "llm.model", Description: "Chat model name"},
	FlagOwnerLock:       {Name: "owner-lock", ViperKey: "engine.owner_lock", Description: "Serialize writes per owner (none, local, redis)"},
	FlagEventsProv:      {Name: "events-provider", ViperKey: "events.provider", Description: "Event stream provider (nop, kafka, nats)"},
	FlagReconcileEvery:  {Name: "reconcile-interval", ViperKey: "engine.reconcile_interval", Description: "Run reconciliation on this interval (e.g. 10m); empty disables"},
	FlagSearchLimit:     {Name: "limit", Shorthand: "n", ViperKey: "engine.search_limit", Description: "Maximum number of results (capped at 20)"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// DriverFlagKeys are the flags of every command that builds the engine
// in-process rather than talking to a running server.
var DriverFlagKeys = []string{
	FlagStorageProv,
	FlagSQLite,
	FlagPostgresDSN,
	FlagVectorStoreProv,
	FlagVectorStoreTgt,
	FlagEmbeddingProv,
	FlagEmbeddingTgt,
	FlagEmbeddingModel,
	FlagEmbeddingDims,
	FlagLLMProv,
	FlagLLMTarget,
	FlagLLMModel,
	FlagOwnerLock,
	FlagEventsProv,
}

// AddDriverFlags registers DriverFlagKeys on cmd. Their values are read
// back through viper after BindRegisteredFlags, so the flag targets are
// not kept.
func AddDriverFlags(cmd *cobra.Command) {
	for _, key := range DriverFlagKeys {
		if key == FlagEmbeddingDims {
			AddUintFlag(cmd, Flags, key, new(uint))
			continue
		}
		AddStringFlag(cmd, Flags, key, new(string))
	}
}
