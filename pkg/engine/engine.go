// Package engine assembles a coordinator from configuration: the structured
// store, the similarity index, the language model and embedder, the event
// publisher and the optional owner lock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/coordinator"
	"github.com/papercomputeco/recall/pkg/credentials"
	embeddingutils "github.com/papercomputeco/recall/pkg/embeddings/utils"
	eventstreamutils "github.com/papercomputeco/recall/pkg/eventstream/utils"
	llmutils "github.com/papercomputeco/recall/pkg/llm/utils"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/ownerlock"
	ownerlockredis "github.com/papercomputeco/recall/pkg/ownerlock/redis"
	storageutils "github.com/papercomputeco/recall/pkg/storage/utils"
	"github.com/papercomputeco/recall/pkg/understanding"
	vectorutils "github.com/papercomputeco/recall/pkg/vector/utils"
)

// Engine is a wired coordinator plus the resources it owns.
type Engine struct {
	Coordinator *coordinator.Coordinator

	closers []func() error
	logger  *slog.Logger
}

// Build wires every component named by cfg. dataDir is where file-backed
// stores live when no explicit path is configured. On error, anything
// already opened is closed.
func Build(ctx context.Context, cfg *config.Config, dataDir string, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = logger.Nop()
	}

	e := &Engine{logger: log}
	coord, err := e.build(ctx, cfg, dataDir)
	if err != nil {
		_ = e.Close()
		return nil, err
	}

	e.Coordinator = coord
	return e, nil
}

func (e *Engine) build(ctx context.Context, cfg *config.Config, dataDir string) (*coordinator.Coordinator, error) {
	store, err := storageutils.NewStorageDriver(ctx, &storageutils.NewStorageDriverOpts{
		ProviderType: cfg.Storage.Provider,
		SQLitePath:   cfg.Storage.SQLitePath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
		DataDir:      dataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("creating structured store: %w", err)
	}
	e.closers = append(e.closers, store.Close)
	e.logger.Info("using structured store", "provider", cfg.Storage.Provider)

	index, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		DataDir:      dataDir,
		Logger:       e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating similarity index: %w", err)
	}
	e.closers = append(e.closers, index.Close)
	e.logger.Info("using similarity index", "provider", cfg.VectorStore.Provider)

	embeddingKey, err := resolveKey(dataDir, cfg.Embedding.Provider, cfg.Embedding.APIKey)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       embeddingKey,
		Dimensions:   cfg.Embedding.Dimensions,
		CacheSize:    cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	e.closers = append(e.closers, embedder.Close)

	llmKey, err := resolveKey(dataDir, cfg.LLM.Provider, cfg.LLM.APIKey)
	if err != nil {
		return nil, err
	}

	completer, err := llmutils.NewCompleter(&llmutils.NewCompleterOpts{
		ProviderType: cfg.LLM.Provider,
		TargetURL:    cfg.LLM.Target,
		Model:        cfg.LLM.Model,
		APIKey:       llmKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm completer: %w", err)
	}

	understander, err := understanding.New(understanding.Config{
		Completer:  completer,
		Embedder:   embedder,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     e.logger,
	})
	if err != nil {
		return nil, err
	}

	publisher, err := eventstreamutils.NewPublisher(ctx, &eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.Brokers,
		Topic:        cfg.Events.Topic,
		NATSURL:      cfg.Events.NATSURL,
		Logger:       e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	locker, err := e.newLocker(ctx, cfg.Engine)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	// The coordinator owns the publisher once it exists.
	coord, err := coordinator.New(coordinator.Config{
		Store:              store,
		Index:              index,
		Understander:       understander,
		Publisher:          publisher,
		Locker:             locker,
		Logger:             e.logger,
		ContextWindow:      int(cfg.Engine.ContextWindow),
		DefaultSearchLimit: int(cfg.Engine.SearchLimit),
	})
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}
	return coord, nil
}

func (e *Engine) newLocker(ctx context.Context, cfg config.EngineConfig) (ownerlock.Locker, error) {
	switch cfg.OwnerLock {
	case "none", "":
		return ownerlock.Nop{}, nil
	case "local":
		return ownerlock.NewLocal(), nil
	case "redis":
		client, err := ownerlockredis.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("creating redis owner lock: %w", err)
		}
		e.closers = append(e.closers, client.Close)
		return ownerlockredis.New(goredis.Cmdable(client), ownerlockredis.Config{}, e.logger), nil
	default:
		return nil, fmt.Errorf("unsupported owner lock: %s", cfg.OwnerLock)
	}
}

// Close shuts the coordinator down, then releases everything else Build
// opened, newest first.
func (e *Engine) Close() error {
	var errs []error
	if e.Coordinator != nil {
		if err := e.Coordinator.Close(); err != nil {
			errs = append(errs, err)
		}
		e.Coordinator = nil
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// resolveKey fills in a hosted provider's API key from the environment or
// the credentials stored under dataDir when the config leaves it empty.
func resolveKey(dataDir, provider, configured string) (string, error) {
	if configured != "" || dataDir == "" || !credentials.IsSupportedProvider(provider) {
		return configured, nil
	}

	mgr, err := credentials.NewManager(dataDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	key, err := mgr.ResolveKey(provider, configured)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	return key, nil
}
