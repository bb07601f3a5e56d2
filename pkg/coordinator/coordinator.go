// Package coordinator is the recall engine. It keeps the structured store
// and the similarity index consistent across ingest, retrieval, deletion and
// repair, treating the structured store as the source of truth.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/eventstream/nop"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/ownerlock"
	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/understanding"
	"github.com/papercomputeco/recall/pkg/vector"
)

const (
	// DefaultContextWindow is how many recent records a decision sees.
	DefaultContextWindow = 5

	// DefaultSearchLimit applies when a caller asks for zero or fewer results.
	DefaultSearchLimit = 5

	// MaxSearchLimit caps every search.
	MaxSearchLimit = 20

	// DeleteSearchLimit is the candidate pool for DeleteByContent.
	DeleteSearchLimit = 3

	// DefaultDeleteReason is recorded when a caller gives no reason.
	DefaultDeleteReason = "user request"
)

// Config wires a Coordinator. Store, Index and Understander are required.
type Config struct {
	Store        storage.Driver
	Index        vector.Driver
	Understander understanding.Understander

	// Publisher receives lifecycle events after structured writes. Defaults
	// to a no-op publisher.
	Publisher eventstream.Publisher

	// Locker serializes ingest and delete per owner. Defaults to no locking.
	Locker ownerlock.Locker

	Logger *slog.Logger

	ContextWindow      int
	DefaultSearchLimit int
	MaxSearchLimit     int
}

// Coordinator orchestrates the structured store, the similarity index and
// language understanding.
type Coordinator struct {
	store      storage.Driver
	index      vector.Driver
	understand understanding.Understander
	publisher  eventstream.Publisher
	locker     ownerlock.Locker
	logger     *slog.Logger

	contextWindow int
	defaultLimit  int
	maxLimit      int
}

// New creates a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil || cfg.Index == nil || cfg.Understander == nil {
		return nil, fmt.Errorf("coordinator: store, index and understander are required: %w", memory.ErrNotConfigured)
	}

	c := &Coordinator{
		store:         cfg.Store,
		index:         cfg.Index,
		understand:    cfg.Understander,
		publisher:     cfg.Publisher,
		locker:        cfg.Locker,
		logger:        cfg.Logger,
		contextWindow: cfg.ContextWindow,
		defaultLimit:  cfg.DefaultSearchLimit,
		maxLimit:      cfg.MaxSearchLimit,
	}

	if c.publisher == nil {
		c.publisher = nop.NewPublisher()
	}
	if c.locker == nil {
		c.locker = ownerlock.Nop{}
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	if c.contextWindow <= 0 {
		c.contextWindow = DefaultContextWindow
	}
	if c.maxLimit <= 0 {
		c.maxLimit = MaxSearchLimit
	}
	if c.defaultLimit <= 0 {
		c.defaultLimit = DefaultSearchLimit
	}
	if c.defaultLimit > c.maxLimit {
		c.defaultLimit = c.maxLimit
	}

	return c, nil
}

// Store returns the structured store the coordinator writes to.
func (c *Coordinator) Store() storage.Driver {
	return c.store
}

// Close releases the publisher. Stores are owned by whoever built them.
func (c *Coordinator) Close() error {
	return c.publisher.Close()
}

// lock takes the owner's lock when one is configured.
func (c *Coordinator) lock(ctx context.Context, owner string) (ownerlock.Unlock, error) {
	unlock, err := c.locker.Lock(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("acquire owner lock: %w", err)
	}
	return unlock, nil
}

// publish emits an event. Delivery failures never fail the caller.
func (c *Coordinator) publish(ctx context.Context, event *eventstream.MemoryEvent) {
	if err := c.publisher.PublishMemoryEvent(ctx, event); err != nil {
		c.logger.Warn("failed to publish memory event",
			"event_type", event.EventType,
			"owner_id", event.OwnerID,
			"error", err,
		)
	}
}

// removeFromIndex drops id from the index. Failure leaves a stale entry
// that reads filter out and reconciliation removes later.
func (c *Coordinator) removeFromIndex(ctx context.Context, id, owner string) {
	if err := c.index.Delete(ctx, id, owner); err != nil {
		metrics.IndexWriteFailuresTotal.WithLabelValues("delete").Inc()
		c.logger.Warn("failed to remove memory from similarity index",
			"memory_id", id,
			"owner_id", owner,
			"error", err,
		)
	}
}

// addToIndex mirrors m into the index. Failure is accepted drift.
func (c *Coordinator) addToIndex(ctx context.Context, m *memory.Memory, embedding []float32) {
	err := c.index.Add(ctx, []vector.Document{{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Category:  string(m.Category),
		Embedding: embedding,
	}})
	if err != nil {
		metrics.IndexWriteFailuresTotal.WithLabelValues("add").Inc()
		c.logger.Warn("failed to add memory to similarity index",
			"memory_id", m.ID,
			"owner_id", m.OwnerID,
			"error", err,
		)
	}
}

func observe(op string) *prometheus.Timer {
	return prometheus.NewTimer(metrics.OperationDuration.WithLabelValues(op))
}

func elapsedSince(start time.Time) float64 {
	return time.Since(start).Seconds()
}
