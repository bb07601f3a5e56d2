// Package chromem provides an embedded, in-process vector driver backed by
// chromem-go. It keeps one collection per owner, so the owner filter is
// applied by construction before any similarity is computed.
package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/papercomputeco/recall/pkg/vector"
)

// DefaultCollectionPrefix prefixes every per-owner collection name.
const DefaultCollectionPrefix = "recall"

// Config holds configuration for the chromem driver.
type Config struct {
	// CollectionPrefix is prepended to each owner's collection name.
	CollectionPrefix string

	// Dimensions, when set, is enforced on every Add and Query.
	Dimensions uint
}

// Driver implements vector.Driver with chromem-go.
type Driver struct {
	db     *chromemgo.DB
	prefix string
	dims   uint
	logger *slog.Logger

	// mu guards collections and docs
	mu sync.RWMutex

	// collections is keyed by owner ID
	collections map[string]*chromemgo.Collection

	// docs mirrors every stored document by ID so Get, Delete and Count
	// don't need an embedding to find it.
	docs map[string]vector.Document
}

// NewDriver creates an empty in-memory chromem index.
func NewDriver(c Config, logger *slog.Logger) *Driver {
	prefix := c.CollectionPrefix
	if prefix == "" {
		prefix = DefaultCollectionPrefix
	}

	logger.Info("chromem vector driver initialized", "prefix", prefix, "dimensions", c.Dimensions)

	return &Driver{
		db:          chromemgo.NewDB(),
		prefix:      prefix,
		dims:        c.Dimensions,
		logger:      logger,
		collections: make(map[string]*chromemgo.Collection),
		docs:        make(map[string]vector.Document),
	}
}

// collection returns the owner's collection, creating it when create is set.
// Callers must hold mu for writing when create is true.
func (d *Driver) collection(owner string, create bool) (*chromemgo.Collection, error) {
	if col, ok := d.collections[owner]; ok {
		return col, nil
	}
	if !create {
		return nil, nil
	}

	// No embedding func: embeddings are always supplied by the caller.
	col, err := d.db.CreateCollection(fmt.Sprintf("%s_%s", d.prefix, owner), map[string]string{"owner_id": owner}, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection for %s: %w", owner, err)
	}
	d.collections[owner] = col
	return col, nil
}

// Add stores documents with their embeddings, replacing any with the same ID.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	for _, doc := range docs {
		if err := vector.CheckDimensions(d.dims, doc.Embedding); err != nil {
			return fmt.Errorf("doc %s: %w", doc.ID, err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, doc := range docs {
		if prev, ok := d.docs[doc.ID]; ok {
			if err := d.remove(ctx, prev); err != nil {
				return err
			}
		}

		col, err := d.collection(doc.OwnerID, true)
		if err != nil {
			return err
		}

		emb := append([]float32(nil), doc.Embedding...)
		err = col.AddDocument(ctx, chromemgo.Document{
			ID:        doc.ID,
			Metadata:  map[string]string{"owner_id": doc.OwnerID, "category": doc.Category},
			Embedding: emb,
		})
		if err != nil {
			return fmt.Errorf("add document %s: %w", doc.ID, err)
		}

		doc.Embedding = emb
		d.docs[doc.ID] = doc
	}

	d.logger.Debug("added documents to chromem", "count", len(docs))
	return nil
}

// Query finds the topK documents of owner most similar to the embedding.
func (d *Driver) Query(ctx context.Context, owner string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if err := vector.CheckDimensions(d.dims, embedding); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	col, _ := d.collection(owner, false)
	if col == nil || topK <= 0 {
		return []vector.QueryResult{}, nil
	}

	// chromem-go requires nResults <= collection size.
	n := min(topK, col.Count())
	if n == 0 {
		return []vector.QueryResult{}, nil
	}

	res, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(res))
	for _, r := range res {
		results = append(results, vector.QueryResult{
			Document: vector.Document{
				ID:        r.ID,
				OwnerID:   owner,
				Category:  r.Metadata["category"],
				Embedding: r.Embedding,
			},
			Score: r.Similarity,
		})
	}

	d.logger.Debug("queried chromem", "owner_id", owner, "results", len(results))
	return results, nil
}

// Get retrieves documents by their IDs, skipping unknown ones.
func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	docs := make([]vector.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := d.docs[id]; ok {
			doc.Embedding = append([]float32(nil), doc.Embedding...)
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Delete removes one document owned by owner.
func (d *Driver) Delete(ctx context.Context, id, owner string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.docs[id]
	if !ok || doc.OwnerID != owner {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	return d.remove(ctx, doc)
}

// remove drops doc from its collection and the mirror. Callers hold mu.
func (d *Driver) remove(ctx context.Context, doc vector.Document) error {
	if col, ok := d.collections[doc.OwnerID]; ok {
		if err := col.Delete(ctx, nil, nil, doc.ID); err != nil {
			return fmt.Errorf("delete document %s: %w", doc.ID, err)
		}
	}
	delete(d.docs, doc.ID)
	return nil
}

// Count returns the number of documents for owner, or all when owner is empty.
func (d *Driver) Count(_ context.Context, owner string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if owner == "" {
		return len(d.docs), nil
	}
	col, ok := d.collections[owner]
	if !ok {
		return 0, nil
	}
	return col.Count(), nil
}

// Stats summarizes the whole index.
func (d *Driver) Stats(_ context.Context) (*vector.Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := &vector.Stats{Total: len(d.docs)}
	for _, col := range d.collections {
		if col.Count() > 0 {
			stats.Owners++
		}
	}
	return stats, nil
}

// Ping always succeeds for the embedded index.
func (d *Driver) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op, chromem keeps everything in memory.
func (d *Driver) Close() error {
	return nil
}
