// Package cached wraps an embeddings.Embedder with an in-process ristretto
// cache keyed by input text.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/papercomputeco/recall/pkg/embeddings"
)

// Embedder memoizes embeddings from an inner Embedder.
type Embedder struct {
	inner embeddings.Embedder
	cache *ristretto.Cache
}

// New wraps inner with a cache holding up to size entries.
func New(inner embeddings.Embedder, size uint) (*Embedder, error) {
	if inner == nil {
		return nil, fmt.Errorf("cached embedder requires an inner embedder")
	}
	if size == 0 {
		return nil, fmt.Errorf("cached embedder requires a positive size")
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(size) * 10,
		MaxCost:     int64(size),
		BufferItems: 64,

		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}

	return &Embedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached embedding for text, computing it on a miss.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if emb, ok := e.lookup(text); ok {
		return emb, nil
	}

	emb, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.store(text, emb)
	e.cache.Wait()
	return emb, nil
}

// EmbedBatch serves hits from the cache and sends only the misses to the
// inner embedder, in one batch.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, t := range texts {
		if emb, ok := e.lookup(t); ok {
			out[i] = emb
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	embs, err := e.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(embs) != len(missing) {
		return nil, fmt.Errorf("inner embedder returned %d embeddings for %d inputs", len(embs), len(missing))
	}

	for j, emb := range embs {
		out[missingIdx[j]] = emb
		// nil marks a text the inner embedder could not embed.
		if emb != nil {
			e.store(missing[j], emb)
		}
	}
	e.cache.Wait()
	return out, nil
}

// Close closes the cache and the inner embedder.
func (e *Embedder) Close() error {
	e.cache.Close()
	return e.inner.Close()
}

func (e *Embedder) lookup(text string) ([]float32, bool) {
	v, ok := e.cache.Get(text)
	if !ok {
		return nil, false
	}
	emb, ok := v.([]float32)
	if !ok {
		return nil, false
	}
	return append([]float32(nil), emb...), true
}

func (e *Embedder) store(text string, emb []float32) {
	e.cache.Set(text, append([]float32(nil), emb...), 1)
}

var _ embeddings.Embedder = (*Embedder)(nil)
