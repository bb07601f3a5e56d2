package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/understanding"
)

// SearchMemories finds the owner's records most similar to query and
// phrases an answer from them. Index hits that no longer hydrate from the
// structured store are dropped and counted.
func (c *Coordinator) SearchMemories(ctx context.Context, owner, query string, limit int) (*SearchResult, error) {
	timer := observe("search")
	defer timer.ObserveDuration()
	start := time.Now()

	if strings.TrimSpace(owner) == "" {
		return nil, &memory.ValidationError{Field: "owner_id", Message: "owner is required"}
	}

	records, dropped, err := c.retrieve(ctx, owner, query, c.clampLimit(limit))
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	response := c.synthesize(ctx, owner, query, records)

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	c.logger.Debug("memories searched",
		"owner_id", owner,
		"found", len(records),
		"stale_dropped", dropped,
	)

	return &SearchResult{
		Success:        true,
		Records:        records,
		Response:       response,
		ElapsedSeconds: elapsedSince(start),
		TotalFound:     len(records),
		StaleDropped:   dropped,
	}, nil
}

// retrieve embeds query, ranks the owner's index entries and hydrates each
// hit from the structured store, preserving index order.
func (c *Coordinator) retrieve(ctx context.Context, owner, query string, limit int) ([]*memory.ScoredMemory, int, error) {
	embedding, err := c.understand.Embed(ctx, query)
	if err != nil {
		return nil, 0, &SearchError{Query: query, Err: err}
	}

	hits, err := c.index.Query(ctx, owner, embedding, limit)
	if err != nil {
		return nil, 0, &SearchError{Query: query, Err: err}
	}

	records := make([]*memory.ScoredMemory, 0, len(hits))
	dropped := 0
	for _, hit := range hits {
		m, err := c.store.Get(ctx, hit.ID, owner)
		if err != nil {
			dropped++
			metrics.StaleHitsDroppedTotal.Inc()
			c.logger.Debug("dropping stale index hit",
				"owner_id", owner,
				"memory_id", hit.ID,
				"error", err,
			)
			continue
		}
		records = append(records, &memory.ScoredMemory{
			Memory:     m,
			Similarity: float64(hit.Score),
		})
	}

	return records, dropped, nil
}

// synthesize phrases an answer, falling back to a plain listing when the
// model is unavailable.
func (c *Coordinator) synthesize(ctx context.Context, owner, query string, records []*memory.ScoredMemory) string {
	if len(records) == 0 {
		return understanding.NoMemoriesResponse
	}

	facts := make([]string, 0, len(records))
	for _, r := range records {
		facts = append(facts, r.Content)
	}

	response, err := c.understand.Synthesize(ctx, query, facts)
	if err != nil || strings.TrimSpace(response) == "" {
		c.logger.Warn("synthesis unavailable, using fallback", "owner_id", owner, "error", err)
		return understanding.FallbackSynthesis(facts)
	}
	return response
}

func (c *Coordinator) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return c.defaultLimit
	case limit > c.maxLimit:
		return c.maxLimit
	default:
		return limit
	}
}
