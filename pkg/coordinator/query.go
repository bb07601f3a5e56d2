package coordinator

import (
	"context"
	"strings"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
)

// ListMemories returns the owner's active records, newest first. An empty
// category lists everything; an unknown one is read as "other".
func (c *Coordinator) ListMemories(ctx context.Context, owner, category string, limit int) (*ListResult, error) {
	opts := storage.ListOptions{Limit: max(limit, 0)}
	if strings.TrimSpace(category) != "" {
		opts.Category = memory.NormalizeCategory(category)
	}

	records, err := c.store.List(ctx, owner, opts)
	if err != nil {
		return nil, storageErr("list", err)
	}

	return &ListResult{Records: records, Count: len(records)}, nil
}

// Stats aggregates the owner's active records and compares the count with
// the similarity index. A mismatch is reported as a DriftWarning, never as
// an error.
func (c *Coordinator) Stats(ctx context.Context, owner string) (*StatsResult, error) {
	timer := observe("stats")
	defer timer.ObserveDuration()

	agg, err := c.store.Stats(ctx, owner)
	if err != nil {
		return nil, storageErr("stats", err)
	}

	indexCount, err := c.index.Count(ctx, owner)
	if err != nil {
		c.logger.Warn("failed to count similarity index entries", "owner_id", owner, "error", err)
		indexCount = -1
	}

	result := &StatsResult{
		Count:         agg.Count,
		PerCategory:   agg.PerCategory,
		AvgConfidence: agg.AvgConfidence,
		IndexCount:    indexCount,
		InSync:        agg.Count == indexCount,
	}

	if !result.InSync {
		result.Drift = &memory.DriftWarning{
			OwnerID:         owner,
			StructuredCount: agg.Count,
			IndexCount:      indexCount,
		}
		c.logger.Warn("stores out of sync",
			"owner_id", owner,
			"structured_count", agg.Count,
			"index_count", indexCount,
		)
	}

	return result, nil
}

// History returns the owner's retirement log, oldest first.
func (c *Coordinator) History(ctx context.Context, owner string) ([]memory.RetirementEvent, error) {
	events, err := c.store.RetirementEvents(ctx, owner)
	if err != nil {
		return nil, storageErr("history", err)
	}
	return events, nil
}

// HealthCheck pings every dependency. It never fails; the verdict is in
// the report.
func (c *Coordinator) HealthCheck(ctx context.Context) *HealthReport {
	deps := map[string]bool{
		DependencyStore:         c.ping(ctx, DependencyStore, c.store.Ping),
		DependencyIndex:         c.ping(ctx, DependencyIndex, c.index.Ping),
		DependencyUnderstanding: c.ping(ctx, DependencyUnderstanding, c.understand.Ping),
	}

	up := 0
	for _, ok := range deps {
		if ok {
			up++
		}
	}

	overall := HealthPartial
	switch up {
	case len(deps):
		overall = HealthHealthy
	case 0:
		overall = HealthFailed
	}

	report := &HealthReport{Dependencies: deps, Overall: overall}
	if deps[DependencyIndex] {
		stats, err := c.index.Stats(ctx)
		if err != nil {
			c.logger.Warn("failed to read similarity index stats", "error", err)
		} else {
			report.IndexStats = stats
		}
	}
	return report
}

func (c *Coordinator) ping(ctx context.Context, name string, fn func(context.Context) error) bool {
	if err := fn(ctx); err != nil {
		c.logger.Warn("dependency unhealthy", "dependency", name, "error", err)
		return false
	}
	return true
}
