package coordinator

import (
	"context"
	"fmt"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/worker"
)

// Reconcile repairs the owner's similarity index from the structured store:
// active records missing from the index are re-embedded and added, and
// entries of retired records are removed. The structured store is only read.
func (c *Coordinator) Reconcile(ctx context.Context, owner string) (*ReconcileReport, error) {
	timer := observe("reconcile")
	defer timer.ObserveDuration()

	report := &ReconcileReport{OwnerID: owner}

	active, err := c.store.List(ctx, owner, storage.ListOptions{})
	if err != nil {
		return nil, storageErr("list", err)
	}

	if err := c.reindexMissing(ctx, active, report); err != nil {
		return nil, err
	}

	events, err := c.store.RetirementEvents(ctx, owner)
	if err != nil {
		return nil, storageErr("history", err)
	}
	if err := c.removeRetired(ctx, owner, events, report); err != nil {
		return nil, err
	}

	c.logger.Info("reconciled similarity index",
		"owner_id", owner,
		"reindexed", report.Reindexed,
		"removed", report.Removed,
		"failed", report.Failed,
	)
	return report, nil
}

func (c *Coordinator) reindexMissing(ctx context.Context, active []*memory.Memory, report *ReconcileReport) error {
	if len(active) == 0 {
		return nil
	}

	ids := make([]string, 0, len(active))
	for _, m := range active {
		ids = append(ids, m.ID)
	}

	indexed, err := c.index.Get(ctx, ids)
	if err != nil {
		return fmt.Errorf("read similarity index: %w", err)
	}

	present := make(map[string]struct{}, len(indexed))
	for _, d := range indexed {
		present[d.ID] = struct{}{}
	}

	var missing []*memory.Memory
	for _, m := range active {
		if _, ok := present[m.ID]; !ok {
			missing = append(missing, m)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	texts := make([]string, len(missing))
	for i, m := range missing {
		texts[i] = m.Content
	}

	embeddings, err := c.understand.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	docs := make([]vector.Document, 0, len(missing))
	for i, m := range missing {
		if i >= len(embeddings) || embeddings[i] == nil {
			report.Failed++
			c.logger.Warn("could not embed memory for reindex", "owner_id", m.OwnerID, "memory_id", m.ID)
			continue
		}
		docs = append(docs, vector.Document{
			ID:        m.ID,
			OwnerID:   m.OwnerID,
			Category:  string(m.Category),
			Embedding: embeddings[i],
		})
	}
	if len(docs) == 0 {
		return nil
	}

	if err := c.index.Add(ctx, docs); err != nil {
		metrics.IndexWriteFailuresTotal.WithLabelValues("reconcile").Inc()
		report.Failed += len(docs)
		c.logger.Warn("failed to reindex memories", "count", len(docs), "error", err)
		return nil
	}

	report.Reindexed = len(docs)
	metrics.ReconciledTotal.WithLabelValues("reindex").Add(float64(len(docs)))
	return nil
}

func (c *Coordinator) removeRetired(ctx context.Context, owner string, events []memory.RetirementEvent, report *ReconcileReport) error {
	if len(events) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if _, ok := seen[e.MemoryID]; ok {
			continue
		}
		seen[e.MemoryID] = struct{}{}
		ids = append(ids, e.MemoryID)
	}

	stale, err := c.index.Get(ctx, ids)
	if err != nil {
		return fmt.Errorf("read similarity index: %w", err)
	}

	for _, doc := range stale {
		if doc.OwnerID != owner {
			continue
		}
		if err := c.index.Delete(ctx, doc.ID, owner); err != nil {
			report.Failed++
			c.logger.Warn("failed to remove retired memory from index", "owner_id", owner, "memory_id", doc.ID, "error", err)
			continue
		}
		report.Removed++
	}

	metrics.ReconciledTotal.WithLabelValues("remove").Add(float64(report.Removed))
	return nil
}

// ReconcileAll reconciles every owner the structured store knows of on a
// pool of workers. Per-owner failures are logged and counted, not returned.
func (c *Coordinator) ReconcileAll(ctx context.Context, workers uint) (*ReconcileSummary, error) {
	owners, err := c.store.Owners(ctx)
	if err != nil {
		return nil, storageErr("owners", err)
	}

	summary := &ReconcileSummary{Owners: len(owners)}
	if len(owners) == 0 {
		return summary, nil
	}

	results := make(chan *ReconcileReport, len(owners))
	pool, err := worker.NewPool(ctx, &worker.Config{
		Handler: func(ctx context.Context, job worker.Job) error {
			report, err := c.Reconcile(ctx, job.OwnerID)
			if err != nil {
				return err
			}
			results <- report
			return nil
		},
		NumWorkers: workers,
		QueueSize:  uint(len(owners)),
		Logger:     c.logger,
	})
	if err != nil {
		return nil, err
	}

	for _, owner := range owners {
		if err := pool.Submit(ctx, worker.Job{OwnerID: owner}); err != nil {
			pool.Close()
			return nil, err
		}
	}
	pool.Close()
	close(results)

	for r := range results {
		summary.Reindexed += r.Reindexed
		summary.Removed += r.Removed
		summary.Failed += r.Failed
	}
	summary.FailedOwners = int(pool.Failed())

	return summary, nil
}

// ReconcileSummary totals ReconcileAll across owners.
type ReconcileSummary struct {
	Owners       int `json:"owners"`
	FailedOwners int `json:"failed_owners"`
	Reindexed    int `json:"reindexed"`
	Removed      int `json:"removed"`
	Failed       int `json:"failed"`
}
