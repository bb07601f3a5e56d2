package coordinator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/storage"
)

const supersededReason = "superseded by newer information"

// ProcessMessage decides whether text holds a fact worth remembering and,
// if so, persists it to the structured store and then the similarity index.
//
// Validation and embedding failures return before anything is written. Once
// the first write starts the call runs to completion even if ctx is
// canceled; a later failure is not rolled back.
func (c *Coordinator) ProcessMessage(ctx context.Context, owner, text, conversationID string) (*IngestResult, error) {
	timer := observe("ingest")
	defer timer.ObserveDuration()
	start := time.Now()

	if strings.TrimSpace(owner) == "" {
		return nil, &memory.ValidationError{Field: "owner_id", Message: "owner is required"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &memory.ValidationError{Field: "text", Message: "text is empty"}
	}

	unlock, err := c.lock(ctx, owner)
	if err != nil {
		return nil, err
	}
	defer unlock()

	recent, err := c.store.List(ctx, owner, storage.ListOptions{Limit: c.contextWindow})
	if err != nil {
		return nil, storageErr("list", err)
	}

	decision := c.decide(ctx, owner, text, contents(recent))

	if decision.Action == memory.ActionIgnore {
		metrics.IngestTotal.WithLabelValues(string(memory.ActionIgnore)).Inc()
		c.logger.Debug("message ignored", "owner_id", owner, "reasoning", decision.Reasoning)
		return &IngestResult{
			Success:        true,
			Records:        []*memory.Memory{},
			ElapsedSeconds: elapsedSince(start),
			Action:         memory.ActionIgnore,
		}, nil
	}

	record, err := memory.ValidateCandidate(owner, conversationID, decision.Candidate)
	if err != nil {
		return nil, err
	}

	embedding, err := c.understand.Embed(ctx, record.Content)
	if err != nil {
		return nil, err
	}

	record.ID = uuid.NewString()
	// Microsecond precision is what the SQL stores keep, so the record
	// returned here matches a later read.
	record.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	// Writes from here on are not abandoned halfway.
	ctx = context.WithoutCancel(ctx)

	action := decision.Action
	var retiredID string

	if action == memory.ActionUpdate {
		target := findByHint(recent, decision.OldContentHint)
		if target == nil {
			c.logger.Info("no record matched update hint, inserting as new",
				"owner_id", owner,
				"hint", decision.OldContentHint,
			)
			action = memory.ActionAdd
		} else {
			retired, err := c.retire(ctx, target, storage.RetireOptions{
				Reason:           reasonOr(decision.Reasoning, supersededReason),
				RelationshipType: memory.RelationshipSuperseded,
				RelatedMemoryID:  record.ID,
			})
			switch {
			case err == nil && retired:
				retiredID = target.ID
			case err == nil:
				// Retired concurrently by another caller.
				action = memory.ActionAdd
			default:
				return nil, err
			}
		}
	}

	if err := c.store.Save(ctx, record); err != nil {
		return nil, storageErr("save", err)
	}

	c.addToIndex(ctx, record, embedding)
	c.publish(ctx, eventstream.NewMemoryCreated(record))

	metrics.IngestTotal.WithLabelValues(string(action)).Inc()
	c.logger.Info("memory stored",
		"owner_id", owner,
		"memory_id", record.ID,
		"action", string(action),
		"retired_id", retiredID,
		"fallback", decision.Fallback,
	)

	return &IngestResult{
		Success:        true,
		ExtractedCount: 1,
		Records:        []*memory.Memory{record.Clone()},
		ElapsedSeconds: elapsedSince(start),
		Action:         action,
		RetiredID:      retiredID,
		Fallback:       decision.Fallback,
	}, nil
}

// decide asks language understanding for a decision and falls back to a
// low-confidence ADD when it can't give a usable one.
func (c *Coordinator) decide(ctx context.Context, owner, text string, recent []string) *memory.Decision {
	decision, err := c.understand.Decide(ctx, text, recent)
	if err == nil && decision != nil {
		return decision
	}

	metrics.FallbackDecisionsTotal.Inc()
	c.logger.Warn("memory decision unavailable, using fallback",
		"owner_id", owner,
		"error", err,
	)
	return memory.FallbackDecision(text)
}

// retire marks target inactive in the store, then drops it from the index.
// It reports false with no error when the store no longer has the record
// active.
func (c *Coordinator) retire(ctx context.Context, target *memory.Memory, opts storage.RetireOptions) (bool, error) {
	opts = opts.Normalize()

	err := c.store.Retire(ctx, target.ID, target.OwnerID, opts)
	if memory.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("retire", err)
	}

	metrics.RetirementsTotal.WithLabelValues(string(opts.RelationshipType)).Inc()

	c.removeFromIndex(ctx, target.ID, target.OwnerID)
	c.publish(ctx, eventstream.NewMemoryRetired(target.OwnerID, memory.RetirementEvent{
		ID:               uuid.NewString(),
		MemoryID:         target.ID,
		RelatedMemoryID:  opts.RelatedMemoryID,
		RelationshipType: opts.RelationshipType,
		Reason:           opts.Reason,
		CreatedAt:        time.Now().UTC(),
	}))

	return true, nil
}

// findByHint returns the newest record whose content contains, or is
// contained by, hint. Matching ignores case.
func findByHint(recent []*memory.Memory, hint string) *memory.Memory {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return nil
	}

	for _, m := range recent {
		content := strings.ToLower(m.Content)
		if strings.Contains(content, h) || strings.Contains(h, content) {
			return m
		}
	}
	return nil
}

func contents(records []*memory.Memory) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Content)
	}
	return out
}

func reasonOr(reason, fallback string) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	return fallback
}

// storageErr keeps typed store errors intact and tags anything else.
func storageErr(op string, err error) error {
	var serr *memory.StorageError
	if errors.As(err, &serr) || memory.IsNotFound(err) {
		return err
	}
	return storage.Wrap(op, err)
}
