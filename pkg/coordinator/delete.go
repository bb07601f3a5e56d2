package coordinator

import (
	"context"
	"strings"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
)

// DeleteByContent retires the owner's record that best matches text.
// Nothing matching yields *memory.NotFoundError and no mutation.
func (c *Coordinator) DeleteByContent(ctx context.Context, owner, text, reason string) (*DeleteResult, error) {
	timer := observe("delete")
	defer timer.ObserveDuration()

	if strings.TrimSpace(owner) == "" {
		return nil, &memory.ValidationError{Field: "owner_id", Message: "owner is required"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &memory.ValidationError{Field: "text", Message: "text is empty"}
	}
	reason = reasonOr(reason, DefaultDeleteReason)

	unlock, err := c.lock(ctx, owner)
	if err != nil {
		return nil, err
	}
	defer unlock()

	hits, _, err := c.retrieve(ctx, owner, text, DeleteSearchLimit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, &memory.NotFoundError{OwnerID: owner, Target: text}
	}

	target := hits[0].Memory
	ctx = context.WithoutCancel(ctx)

	retired, err := c.retire(ctx, target, storage.RetireOptions{
		Reason:           reason,
		RelationshipType: memory.RelationshipRetired,
	})
	if err != nil {
		return nil, err
	}
	if !retired {
		return nil, &memory.NotFoundError{OwnerID: owner, Target: text}
	}

	c.logger.Info("memory retired",
		"owner_id", owner,
		"memory_id", target.ID,
		"reason", reason,
	)

	return &DeleteResult{
		Success:        true,
		DeletedID:      target.ID,
		DeletedContent: target.Content,
		Reason:         reason,
	}, nil
}
