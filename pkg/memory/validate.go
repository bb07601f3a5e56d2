package memory

import (
	"math"
	"strings"
)

// ValidateCandidate turns a raw Candidate into a Memory ready to persist.
//
// Content must be non-empty after trimming. Confidence is clamped into
// [0, 1] (NaN becomes 0), the category is normalized to the closed enum, and
// tags are trimmed and deduplicated keeping first-seen order. The returned
// Memory has no ID or CreatedAt; those are assigned by the caller.
func ValidateCandidate(ownerID, conversationID string, c *Candidate) (*Memory, error) {
	if c == nil {
		return nil, &ValidationError{Field: "candidate", Message: "missing candidate"}
	}

	if strings.TrimSpace(ownerID) == "" {
		return nil, &ValidationError{Field: "owner_id", Message: "owner is required"}
	}

	content := strings.TrimSpace(c.Content)
	if content == "" {
		return nil, &ValidationError{Field: "content", Message: "content is empty"}
	}

	return &Memory{
		OwnerID:        ownerID,
		Content:        content,
		Category:       NormalizeCategory(c.Category),
		Confidence:     ClampConfidence(c.Confidence),
		ConversationID: conversationID,
		Tags:           DedupeTags(c.Tags),
		Active:         true,
	}, nil
}

// ClampConfidence forces v into [0, 1].
func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// DedupeTags trims tags, drops empties and duplicates, and keeps first-seen order.
func DedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
