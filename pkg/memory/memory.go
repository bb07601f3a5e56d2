// Package memory defines the domain model of the recall engine.
//
// A Memory is a single durable fact about an owner (a user), extracted from
// conversational text. Memories are never edited in place: superseding a fact
// creates a new record and retires the old one, leaving a RetirementEvent in
// an append-only audit log.
package memory

import "time"

// Memory is a single persisted fact about an owner.
type Memory struct {
	// ID is globally unique and immutable. It is shared by the structured
	// record and its similarity index entry.
	ID string `json:"id"`

	// OwnerID scopes every read and write. Records of one owner are never
	// visible to another.
	OwnerID string `json:"owner_id"`

	// Content is the fact text. Never empty, never mutated after creation.
	Content string `json:"content"`

	Category   Category  `json:"category"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`

	ConversationID string   `json:"conversation_id,omitempty"`
	Tags           []string `json:"tags"`

	// Active is false once the record has been retired.
	Active bool `json:"active"`
}

// Clone returns a deep copy of m so callers can't alias a store's internal state.
func (m *Memory) Clone() *Memory {
	if m == nil {
		return nil
	}

	c := *m
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	return &c
}

// ScoredMemory is a hydrated Memory with the similarity score the index
// assigned to it for a given query.
type ScoredMemory struct {
	*Memory

	// Similarity is 1 - cosine distance, as reported by the index.
	Similarity float64 `json:"similarity"`
}

// RelationshipType describes why a memory was retired.
type RelationshipType string

const (
	// RelationshipRetired marks an explicit deletion.
	RelationshipRetired RelationshipType = "retired"

	// RelationshipSuperseded marks a record replaced by a newer one.
	RelationshipSuperseded RelationshipType = "superseded"
)

// RetirementEvent is one row of the append-only retirement log.
type RetirementEvent struct {
	ID               string           `json:"id"`
	MemoryID         string           `json:"memory_id"`
	RelatedMemoryID  string           `json:"related_memory_id,omitempty"`
	RelationshipType RelationshipType `json:"relationship_type"`
	Reason           string           `json:"reason"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Stats aggregates an owner's active records.
type Stats struct {
	Count         int              `json:"count"`
	PerCategory   map[Category]int `json:"per_category"`
	AvgConfidence float64          `json:"avg_confidence"`
}

// NewStats returns zeroed Stats with an initialized category map.
func NewStats() *Stats {
	return &Stats{PerCategory: make(map[Category]int)}
}

// Add folds a single active record into the aggregate.
func (s *Stats) Add(m *Memory) {
	total := s.AvgConfidence * float64(s.Count)
	s.Count++
	s.PerCategory[m.Category]++
	s.AvgConfidence = (total + m.Confidence) / float64(s.Count)
}
