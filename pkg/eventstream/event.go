package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/recall/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryCreated is emitted after a memory is saved to the structured store.
	EventTypeMemoryCreated = "recall.memory.created"

	// EventTypeMemoryRetired is emitted after a memory is retired in the structured store.
	EventTypeMemoryRetired = "recall.memory.retired"
)

// MemoryEvent is a transport-neutral event payload for a memory lifecycle change.
type MemoryEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	OwnerID       string    `json:"owner_id"`

	// Memory is set on created events.
	Memory *memory.Memory `json:"memory,omitempty"`

	// Retirement is set on retired events.
	Retirement *memory.RetirementEvent `json:"retirement,omitempty"`
}

// NewMemoryCreated builds a created event for m.
func NewMemoryCreated(m *memory.Memory) *MemoryEvent {
	return &MemoryEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeMemoryCreated,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		OwnerID:       m.OwnerID,
		Memory:        m.Clone(),
	}
}

// NewMemoryRetired builds a retired event.
func NewMemoryRetired(owner string, r memory.RetirementEvent) *MemoryEvent {
	return &MemoryEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeMemoryRetired,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		OwnerID:       owner,
		Retirement:    &r,
	}
}

// Suffix is the last segment of the event type ("created", "retired"),
// used to build per-type subjects.
func (e *MemoryEvent) Suffix() string {
	switch e.EventType {
	case EventTypeMemoryCreated:
		return "created"
	case EventTypeMemoryRetired:
		return "retired"
	default:
		return "unknown"
	}
}
