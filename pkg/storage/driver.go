// Package storage defines the authoritative structured store for memories.
package storage

import (
	"context"

	"github.com/papercomputeco/recall/pkg/memory"
)

// Driver defines the interface for persisting and retrieving memories in a
// structured storage backend. The Driver is the source of truth: the
// similarity index is derived from it and may lag behind.
//
// Every read and write is scoped by owner. A record that exists but belongs
// to a different owner is reported exactly as if it did not exist.
type Driver interface {
	// Save upserts a record by ID. Saving the same record twice is a no-op
	// beyond the first write.
	Save(ctx context.Context, m *memory.Memory) error

	// Get returns an active record owned by owner, or *memory.NotFoundError.
	Get(ctx context.Context, id, owner string) (*memory.Memory, error)

	// List returns the owner's active records, newest first.
	List(ctx context.Context, owner string, opts ListOptions) ([]*memory.Memory, error)

	// Retire marks an active record inactive and appends one RetirementEvent.
	// Absent, foreign or already retired records yield *memory.NotFoundError
	// and no log entry.
	Retire(ctx context.Context, id, owner string, opts RetireOptions) error

	// RetirementEvents returns the owner's retirement log, oldest first.
	RetirementEvents(ctx context.Context, owner string) ([]memory.RetirementEvent, error)

	// Stats aggregates the owner's active records.
	Stats(ctx context.Context, owner string) (*memory.Stats, error)

	// Owners returns every owner that has at least one record, active or not.
	Owners(ctx context.Context) ([]string, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close closes the store and releases any resources.
	Close() error
}

// ListOptions narrows a List call.
type ListOptions struct {
	// Category filters to one category when non-empty.
	Category memory.Category

	// Limit caps the number of records. Zero means no limit.
	Limit int
}

// RetireOptions describes why a record is being retired.
type RetireOptions struct {
	Reason           string
	RelationshipType memory.RelationshipType

	// RelatedMemoryID is the replacement record for a supersede.
	RelatedMemoryID string
}

// Normalize fills the relationship type when the caller left it empty.
func (o RetireOptions) Normalize() RetireOptions {
	if o.RelationshipType == "" {
		o.RelationshipType = memory.RelationshipRetired
	}
	return o
}
