// Package inmemory provides a map-backed storage driver for tests and
// ephemeral runs.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu is a read write sync mutex guarding records, seq and events
	mu sync.RWMutex

	// records is keyed by memory ID
	records map[string]*entry

	// seq orders inserts so newest-first listing is stable for equal timestamps
	seq int64

	events []ownedEvent
}

type entry struct {
	seq    int64
	record *memory.Memory
}

type ownedEvent struct {
	owner string
	event memory.RetirementEvent
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*entry),
	}
}

// Save upserts a record by ID. Saving an ID that another owner already
// holds is rejected.
func (d *Driver) Save(_ context.Context, m *memory.Memory) error {
	if m == nil {
		return errors.New("cannot store nil memory")
	}
	if m.ID == "" {
		return errors.New("cannot store memory without id")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.records[m.ID]; ok {
		if e.record.OwnerID != m.OwnerID {
			return storage.Wrap("save", fmt.Errorf("memory %s belongs to another owner", m.ID))
		}
		e.record = m.Clone()
		return nil
	}

	d.seq++
	d.records[m.ID] = &entry{seq: d.seq, record: m.Clone()}
	return nil
}

// Get returns an active record owned by owner.
func (d *Driver) Get(_ context.Context, id, owner string) (*memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.records[id]
	if !ok || e.record.OwnerID != owner || !e.record.Active {
		return nil, storage.NotFound(owner, id)
	}
	return e.record.Clone(), nil
}

// List returns the owner's active records, newest first.
func (d *Driver) List(_ context.Context, owner string, opts storage.ListOptions) ([]*memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	matched := make([]*entry, 0)
	for _, e := range d.records {
		if e.record.OwnerID != owner || !e.record.Active {
			continue
		}
		if opts.Category != "" && e.record.Category != opts.Category {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.record.CreatedAt.Equal(b.record.CreatedAt) {
			return a.record.CreatedAt.After(b.record.CreatedAt)
		}
		return a.seq > b.seq
	})

	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	result := make([]*memory.Memory, 0, len(matched))
	for _, e := range matched {
		result = append(result, e.record.Clone())
	}
	return result, nil
}

// Retire marks an active record inactive and appends a retirement event.
func (d *Driver) Retire(_ context.Context, id, owner string, opts storage.RetireOptions) error {
	opts = opts.Normalize()

	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.records[id]
	if !ok || e.record.OwnerID != owner || !e.record.Active {
		return storage.NotFound(owner, id)
	}

	e.record.Active = false
	d.events = append(d.events, ownedEvent{
		owner: owner,
		event: memory.RetirementEvent{
			ID:               uuid.NewString(),
			MemoryID:         id,
			RelatedMemoryID:  opts.RelatedMemoryID,
			RelationshipType: opts.RelationshipType,
			Reason:           opts.Reason,
			CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
		},
	})
	return nil
}

// RetirementEvents returns the owner's retirement log, oldest first.
func (d *Driver) RetirementEvents(_ context.Context, owner string) ([]memory.RetirementEvent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]memory.RetirementEvent, 0)
	for _, oe := range d.events {
		if oe.owner == owner {
			result = append(result, oe.event)
		}
	}
	return result, nil
}

// Stats aggregates the owner's active records.
func (d *Driver) Stats(_ context.Context, owner string) (*memory.Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := memory.NewStats()
	for _, e := range d.records {
		if e.record.OwnerID == owner && e.record.Active {
			stats.Add(e.record)
		}
	}
	return stats, nil
}

// Owners returns every owner with at least one record.
func (d *Driver) Owners(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range d.records {
		seen[e.record.OwnerID] = struct{}{}
	}

	owners := make([]string, 0, len(seen))
	for o := range seen {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners, nil
}

// Count returns the number of records, active or not.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Ping always succeeds for the in-memory store.
func (d *Driver) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}
