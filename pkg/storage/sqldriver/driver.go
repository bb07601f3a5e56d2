// Package sqldriver provides the storage.Driver shared by the SQLite and
// PostgreSQL drivers. Queries are built with the ent dialect/sql builder so
// quoting, placeholders and upsert syntax follow the configured dialect.
package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
)

const (
	memoriesTable    = "memories"
	retirementsTable = "memory_retirements"
)

var memoryColumns = []string{
	"id", "owner_id", "content", "category", "confidence",
	"created_at", "conversation_id", "tags", "active",
}

// Columns an upsert may overwrite. The id, owner and creation time are
// fixed once a record exists.
var mutableColumns = []string{
	"content", "category", "confidence", "conversation_id", "tags", "active",
}

// SQLDriver provides storage operations over an ent SQL driver.
// It is database-agnostic and can be embedded by specific drivers.
type SQLDriver struct {
	DB      *entsql.Driver
	Dialect Dialect
}

// New wraps db in an ent driver for the given dialect, runs the dialect's
// schema and returns the driver.
func New(ctx context.Context, db *sql.DB, d Dialect) (*SQLDriver, error) {
	drv := entsql.OpenDB(d.Name, db)
	for _, stmt := range d.Schema {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &SQLDriver{DB: drv, Dialect: d}, nil
}

func (sd *SQLDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(sd.Dialect.Name)
}

// Save upserts a record by ID. Saving an ID that another owner already
// holds is rejected and leaves the stored record untouched.
func (sd *SQLDriver) Save(ctx context.Context, m *memory.Memory) error {
	if m == nil {
		return errors.New("cannot store nil memory")
	}
	if m.ID == "" {
		return errors.New("cannot store memory without id")
	}

	tags, err := encodeTags(m.Tags)
	if err != nil {
		return storage.Wrap("save", err)
	}

	b := sd.builder()
	query, args := b.Insert(memoriesTable).
		Columns(memoryColumns...).
		Values(
			m.ID, m.OwnerID, m.Content, string(m.Category), m.Confidence,
			m.CreatedAt.UTC(), m.ConversationID, tags, m.Active,
		).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range mutableColumns {
					u.SetExcluded(c)
				}
			}),
			entsql.UpdateWhere(entsql.ColumnsEQ("owner_id", b.Table("excluded").C("owner_id"))),
		).
		Query()

	var res sql.Result
	if err := sd.DB.Exec(ctx, query, args, &res); err != nil {
		return storage.Wrap("save", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storage.Wrap("save", err)
	}
	if n == 0 {
		return storage.Wrap("save", fmt.Errorf("memory %s belongs to another owner", m.ID))
	}
	return nil
}

// Get returns an active record owned by owner.
func (sd *SQLDriver) Get(ctx context.Context, id, owner string) (*memory.Memory, error) {
	b := sd.builder()
	query, args := b.Select(memoryColumns...).
		From(b.Table(memoriesTable)).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("owner_id", owner),
			entsql.IsTrue("active"),
		)).
		Query()

	var rows entsql.Rows
	if err := sd.DB.Query(ctx, query, args, &rows); err != nil {
		return nil, storage.Wrap("get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storage.Wrap("get", err)
		}
		return nil, storage.NotFound(owner, id)
	}

	m, err := scanMemory(&rows)
	if err != nil {
		return nil, storage.Wrap("get", err)
	}
	return m, nil
}

// List returns the owner's active records, newest first.
func (sd *SQLDriver) List(ctx context.Context, owner string, opts storage.ListOptions) ([]*memory.Memory, error) {
	preds := []*entsql.Predicate{
		entsql.EQ("owner_id", owner),
		entsql.IsTrue("active"),
	}
	if opts.Category != "" {
		preds = append(preds, entsql.EQ("category", string(opts.Category)))
	}

	b := sd.builder()
	sel := b.Select(memoryColumns...).
		From(b.Table(memoriesTable)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("seq"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := sd.DB.Query(ctx, query, args, &rows); err != nil {
		return nil, storage.Wrap("list", err)
	}
	defer rows.Close()

	result := make([]*memory.Memory, 0)
	for rows.Next() {
		m, err := scanMemory(&rows)
		if err != nil {
			return nil, storage.Wrap("list", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("list", err)
	}
	return result, nil
}

// Retire deactivates an active record and appends a retirement event in one
// transaction. The update's row count gates the insert of the event row.
func (sd *SQLDriver) Retire(ctx context.Context, id, owner string, opts storage.RetireOptions) error {
	opts = opts.Normalize()

	tx, err := sd.DB.Tx(ctx)
	if err != nil {
		return storage.Wrap("retire", err)
	}
	defer func() { _ = tx.Rollback() }()

	b := sd.builder()
	query, args := b.Update(memoriesTable).
		Set("active", false).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("owner_id", owner),
			entsql.IsTrue("active"),
		)).
		Query()

	var res sql.Result
	if err := tx.Exec(ctx, query, args, &res); err != nil {
		return storage.Wrap("retire", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storage.Wrap("retire", err)
	}
	if n == 0 {
		return storage.NotFound(owner, id)
	}

	query, args = b.Insert(retirementsTable).
		Columns("id", "owner_id", "memory_id", "related_memory_id", "relationship_type", "reason", "created_at").
		Values(
			uuid.NewString(), owner, id, opts.RelatedMemoryID,
			string(opts.RelationshipType), opts.Reason, time.Now().UTC().Truncate(time.Microsecond),
		).
		Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return storage.Wrap("retire", err)
	}

	return storage.Wrap("retire", tx.Commit())
}

// RetirementEvents returns the owner's retirement log, oldest first.
func (sd *SQLDriver) RetirementEvents(ctx context.Context, owner string) ([]memory.RetirementEvent, error) {
	b := sd.builder()
	query, args := b.Select("id", "memory_id", "related_memory_id", "relationship_type", "reason", "created_at").
		From(b.Table(retirementsTable)).
		Where(entsql.EQ("owner_id", owner)).
		OrderBy(entsql.Asc("seq")).
		Query()

	var rows entsql.Rows
	if err := sd.DB.Query(ctx, query, args, &rows); err != nil {
		return nil, storage.Wrap("history", err)
	}
	defer rows.Close()

	events := make([]memory.RetirementEvent, 0)
	for rows.Next() {
		var (
			ev  memory.RetirementEvent
			rel string
		)
		if err := rows.Scan(&ev.ID, &ev.MemoryID, &ev.RelatedMemoryID, &rel, &ev.Reason, &ev.CreatedAt); err != nil {
			return nil, storage.Wrap("history", err)
		}
		ev.RelationshipType = memory.RelationshipType(rel)
		ev.CreatedAt = ev.CreatedAt.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("history", err)
	}
	return events, nil
}

// Stats aggregates the owner's active records.
func (sd *SQLDriver) Stats(ctx context.Context, owner string) (*memory.Stats, error) {
	b := sd.builder()
	query, args := b.Select("category", entsql.Count("*"), entsql.Sum("confidence")).
		From(b.Table(memoriesTable)).
		Where(entsql.And(
			entsql.EQ("owner_id", owner),
			entsql.IsTrue("active"),
		)).
		GroupBy("category").
		Query()

	var rows entsql.Rows
	if err := sd.DB.Query(ctx, query, args, &rows); err != nil {
		return nil, storage.Wrap("stats", err)
	}
	defer rows.Close()

	stats := memory.NewStats()
	var total float64
	for rows.Next() {
		var (
			category string
			count    int
			sum      float64
		)
		if err := rows.Scan(&category, &count, &sum); err != nil {
			return nil, storage.Wrap("stats", err)
		}
		stats.PerCategory[memory.Category(category)] = count
		stats.Count += count
		total += sum
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("stats", err)
	}

	if stats.Count > 0 {
		stats.AvgConfidence = total / float64(stats.Count)
	}
	return stats, nil
}

// Owners returns every owner with at least one record.
func (sd *SQLDriver) Owners(ctx context.Context) ([]string, error) {
	b := sd.builder()
	query, args := b.Select("owner_id").
		Distinct().
		From(b.Table(memoriesTable)).
		OrderBy("owner_id").
		Query()

	var rows entsql.Rows
	if err := sd.DB.Query(ctx, query, args, &rows); err != nil {
		return nil, storage.Wrap("owners", err)
	}
	defer rows.Close()

	owners := make([]string, 0)
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, storage.Wrap("owners", err)
		}
		owners = append(owners, o)
	}
	return owners, storage.Wrap("owners", rows.Err())
}

// Ping verifies the database is reachable.
func (sd *SQLDriver) Ping(ctx context.Context) error {
	return storage.Wrap("ping", sd.DB.DB().PingContext(ctx))
}

// Close closes the underlying database.
func (sd *SQLDriver) Close() error {
	return sd.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(s scanner) (*memory.Memory, error) {
	var (
		m        memory.Memory
		category string
		tags     string
	)
	err := s.Scan(&m.ID, &m.OwnerID, &m.Content, &category, &m.Confidence,
		&m.CreatedAt, &m.ConversationID, &tags, &m.Active)
	if err != nil {
		return nil, err
	}

	m.Category = memory.Category(category)
	m.CreatedAt = m.CreatedAt.UTC()
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags for %s: %w", m.ID, err)
	}
	return &m, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}
