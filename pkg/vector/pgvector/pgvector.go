// Package pgvector provides a PostgreSQL + pgvector driver.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/papercomputeco/recall/pkg/vector"
)

// DefaultTable is the default table for memory embeddings.
const DefaultTable = "memory_embeddings"

// Config holds configuration for the pgvector driver.
type Config struct {
	// DSN is a PostgreSQL connection string.
	DSN string

	// Table defaults to DefaultTable.
	Table string

	// Dimensions is required: the column type is vector(Dimensions).
	Dimensions uint
}

// Driver implements vector.Driver on a pgx connection pool.
type Driver struct {
	pool   *pgxpool.Pool
	table  string
	dims   uint
	logger *slog.Logger
}

// NewDriver connects, enables the vector extension and creates the table
// and its cosine HNSW index when missing.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.DSN == "" {
		return nil, errors.New("pgvector DSN is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("pgvector embedding dimensions cannot be 0, must be configured")
	}

	table := c.Table
	if table == "" {
		table = DefaultTable
	}

	pool, err := pgxpool.New(ctx, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	schema := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id        TEXT PRIMARY KEY,
			owner_id  TEXT NOT NULL,
			category  TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL
		)`, table, c.Dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owner_idx ON %s (owner_id)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, table, table),
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating pgvector schema: %w", err)
		}
	}

	logger.Info("pgvector driver initialized", "table", table, "dimensions", c.Dimensions)

	return &Driver{
		pool:   pool,
		table:  table,
		dims:   c.Dimensions,
		logger: logger,
	}, nil
}

// Add upserts documents with their embeddings in one batch.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := fmt.Sprintf(`INSERT INTO %s (id, owner_id, category, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			category = EXCLUDED.category,
			embedding = EXCLUDED.embedding`, d.table)

	for _, doc := range docs {
		if err := vector.CheckDimensions(d.dims, doc.Embedding); err != nil {
			return fmt.Errorf("doc %s: %w", doc.ID, err)
		}
		batch.Queue(query, doc.ID, doc.OwnerID, doc.Category, pgv.NewVector(doc.Embedding))
	}

	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting embeddings: %w", err)
	}

	d.logger.Debug("added documents to pgvector", "count", len(docs))
	return nil
}

// Query finds the topK documents of owner most similar to the embedding.
// The owner predicate is applied before ordering.
func (d *Driver) Query(ctx context.Context, owner string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return []vector.QueryResult{}, nil
	}
	if err := vector.CheckDimensions(d.dims, embedding); err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, owner_id, category, 1 - (embedding <=> $1) AS similarity
			FROM %s
			WHERE owner_id = $2
			ORDER BY embedding <=> $1
			LIMIT $3`, d.table),
		pgv.NewVector(embedding), owner, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("searching similar embeddings: %w", err)
	}
	defer rows.Close()

	results := make([]vector.QueryResult, 0, topK)
	for rows.Next() {
		var (
			r          vector.QueryResult
			similarity float64
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Category, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.Score = float32(similarity)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	d.logger.Debug("queried pgvector", "owner_id", owner, "results", len(results))
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return []vector.Document{}, nil
	}

	rows, err := d.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, owner_id, category, embedding FROM %s WHERE id = ANY($1)`, d.table),
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("getting embeddings: %w", err)
	}
	defer rows.Close()

	docs := make([]vector.Document, 0, len(ids))
	for rows.Next() {
		var (
			doc vector.Document
			vec pgv.Vector
		)
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Category, &vec); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		doc.Embedding = vec.Slice()
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes one document owned by owner.
func (d *Driver) Delete(ctx context.Context, id, owner string) error {
	tag, err := d.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND owner_id = $2`, d.table),
		id, owner,
	)
	if err != nil {
		return fmt.Errorf("deleting embedding %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	return nil
}

// Count returns the number of documents for owner, or all when owner is empty.
func (d *Driver) Count(ctx context.Context, owner string) (int, error) {
	var (
		n   int
		err error
	)
	if owner == "" {
		err = d.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, d.table)).Scan(&n)
	} else {
		err = d.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE owner_id = $1`, d.table), owner).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

// Stats summarizes the whole index.
func (d *Driver) Stats(ctx context.Context) (*vector.Stats, error) {
	stats := &vector.Stats{}
	err := d.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*), COUNT(DISTINCT owner_id) FROM %s`, d.table),
	).Scan(&stats.Total, &stats.Owners)
	if err != nil {
		return nil, fmt.Errorf("reading index stats: %w", err)
	}
	return stats, nil
}

// Ping verifies the pool can reach PostgreSQL.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	return nil
}

// Close closes the pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

// Truncate removes every embedding. Used by tests for isolation.
func (d *Driver) Truncate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, d.table))
	return err
}
