// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/recall/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// It is fixed when the vec0 table is first created.
	Dimensions uint
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables use integer rowids, so string memory IDs are
	// mapped to rowids here. owner_id is duplicated so Get and Delete can
	// check ownership without touching the virtual table.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	// The owner partition key makes "owner_id = ?" part of the KNN scan
	// itself, so k results are always k results of that owner.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(
			owner_id text partition key,
			embedding float[%d] distance_metric=cosine
		)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Add stores documents with their embeddings.
// If a document with the same ID already exists, it is replaced.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	for _, doc := range docs {
		if err := vector.CheckDimensions(d.dimensions, doc.Embedding); err != nil {
			return fmt.Errorf("doc %s: %w", doc.ID, err)
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, doc := range docs {
		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_documents WHERE doc_id = ?`, doc.ID,
		).Scan(&existingRowID)

		switch {
		case err == nil:
			// vec0 does not support UPDATE, and the partition key may change
			// with the owner, so the row is replaced.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for doc %s: %w", doc.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_documents WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old document %s: %w", doc.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("checking for existing document %s: %w", doc.ID, err)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO vec_documents(doc_id, owner_id, category) VALUES (?, ?, ?)`,
			doc.ID, doc.OwnerID, doc.Category,
		)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid for doc %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, owner_id, embedding) VALUES (?, ?, ?)`,
			rowID, doc.OwnerID, serializeFloat32(doc.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to sqlite-vec", "count", len(docs))
	return nil
}

// Query finds the topK documents of owner most similar to the given embedding.
func (d *Driver) Query(ctx context.Context, owner string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return []vector.QueryResult{}, nil
	}
	if err := vector.CheckDimensions(d.dimensions, embedding); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			d.doc_id,
			d.owner_id,
			d.category,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_documents d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
			AND ve.owner_id = ?
		ORDER BY ve.distance
	`, serializeFloat32(embedding), topK, owner)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	results := make([]vector.QueryResult, 0, topK)
	for rows.Next() {
		var (
			r        vector.QueryResult
			distance float64
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Category, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		r.Score = float32(1.0 - distance)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", "owner_id", owner, "results", len(results))
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return []vector.Document{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT d.doc_id, d.owner_id, d.category, ve.embedding
		FROM vec_documents d
		INNER JOIN vec_embeddings ve ON ve.rowid = d.rowid
		WHERE d.doc_id IN (%s)
	`, strings.Join(placeholders, ","))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]vector.Document, 0, len(ids))
	for rows.Next() {
		var (
			doc  vector.Document
			blob []byte
		)
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Category, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if doc.Embedding, err = deserializeFloat32(blob); err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Delete removes one document owned by owner.
func (d *Driver) Delete(ctx context.Context, id, owner string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var rowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM vec_documents WHERE doc_id = ? AND owner_id = ?`, id, owner,
	).Scan(&rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("querying rowid for deletion: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_documents WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted document from sqlite-vec", "id", id)
	return nil
}

// Count returns the number of documents for owner, or all when owner is empty.
func (d *Driver) Count(ctx context.Context, owner string) (int, error) {
	var (
		n   int
		err error
	)
	if owner == "" {
		err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_documents`).Scan(&n)
	} else {
		err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_documents WHERE owner_id = ?`, owner).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Stats summarizes the whole index.
func (d *Driver) Stats(ctx context.Context) (*vector.Stats, error) {
	stats := &vector.Stats{}
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT owner_id) FROM vec_documents`,
	).Scan(&stats.Total, &stats.Owners)
	if err != nil {
		return nil, fmt.Errorf("reading index stats: %w", err)
	}
	return stats, nil
}

// Ping verifies the database is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}
