// Package vector provides the similarity index interface and its drivers.
//
// The index is derived data: every entry mirrors an active record in the
// structured store and carries only the fields needed to filter and rank.
// Scores are always 1 - cosine distance, and the owner filter is applied
// before ranking so one owner's results are never affected by another's.
package vector

import "context"

// Document represents an indexed memory with its embedding.
type Document struct {
	// ID is the memory ID, shared with the structured store.
	ID string

	// OwnerID is the hard pre-filter for every query.
	OwnerID string

	// Category is carried as metadata only.
	Category string

	// Embedding is the vector representation of the memory content.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score is 1 - cosine distance (higher = more similar).
	Score float32
}

// Stats summarizes the whole index.
type Stats struct {
	Total  int `json:"total"`
	Owners int `json:"owners"`
}

// Driver handles storage and retrieval of memory embeddings.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK documents owned by owner most similar to the given
	// embedding, ordered by descending score.
	Query(ctx context.Context, owner string, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs. Missing IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes one document. It returns ErrNotFound when the ID is
	// absent or belongs to another owner.
	Delete(ctx context.Context, id, owner string) error

	// Count returns the number of documents for owner, or for the whole
	// index when owner is empty.
	Count(ctx context.Context, owner string) (int, error)

	// Stats summarizes the whole index.
	Stats(ctx context.Context) (*Stats, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the driver.
	Close() error
}
