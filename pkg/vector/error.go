package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document is not found in the vector store.
	ErrNotFound = errors.New("document not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is returned when an embedding's length does not
	// match the index dimensionality. It is a configuration error.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// CheckDimensions returns ErrDimensionMismatch when want is set and the
// embedding has a different length.
func CheckDimensions(want uint, embedding []float32) error {
	if want == 0 || uint(len(embedding)) == want {
		return nil
	}
	return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), want)
}
