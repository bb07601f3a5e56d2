// Package embeddings turns memory text into vectors for the similarity index.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts several texts in one round trip. The result has
	// one embedding per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
