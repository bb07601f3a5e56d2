// Package understanding is the language understanding boundary of the
// engine: deciding what to remember, classifying intent, embedding text and
// phrasing answers. The coordinator depends only on Understander.
package understanding

import (
	"context"

	"github.com/papercomputeco/recall/pkg/memory"
)

// Understander is the contract the coordinator relies on.
type Understander interface {
	// Decide evaluates text against the owner's recent memory contents.
	// Unusable output is reported as *memory.DependencyError.
	Decide(ctx context.Context, text string, recent []string) (*memory.Decision, error)

	// ClassifyIntent never fails: anything it can't decide is a memory question.
	ClassifyIntent(ctx context.Context, text string) (memory.Intent, error)

	// Embed returns one vector, or vector.ErrDimensionMismatch, or a
	// *memory.DependencyError.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one entry per input. A nil entry marks a text that
	// could not be embedded.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Synthesize phrases an answer to query from the given memory contents.
	Synthesize(ctx context.Context, query string, contents []string) (string, error)

	// GeneralResponse answers small talk that isn't about stored memories.
	GeneralResponse(ctx context.Context, text string) (string, error)

	// Ping verifies the backing model is reachable.
	Ping(ctx context.Context) error
}
