// Package llm defines the provider-agnostic chat completion contract used by
// the language understanding layer, and its provider implementations.
package llm

import (
	"context"
	"errors"
)

// ErrCompletion is wrapped by every provider failure.
var ErrCompletion = errors.New("chat completion failed")

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = errors.New("chat completion returned no content")

// Completer performs single-shot chat completions.
type Completer interface {
	// Name returns the canonical provider name (e.g., "openai", "anthropic", "ollama").
	Name() string

	// Complete sends req and returns the assistant reply.
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Ping verifies the provider is reachable with the configured credentials.
	Ping(ctx context.Context) error
}
