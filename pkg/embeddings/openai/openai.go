// Package openai implements pkg/embeddings' Embedder against the OpenAI
// embeddings API, or any server speaking the same protocol.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/recall/pkg/embeddings"
	"github.com/papercomputeco/recall/pkg/vector"
)

// DefaultEmbeddingModel is used when no model is configured.
const DefaultEmbeddingModel = "text-embedding-3-small"

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string

	// APIKey is the bearer token. Empty falls back to OPENAI_API_KEY.
	APIKey string

	// Model is the embedding model name.
	Model string

	// Dimensions requests shortened embeddings from models that support it.
	// Zero leaves the model default.
	Dimensions uint

	// MaxRetries bounds SDK-level retries. Negative keeps the SDK default.
	MaxRetries int
}

// Embedder wraps the OpenAI embeddings endpoint.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions uint
}

// NewEmbedder creates a new OpenAI embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &Embedder{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

// EmbedBatch embeds several texts in a single request. Results are placed by
// the index the API reports, not by response order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", vector.ErrEmbedding, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", vector.ErrEmbedding, len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", vector.ErrEmbedding, d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}

	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", vector.ErrEmbedding, i)
		}
	}

	return out, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
