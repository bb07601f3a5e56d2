// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/recall/pkg/embeddings"
	"github.com/papercomputeco/recall/pkg/embeddings/cached"
	"github.com/papercomputeco/recall/pkg/embeddings/ollama"
	"github.com/papercomputeco/recall/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   uint

	// CacheSize wraps the embedder in an in-process cache when non-zero.
	CacheSize uint
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)

	switch o.ProviderType {
	case "ollama", "":
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL:    o.TargetURL,
			APIKey:     o.APIKey,
			Model:      o.Model,
			Dimensions: o.Dimensions,
			MaxRetries: -1,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if o.CacheSize == 0 {
		return e, nil
	}
	return cached.New(e, o.CacheSize)
}
