package understanding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/recall/pkg/embeddings"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
)

// Sampling settings per call. Classification and decisions want stable
// output; conversation can be looser.
const (
	decideTemperature     = 0.1
	decideMaxTokens       = 300
	classifyTemperature   = 0.1
	classifyMaxTokens     = 10
	synthesizeTemperature = 0.3
	synthesizeMaxTokens   = 200
	generalTemperature    = 0.7
	generalMaxTokens      = 150
)

// Config wires a Client.
type Config struct {
	Completer llm.Completer
	Embedder  embeddings.Embedder

	// Dimensions is the expected embedding width. Zero disables the check.
	Dimensions uint

	Logger *slog.Logger
}

// Client implements Understander on top of a chat completer and an embedder.
type Client struct {
	completer  llm.Completer
	embedder   embeddings.Embedder
	dimensions uint
	logger     *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("understanding: completer is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("understanding: embedder is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		completer:  cfg.Completer,
		embedder:   cfg.Embedder,
		dimensions: cfg.Dimensions,
		logger:     log,
	}, nil
}

// Decide asks the model what to do with text.
func (c *Client) Decide(ctx context.Context, text string, recent []string) (*memory.Decision, error) {
	reply, err := c.complete(ctx, decideSystemPrompt, decidePrompt(text, recent), decideTemperature, decideMaxTokens)
	if err != nil {
		return nil, &memory.DependencyError{Op: "decide", Err: err}
	}

	c.logger.Debug("memory decision reply", "reply", reply)

	d, err := ParseDecision(reply)
	if err != nil {
		c.logger.Warn("unusable memory decision", "error", err)
		return nil, err
	}
	return d, nil
}

// ClassifyIntent applies the rules first and asks the model only when none
// match.
func (c *Client) ClassifyIntent(ctx context.Context, text string) (memory.Intent, error) {
	if intent, ok := RuleBasedIntent(text); ok {
		c.logger.Debug("rule-based intent", "intent", intent)
		return intent, nil
	}

	reply, err := c.complete(ctx, classifySystemPrompt, classifyPrompt(text), classifyTemperature, classifyMaxTokens)
	if err != nil {
		c.logger.Warn("intent classification failed, assuming memory question", "error", err)
		return memory.IntentMemoryQuestion, nil
	}

	label := strings.Trim(strings.ToLower(strings.TrimSpace(reply)), `."'`)
	intent, ok := memory.ParseIntent(label)
	if !ok {
		c.logger.Warn("invalid intent label, assuming memory question", "label", label)
		return memory.IntentMemoryQuestion, nil
	}
	return intent, nil
}

// Embed embeds text and checks its width.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, &memory.DependencyError{Op: "embed", Err: err}
	}
	if err := vector.CheckDimensions(c.dimensions, emb); err != nil {
		return nil, err
	}
	return emb, nil
}

// EmbedBatch tries a single batch call and falls back to one call per text,
// leaving nil where a text could not be embedded. A width mismatch is a
// configuration error and fails the whole batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	embs, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(embs) != len(texts) {
		c.logger.Warn("batch embedding failed, embedding one at a time", "count", len(texts), "error", err)

		embs = make([][]float32, len(texts))
		for i, t := range texts {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			emb, err := c.embedder.Embed(ctx, t)
			if err != nil {
				c.logger.Warn("embedding failed", "index", i, "error", err)
				continue
			}
			embs[i] = emb
		}
	}

	for _, emb := range embs {
		if emb == nil {
			continue
		}
		if err := vector.CheckDimensions(c.dimensions, emb); err != nil {
			return nil, err
		}
	}
	return embs, nil
}

// Synthesize asks the model to answer query from contents.
func (c *Client) Synthesize(ctx context.Context, query string, contents []string) (string, error) {
	if len(contents) == 0 {
		return NoMemoriesResponse, nil
	}

	reply, err := c.complete(ctx, synthesizeSystemPrompt, synthesizePrompt(query, contents), synthesizeTemperature, synthesizeMaxTokens)
	if err != nil {
		return "", &memory.DependencyError{Op: "synthesize", Err: err}
	}
	return reply, nil
}

// GeneralResponse answers small talk.
func (c *Client) GeneralResponse(ctx context.Context, text string) (string, error) {
	reply, err := c.complete(ctx, generalSystemPrompt, generalPrompt(text), generalTemperature, generalMaxTokens)
	if err != nil {
		return "", &memory.DependencyError{Op: "general_response", Err: err}
	}
	return reply, nil
}

// Ping checks the chat model. Embedders expose no cheap health call.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.completer.Ping(ctx); err != nil {
		return &memory.DependencyError{Op: "ping", Err: err}
	}
	return nil
}

// Close releases the embedder.
func (c *Client) Close() error {
	return c.embedder.Close()
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	resp, err := c.completer.Complete(ctx, llm.NewPrompt(system, user, temperature, maxTokens))
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", llm.ErrEmptyCompletion
	}
	return text, nil
}

// IsDimensionMismatch reports whether err is a configuration-level width
// mismatch rather than a transient embedding failure.
func IsDimensionMismatch(err error) bool {
	return errors.Is(err, vector.ErrDimensionMismatch)
}

var _ Understander = (*Client)(nil)
