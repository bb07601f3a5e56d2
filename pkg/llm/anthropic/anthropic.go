// Package anthropic implements llm.Completer with the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/papercomputeco/recall/pkg/llm"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-3-5-haiku-latest"

	// defaultMaxTokens is required by the Messages API.
	defaultMaxTokens = 1024
)

// Config holds configuration for the Anthropic completer.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// MaxRetries bounds SDK-level retries. Negative keeps the SDK default.
	MaxRetries int
}

// Completer calls the Messages API.
type Completer struct {
	client *anthropic.Client
	model  string
}

// New creates a new Anthropic completer.
func New(cfg Config) *Completer {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	var clientOpts []option.RequestOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		clientOpts = append(clientOpts, option.WithMaxRetries(cfg.MaxRetries))
	}

	client := anthropic.NewClient(clientOpts...)
	return &Completer{client: &client, model: model}
}

func (c *Completer) Name() string {
	return "anthropic"
}

// Complete sends req as a single Messages call and joins the text blocks of
// the reply.
func (c *Completer) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	maxTokens := int64(defaultMaxTokens)
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = int64(*req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  buildMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic: %v", llm.ErrCompletion, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, llm.ErrEmptyCompletion
	}

	return &llm.ChatResponse{
		Model:      string(resp.Model),
		Message:    llm.NewTextMessage(llm.RoleAssistant, text.String()),
		StopReason: string(resp.StopReason),
		Usage: &llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// Ping lists models to verify the API key.
func (c *Completer) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("%w: anthropic: %v", llm.ErrCompletion, err)
	}
	return nil
}

func buildMessages(msgs []llm.Message) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(block))
	}
	return messages
}

var _ llm.Completer = (*Completer)(nil)
