// Package openai implements llm.Completer with the official OpenAI SDK.
// Any server speaking the chat completions protocol works via BaseURL.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/recall/pkg/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Config holds configuration for the OpenAI completer.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// MaxRetries bounds SDK-level retries. Negative keeps the SDK default.
	MaxRetries int
}

// Completer calls the chat completions endpoint.
type Completer struct {
	client *openai.Client
	model  string
}

// New creates a new OpenAI completer.
func New(cfg Config) *Completer {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
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

	client := openai.NewClient(opts...)
	return &Completer{client: &client, model: model}
}

func (c *Completer) Name() string {
	return "openai"
}

// Complete sends req as a non-streaming chat completion.
func (c *Completer) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: buildMessages(req),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", llm.ErrCompletion, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, llm.ErrEmptyCompletion
	}

	choice := resp.Choices[0]
	return &llm.ChatResponse{
		Model:      resp.Model,
		Message:    llm.NewTextMessage(llm.RoleAssistant, choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: &llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Ping lists models, which exercises the base URL and the API key without
// spending tokens.
func (c *Completer) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return fmt.Errorf("%w: openai: %v", llm.ErrCompletion, err)
	}
	return nil
}

func buildMessages(req *llm.ChatRequest) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

var _ llm.Completer = (*Completer)(nil)
