// Package ollama implements llm.Completer against Ollama's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/recall/pkg/llm"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "gemma3"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Config holds configuration for the Ollama completer.
type Config struct {
	BaseURL string
	Model   string
}

// Completer wraps Ollama's /api/chat endpoint.
type Completer struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates a new Ollama completer.
func New(cfg Config) *Completer {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Completer{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *Completer) Name() string {
	return "ollama"
}

// Complete sends a non-streaming chat request.
func (c *Completer) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	stream := false
	body := chatRequest{
		Model:  c.model,
		Stream: &stream,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: llm.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		body.Options = &chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrCompletion, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrCompletion, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", llm.ErrCompletion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrCompletion, resp.StatusCode, string(b))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", llm.ErrCompletion, err)
	}

	if chatResp.Message.Content == "" {
		return nil, llm.ErrEmptyCompletion
	}

	return &llm.ChatResponse{
		Model:      chatResp.Model,
		Message:    llm.NewTextMessage(llm.RoleAssistant, chatResp.Message.Content),
		StopReason: chatResp.DoneReason,
		Usage: &llm.Usage{
			PromptTokens:     chatResp.PromptEvalCount,
			CompletionTokens: chatResp.EvalCount,
			TotalTokens:      chatResp.PromptEvalCount + chatResp.EvalCount,
		},
	}, nil
}

// Ping lists local models to verify the server is up.
func (c *Completer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", llm.ErrCompletion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama returned status %d", llm.ErrCompletion, resp.StatusCode)
	}
	return nil
}

var _ llm.Completer = (*Completer)(nil)
