// Package client is a small HTTP client for the recall API, used by the
// CLI commands that talk to a running server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/pkg/coordinator"
)

const defaultTimeout = 60 * time.Second

// Client calls a recall API server.
type Client struct {
	target     *url.URL
	httpClient *http.Client
}

// New creates a Client for the server at target, e.g. http://localhost:8081.
func New(target string) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target URL: %q", target)
	}

	return &Client{
		target:     u,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("recall API error (HTTP %d, %s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("recall API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Remember sends text through the ingestion pipeline.
func (c *Client) Remember(ctx context.Context, req api.ExtractRequest) (*coordinator.IngestResult, error) {
	var out coordinator.IngestResult
	if err := c.post(ctx, "/v1/memories/extract", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a semantic search with synthesis.
func (c *Client) Search(ctx context.Context, req api.SearchRequest) (*coordinator.SearchResult, error) {
	var out coordinator.SearchResult
	if err := c.post(ctx, "/v1/memories/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Forget retires the memory that best matches req.Text.
func (c *Client) Forget(ctx context.Context, req api.DeleteRequest) (*coordinator.DeleteResult, error) {
	var out coordinator.DeleteResult
	if err := c.post(ctx, "/v1/memories/delete", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat routes a message by intent.
func (c *Client) Chat(ctx context.Context, req api.ExtractRequest) (*coordinator.ChatResult, error) {
	var out coordinator.ChatResult
	if err := c.post(ctx, "/v1/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns an owner's active memories, newest first.
func (c *Client) List(ctx context.Context, ownerID, category string, limit int) (*coordinator.ListResult, error) {
	q := url.Values{}
	q.Set("owner_id", ownerID)
	if category != "" {
		q.Set("category", category)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out coordinator.ListResult
	if err := c.get(ctx, "/v1/memories", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns an owner's aggregate statistics.
func (c *Client) Stats(ctx context.Context, ownerID string) (*api.StatsResponse, error) {
	q := url.Values{}
	q.Set("owner_id", ownerID)

	var out api.StatsResponse
	if err := c.get(ctx, "/v1/memories/stats", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns an owner's retirement log.
func (c *Client) History(ctx context.Context, ownerID string) (*api.HistoryResponse, error) {
	q := url.Values{}
	q.Set("owner_id", ownerID)

	var out api.HistoryResponse
	if err := c.get(ctx, "/v1/memories/history", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the server's dependency report. A failed engine still
// yields a report alongside an *APIError.
func (c *Client) Health(ctx context.Context) (*coordinator.HealthReport, error) {
	var out coordinator.HealthReport
	err := c.get(ctx, "/health", nil, &out)
	if err != nil && out.Overall == "" {
		return nil, err
	}
	return &out, err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.target
	u.Path = path
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to recall API at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}

		var er api.ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
			apiErr.Kind = er.Kind
		} else {
			// Some endpoints report structured bodies on failure.
			_ = json.Unmarshal(body, out)
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
