// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/recall/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing memory embeddings.
	DefaultCollectionName = "recall_memories"

	defaultMaxRetries    = 5
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	dims           uint
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions, when set, is enforced on every Add and Query.
	Dimensions uint

	// MaxRetries bounds how many times the collection handshake is attempted
	// while Chroma is starting up.
	MaxRetries int

	// RetryDelay is the initial backoff, doubled per attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = defaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		dims:           c.Dimensions,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var (
		lastErr error
		delay   = c.RetryDelay
	)
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		collectionID, err := d.getOrCreateCollection(context.Background())
		if err == nil {
			d.collectionID = collectionID
			logger.Info("connected to Chroma",
				"url", c.URL,
				"collection", collectionName,
				"collection_id", collectionID,
			)
			return d, nil
		}

		lastErr = err
		logger.Warn("chroma not ready, retrying", "attempt", attempt, "error", err)
		if attempt < c.MaxRetries {
			time.Sleep(delay)
			delay = min(delay*2, c.MaxRetryDelay)
		}
	}

	return nil, fmt.Errorf("getting or creating collection %q after %d attempts: %w", collectionName, c.MaxRetries, lastErr)
}

// getOrCreateCollection gets an existing collection or creates a new one
// configured for cosine distance.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var collection chromaCollection
	err := d.do(ctx, http.MethodGet, collectionsPath+"/"+d.collectionName, nil, &collection)
	if err == nil {
		return collection.ID, nil
	}

	err = d.do(ctx, http.MethodPost, collectionsPath, chromaCreateCollectionRequest{
		Name:        d.collectionName,
		Metadata:    map[string]any{"hnsw:space": "cosine"},
		GetOrCreate: true,
	}, &collection)
	if err != nil {
		return "", fmt.Errorf("failed to create collection: %w", err)
	}

	return collection.ID, nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma %s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (d *Driver) collectionPath(op string) string {
	return fmt.Sprintf("%s/%s/%s", collectionsPath, d.collectionID, op)
}

// Add upserts documents with their embeddings.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	req := chromaAddRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
	}
	for i, doc := range docs {
		if err := vector.CheckDimensions(d.dims, doc.Embedding); err != nil {
			return fmt.Errorf("doc %s: %w", doc.ID, err)
		}
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Metadatas[i] = map[string]any{"owner_id": doc.OwnerID, "category": doc.Category}
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("upsert"), req, nil); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	d.logger.Debug("added documents to chroma", "count", len(docs))
	return nil
}

// Query finds the topK documents of owner most similar to the embedding.
func (d *Driver) Query(ctx context.Context, owner string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return []vector.QueryResult{}, nil
	}
	if err := vector.CheckDimensions(d.dims, embedding); err != nil {
		return nil, err
	}

	var queryResp chromaQueryResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("query"), chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Where:           map[string]any{"owner_id": owner},
		Include:         []string{"metadatas", "distances"},
	}, &queryResp)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	results := make([]vector.QueryResult, 0, topK)

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	var (
		distances []float32
		metadatas []map[string]any
	)
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	for i, id := range ids {
		result := vector.QueryResult{Document: vector.Document{ID: id, OwnerID: owner}}
		if i < len(metadatas) {
			result.Category, _ = metadatas[i]["category"].(string)
		}
		if i < len(distances) {
			result.Score = 1.0 - distances[i]
		}
		results = append(results, result)
	}

	d.logger.Debug("queried chroma", "owner_id", owner, "results", len(results))
	return results, nil
}

func (d *Driver) get(ctx context.Context, req chromaGetRequest) ([]vector.Document, error) {
	var getResp chromaGetResponse
	if err := d.do(ctx, http.MethodPost, d.collectionPath("get"), req, &getResp); err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}

	docs := make([]vector.Document, len(getResp.IDs))
	for i, id := range getResp.IDs {
		docs[i].ID = id
		if i < len(getResp.Metadatas) && getResp.Metadatas[i] != nil {
			docs[i].OwnerID, _ = getResp.Metadatas[i]["owner_id"].(string)
			docs[i].Category, _ = getResp.Metadatas[i]["category"].(string)
		}
		if i < len(getResp.Embeddings) {
			docs[i].Embedding = getResp.Embeddings[i]
		}
	}
	return docs, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return []vector.Document{}, nil
	}
	return d.get(ctx, chromaGetRequest{IDs: ids, Include: []string{"metadatas", "embeddings"}})
}

// Delete removes one document owned by owner.
func (d *Driver) Delete(ctx context.Context, id, owner string) error {
	docs, err := d.get(ctx, chromaGetRequest{
		IDs:     []string{id},
		Where:   map[string]any{"owner_id": owner},
		Include: []string{},
	})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("delete"), chromaDeleteRequest{IDs: []string{id}}, nil); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	d.logger.Debug("deleted document from chroma", "id", id)
	return nil
}

// Count returns the number of documents for owner, or all when owner is empty.
func (d *Driver) Count(ctx context.Context, owner string) (int, error) {
	if owner == "" {
		var n int
		if err := d.do(ctx, http.MethodGet, d.collectionPath("count"), nil, &n); err != nil {
			return 0, fmt.Errorf("failed to count documents: %w", err)
		}
		return n, nil
	}

	docs, err := d.get(ctx, chromaGetRequest{Where: map[string]any{"owner_id": owner}, Include: []string{}})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Stats summarizes the whole index.
func (d *Driver) Stats(ctx context.Context) (*vector.Stats, error) {
	docs, err := d.get(ctx, chromaGetRequest{Include: []string{"metadatas"}})
	if err != nil {
		return nil, err
	}

	owners := make(map[string]struct{})
	for _, doc := range docs {
		owners[doc.OwnerID] = struct{}{}
	}
	return &vector.Stats{Total: len(docs), Owners: len(owners)}, nil
}

// Ping checks the Chroma heartbeat endpoint.
func (d *Driver) Ping(ctx context.Context) error {
	return d.do(ctx, http.MethodGet, "/api/v2/heartbeat", nil, nil)
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}
