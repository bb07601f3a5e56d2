// Package qdrant provides a Qdrant vector database driver over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/recall/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for memory embeddings.
	DefaultCollectionName = "recall_memories"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	payloadMemoryID = "memory_id"
	payloadOwnerID  = "owner_id"
	payloadCategory = "category"

	scrollPage = 256
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is "host" or "host:port" of the gRPC endpoint.
	Target string

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Dimensions is required: the collection's vector size is fixed at creation.
	Dimensions uint

	APIKey string
	UseTLS bool
}

// Driver implements vector.Driver with the official Qdrant Go client.
type Driver struct {
	client     *qdrant.Client
	collection string
	dims       uint
	logger     *slog.Logger
}

// NewDriver connects to Qdrant and ensures the collection and the owner
// payload index exist.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Target == "" {
		return nil, errors.New("qdrant target is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, port, err := splitTarget(c.Target)
	if err != nil {
		return nil, err
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: collection,
		dims:       c.Dimensions,
		logger:     logger,
	}

	if err := d.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to Qdrant",
		"target", c.Target,
		"collection", collection,
		"dimensions", c.Dimensions,
	)
	return d, nil
}

func splitTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No port given.
		return target, DefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}

func (d *Driver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", d.collection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(d.dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", d.collection, err)
	}

	_, err = d.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		FieldName:      payloadOwnerID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("creating owner index: %w", err)
	}
	return nil
}

// pointID maps a memory ID onto the UUID space Qdrant requires. The
// original ID travels in the payload.
func pointID(id string) *qdrant.PointId {
	if u, err := uuid.Parse(id); err == nil {
		return qdrant.NewID(u.String())
	}
	return qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String())
}

func ownerFilter(owner string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadOwnerID, owner)},
	}
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

// Add upserts documents with their embeddings.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		if err := vector.CheckDimensions(d.dims, doc.Embedding); err != nil {
			return fmt.Errorf("doc %s: %w", doc.ID, err)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadMemoryID: doc.ID,
				payloadOwnerID:  doc.OwnerID,
				payloadCategory: doc.Category,
			}),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant", "count", len(docs))
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

	scored, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         ownerFilter(owner),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(scored))
	for _, p := range scored {
		results = append(results, vector.QueryResult{
			Document: vector.Document{
				ID:       payloadString(p.GetPayload(), payloadMemoryID),
				OwnerID:  payloadString(p.GetPayload(), payloadOwnerID),
				Category: payloadString(p.GetPayload(), payloadCategory),
			},
			// Cosine collections already score by similarity.
			Score: p.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant", "owner_id", owner, "results", len(results))
	return results, nil
}

func (d *Driver) retrieve(ctx context.Context, ids []string, withVectors bool) ([]vector.Document, error) {
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(withVectors),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		doc := vector.Document{
			ID:       payloadString(p.GetPayload(), payloadMemoryID),
			OwnerID:  payloadString(p.GetPayload(), payloadOwnerID),
			Category: payloadString(p.GetPayload(), payloadCategory),
		}
		if withVectors {
			doc.Embedding = p.GetVectors().GetVector().GetData()
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return []vector.Document{}, nil
	}
	return d.retrieve(ctx, ids, true)
}

// Delete removes one document owned by owner.
func (d *Driver) Delete(ctx context.Context, id, owner string) error {
	docs, err := d.retrieve(ctx, []string{id}, false)
	if err != nil {
		return err
	}
	if len(docs) == 0 || docs[0].OwnerID != owner {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}

	_, err = d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointID(id)),
	})
	if err != nil {
		return fmt.Errorf("deleting point %s: %w", id, err)
	}

	d.logger.Debug("deleted document from qdrant", "id", id)
	return nil
}

// Count returns the number of documents for owner, or all when owner is empty.
func (d *Driver) Count(ctx context.Context, owner string) (int, error) {
	req := &qdrant.CountPoints{
		CollectionName: d.collection,
		Exact:          qdrant.PtrOf(true),
	}
	if owner != "" {
		req.Filter = ownerFilter(owner)
	}

	n, err := d.client.Count(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(n), nil
}

// Stats scrolls the collection payloads to count distinct owners.
func (d *Driver) Stats(ctx context.Context) (*vector.Stats, error) {
	var (
		stats  = &vector.Stats{}
		owners = make(map[string]struct{})
		offset *qdrant.PointId
	)

	for {
		points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: d.collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPage)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scrolling points: %w", err)
		}

		// The offset point is inclusive, so every page after the first
		// starts with the last point of the previous one.
		if offset != nil && len(points) > 0 {
			points = points[1:]
		}
		for _, p := range points {
			stats.Total++
			owners[payloadString(p.GetPayload(), payloadOwnerID)] = struct{}{}
		}

		if len(points) < scrollPage-1 || len(points) == 0 {
			break
		}
		offset = points[len(points)-1].GetId()
	}

	stats.Owners = len(owners)
	return stats, nil
}

// Ping runs Qdrant's health check.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}
