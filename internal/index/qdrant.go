package index

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/alphas/policyrag-go/internal/rag"
)

// QdrantConfig holds connection parameters for a Qdrant-backed index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// Dimension is the fixed embedding vector size stored in this collection.
	Dimension int

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// Qdrant implements VectorIndex backed by a Qdrant instance. Cosine distance
// is configured at collection creation; department/category filters are
// pushed down as payload match conditions so filtering happens before
// ranking on the server.
type Qdrant struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg *QdrantConfig
}

// NewQdrant creates a Qdrant index, ensuring the target collection exists
// (creating it with cosine distance if necessary).
func NewQdrant(ctx context.Context, cfg *QdrantConfig) (*Qdrant, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("index: qdrant: failed to create client: %w", err)
	}

	idx := &Qdrant{client: client, cfg: cfg}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return idx, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (q *Qdrant) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return fmt.Errorf("index: qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.cfg.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("index: qdrant: failed to create collection %q: %w", q.cfg.Collection, err)
	}

	return nil
}

// Upsert stores or replaces the given entries as Qdrant points. Chunk text
// and document metadata travel in the payload so queries need no second
// lookup.
func (q *Qdrant) Upsert(ctx context.Context, entries []rag.IndexEntry) error {
	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		if err := checkDimension(len(e.Vector), q.cfg.Dimension); err != nil {
			return err
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(e.ChunkID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"document_id": e.DocumentID,
				"chunk_index": int64(e.ChunkIndex),
				"text":        e.Text,
				"title":       e.Title,
				"department":  e.Department,
				"category":    e.Category,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("index: qdrant: upsert failed: %w", err)
	}

	return nil
}

// Remove deletes the given chunk IDs from the collection.
func (q *Qdrant) Remove(ctx context.Context, chunkIDs []string) error {
	pointIDs := make([]*qdrant.PointId, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(id))
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.cfg.Collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("index: qdrant: delete failed: %w", err)
	}

	return nil
}

// Query performs a pre-filtered cosine similarity search and returns the
// topK results. Qdrant returns points ordered by score; equal scores are
// re-broken by ascending chunk ID client-side for determinism.
func (q *Qdrant) Query(ctx context.Context, vector []float32, topK int, f rag.Filters) ([]rag.RetrievalResult, error) {
	if err := checkDimension(len(vector), q.cfg.Dimension); err != nil {
		return nil, err
	}

	limit := uint64(topK)
	req := &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if filter := buildFilter(f); filter != nil {
		req.Filter = filter
	}

	points, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("index: qdrant: query failed: %w", err)
	}

	results := make([]rag.RetrievalResult, 0, len(points))
	for _, p := range points {
		r := rag.RetrievalResult{
			ChunkID: p.Id.GetUuid(),
			Score:   p.Score,
		}
		if payload := p.Payload; payload != nil {
			if v, ok := payload["document_id"]; ok {
				r.DocumentID = v.GetStringValue()
			}
			if v, ok := payload["chunk_index"]; ok {
				r.ChunkIndex = int(v.GetIntegerValue())
			}
			if v, ok := payload["text"]; ok {
				r.Text = v.GetStringValue()
			}
			if v, ok := payload["title"]; ok {
				r.Title = v.GetStringValue()
			}
			if v, ok := payload["department"]; ok {
				r.Department = v.GetStringValue()
			}
			if v, ok := payload["category"]; ok {
				r.Category = v.GetStringValue()
			}
		}
		results = append(results, r)
	}

	return sortResults(results, topK), nil
}

// buildFilter converts the domain pre-filter into Qdrant payload match
// conditions. Returns nil when no filter is set.
func buildFilter(f rag.Filters) *qdrant.Filter {
	var must []*qdrant.Condition
	if f.Department != "" {
		must = append(must, qdrant.NewMatch("department", f.Department))
	}
	if f.Category != "" {
		must = append(must, qdrant.NewMatch("category", f.Category))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

// Size returns the number of points in the collection.
func (q *Qdrant) Size(ctx context.Context) (int, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.cfg.Collection,
	})
	if err != nil {
		return 0, fmt.Errorf("index: qdrant: count failed: %w", err)
	}
	return int(n), nil
}

// Ping calls the Qdrant HealthCheck RPC. Used by the readiness probe.
func (q *Qdrant) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("index: qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}
