package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"corectx/internal/config"
)

// payloadIDField carries the caller's original string id, since Qdrant
// point ids must be a UUID or a positive integer.
const payloadIDField = "_original_id"

// QdrantStore is the primary vector store backend.
type QdrantStore struct {
	client *qdrant.Client

	mu          sync.Mutex
	collections map[string]*qdrantCollection
}

// NewQdrantStore dials the Qdrant gRPC endpoint described by cfg.
func NewQdrantStore(cfg config.QdrantConfig) (*QdrantStore, error) {
	qc := &qdrant.Config{Host: cfg.Host, Port: cfg.Port, UseTLS: cfg.UseTLS}
	if cfg.APIKey != "" {
		qc.APIKey = cfg.APIKey
	}
	client, err := qdrant.NewClient(qc)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &QdrantStore{client: client, collections: make(map[string]*qdrantCollection)}, nil
}

func (s *QdrantStore) Collection(ctx context.Context, containerID uuid.UUID, modality string, dimensions int) (Collection, error) {
	name := CollectionName(containerID, modality)

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check collection exists: %w", err)
	}
	if !exists {
		if dimensions <= 0 {
			return nil, fmt.Errorf("vectorstore: dimensions must be > 0 to create collection %s", name)
		}
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		// Tolerate a "collection exists" race from a concurrent ingest worker.
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return nil, fmt.Errorf("create collection %s: %w", name, err)
		}
	}

	c := &qdrantCollection{client: s.client, name: name, dimension: dimensions}
	s.collections[name] = c
	return c, nil
}

func (s *QdrantStore) DropContainer(ctx context.Context, containerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, modality := range []string{"text", "pdf", "image", "web", "graph_node"} {
		name := CollectionName(containerID, modality)
		if err := s.client.DeleteCollection(ctx, name); err != nil && !strings.Contains(err.Error(), "doesn't exist") {
			return fmt.Errorf("drop collection %s: %w", name, err)
		}
		delete(s.collections, name)
	}
	return nil
}

func (s *QdrantStore) Ping(ctx context.Context) error {
	_, err := s.client.HealthCheck(ctx)
	return err
}

func (s *QdrantStore) Close() error { return s.client.Close() }

type qdrantCollection struct {
	client    *qdrant.Client
	name      string
	dimension int
}

func (c *qdrantCollection) pointID(id string) (*qdrant.PointId, bool) {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id), false
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()), true
}

func (c *qdrantCollection) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	pointID, remapped := c.pointID(id)
	payload := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		payload[k] = v
	}
	if remapped {
		payload[payloadIDField] = id
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Points: []*qdrant.PointStruct{{
			Id:      pointID,
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

func (c *qdrantCollection) Delete(ctx context.Context, id string) error {
	pointID, _ := c.pointID(id)
	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.name,
		Points:         qdrant.NewPointsSelector(pointID),
	})
	return err
}

func (c *qdrantCollection) SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)

	var qFilter *qdrant.Filter
	if len(filter) > 0 {
		must := make([]*qdrant.Condition, 0, len(filter))
		for k, v := range filter {
			must = append(must, qdrant.NewMatch(k, v))
		}
		qFilter = &qdrant.Filter{Must: must}
	}

	limit := uint64(k)
	hits, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         qFilter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(hits))
	for _, hit := range hits {
		id := hit.Id.GetUuid()
		metadata := make(map[string]string)
		var original string
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				if k == payloadIDField {
					original = v.GetStringValue()
					continue
				}
				metadata[k] = v.GetStringValue()
			}
		}
		if original != "" {
			id = original
		}
		out = append(out, Result{ID: id, Score: float64(hit.Score), Metadata: metadata})
	}
	return out, nil
}

func (c *qdrantCollection) Dimension() int { return c.dimension }
