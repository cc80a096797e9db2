package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory vector store used by tests and by
// `cmd/corequery` when no external backend is configured.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) Collection(_ context.Context, containerID uuid.UUID, modality string, dimensions int) (Collection, error) {
	name := CollectionName(containerID, modality)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{dimension: dimensions, points: make(map[string]memPoint)}
		s.collections[name] = c
	}
	return c, nil
}

func (s *MemoryStore) DropContainer(_ context.Context, containerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := "c_" + containerID.String() + "_"
	for name := range s.collections {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			delete(s.collections, name)
		}
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }

type memPoint struct {
	vector   []float32
	metadata map[string]string
}

type memoryCollection struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]memPoint
}

func (c *memoryCollection) Upsert(_ context.Context, id string, vector []float32, metadata map[string]string) error {
	cp := make([]float32, len(vector))
	copy(cp, vector)
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points[id] = memPoint{vector: cp, metadata: md}
	return nil
}

func (c *memoryCollection) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.points, id)
	return nil
}

func (c *memoryCollection) SimilaritySearch(_ context.Context, vector []float32, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Result, 0, len(c.points))
	for id, p := range c.points {
		if !matchesFilter(p.metadata, filter) {
			continue
		}
		out = append(out, Result{ID: id, Score: cosine(vector, p.vector), Metadata: p.metadata})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (c *memoryCollection) Dimension() int { return c.dimension }

func matchesFilter(md, filter map[string]string) bool {
	for k, v := range filter {
		if md[k] != v {
			return false
		}
	}
	return true
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a, b []float32) float64 {
	an, bn := norm(a), norm(b)
	if an == 0 || bn == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
