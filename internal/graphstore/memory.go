package graphstore

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"corectx/internal/model"
)

type nodeKey struct {
	container uuid.UUID
	node      string
}

type edgeKey struct {
	container    uuid.UUID
	source, typ string
}

// MemoryStore is an in-memory graph store for tests and small deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[nodeKey]model.GraphNode
	edges map[edgeKey]map[string]model.GraphEdge // dest -> edge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[nodeKey]model.GraphNode),
		edges: make(map[edgeKey]map[string]model.GraphEdge),
	}
}

func (s *MemoryStore) UpsertNode(_ context.Context, n model.GraphNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[nodeKey{n.ContainerID, n.NodeID}] = n
	return nil
}

func (s *MemoryStore) UpsertEdge(_ context.Context, e model.GraphEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey{e.ContainerID, e.SourceID, e.Type}
	if s.edges[key] == nil {
		s.edges[key] = make(map[string]model.GraphEdge)
	}
	s.edges[key][e.TargetID] = e
	return nil
}

func (s *MemoryStore) GetNode(_ context.Context, containerID uuid.UUID, nodeID string) (model.GraphNode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[nodeKey{containerID, nodeID}]
	return n, ok, nil
}

func (s *MemoryStore) Neighbors(_ context.Context, containerID uuid.UUID, nodeID, edgeType string, direction Direction) ([]model.GraphNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	var out []model.GraphNode
	add := func(id string) {
		if id == nodeID || seen[id] {
			return
		}
		if n, ok := s.nodes[nodeKey{containerID, id}]; ok {
			seen[id] = true
			out = append(out, n)
		}
	}

	if direction == DirectionOut || direction == DirectionBoth {
		for key, dests := range s.edges {
			if key.container != containerID || key.source != nodeID {
				continue
			}
			if edgeType != "" && key.typ != edgeType {
				continue
			}
			for dst := range dests {
				add(dst)
			}
		}
	}
	if direction == DirectionIn || direction == DirectionBoth {
		for key, dests := range s.edges {
			if key.container != containerID {
				continue
			}
			if edgeType != "" && key.typ != edgeType {
				continue
			}
			if _, ok := dests[nodeID]; ok {
				add(key.source)
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) NodesByType(_ context.Context, containerID uuid.UUID, nodeType string, limit int) ([]model.GraphNode, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.GraphNode
	for key, n := range s.nodes {
		if key.container != containerID || n.Type != nodeType {
			continue
		}
		out = append(out, n)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) SearchNodes(_ context.Context, containerID uuid.UUID, keywords []string, limit int) ([]model.GraphNode, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.GraphNode
	for key, n := range s.nodes {
		if key.container != containerID {
			continue
		}
		if !matchesAnyKeyword(n, keywords) {
			continue
		}
		out = append(out, n)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matchesAnyKeyword(n model.GraphNode, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(n.Label + " " + n.Summary)
	for _, kw := range keywords {
		if kw == "" {
			return true
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) DropContainer(_ context.Context, containerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.nodes {
		if k.container == containerID {
			delete(s.nodes, k)
		}
	}
	for k := range s.edges {
		if k.container == containerID {
			delete(s.edges, k)
		}
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }
