// Package graphstore is the container-scoped property graph backing
// NL-to-graph-query translation and graph-expansion retrieval: nodes and
// edges are always scoped by container_id so two containers' graphs never
// interleave, with a Postgres-backed implementation for production and an
// in-memory one for tests.
package graphstore

import (
	"context"

	"github.com/google/uuid"

	"corectx/internal/model"
)

// Store is the graph backend every container's (LLCNode/LLCEdge-labeled)
// property graph is persisted through.
type Store interface {
	UpsertNode(ctx context.Context, n model.GraphNode) error
	UpsertEdge(ctx context.Context, e model.GraphEdge) error
	GetNode(ctx context.Context, containerID uuid.UUID, nodeID string) (model.GraphNode, bool, error)
	Neighbors(ctx context.Context, containerID uuid.UUID, nodeID, edgeType string, direction Direction) ([]model.GraphNode, error)
	NodesByType(ctx context.Context, containerID uuid.UUID, nodeType string, limit int) ([]model.GraphNode, error)
	// SearchNodes returns nodes whose label or summary contains any of the
	// given keywords (case-insensitive), used by the NL-to-graph-query
	// fallback path when no translated query is available or trusted.
	SearchNodes(ctx context.Context, containerID uuid.UUID, keywords []string, limit int) ([]model.GraphNode, error)
	DropContainer(ctx context.Context, containerID uuid.UUID) error
	Ping(ctx context.Context) error
	Close() error
}

// Direction constrains a Neighbors traversal to outgoing edges, incoming
// edges, or both.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
	DirectionBoth
)
