// Package vectorstore adapts per-(container, modality) vector collections
// to a single cosine-similarity-search interface, with Qdrant as the
// primary backend, pgvector as a fallback, and an in-memory implementation
// for tests.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Result is a single nearest-neighbor hit. Score is always "higher is
// closer": for cosine similarity this is the raw similarity; for distance
// metrics, callers negate so ordering stays consistent.
type Result struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Collection is a single named vector collection (one per container +
// modality pair, e.g. `c_<container_id>_text`).
type Collection interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error)
	Dimension() int
}

// Store routes to (and lazily creates) collections, and supports dropping
// every collection belonging to a container on container deletion.
type Store interface {
	Collection(ctx context.Context, containerID uuid.UUID, modality string, dimensions int) (Collection, error)
	DropContainer(ctx context.Context, containerID uuid.UUID) error
	Ping(ctx context.Context) error
	Close() error
}

// CollectionName builds the `c_<container_id>_<modality>` collection name
// used by every backend, per the persisted-state layout.
func CollectionName(containerID uuid.UUID, modality string) string {
	return fmt.Sprintf("c_%s_%s", containerID.String(), modality)
}
