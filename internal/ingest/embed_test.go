package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/embedclient"
	"corectx/internal/model"
	"corectx/internal/vectorstore"
)

type fakeCache struct {
	entries map[string]model.EmbeddingCacheEntry
	puts    int
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string]model.EmbeddingCacheEntry{}} }

func (c *fakeCache) Get(_ context.Context, contentHash string, modality model.Modality, embedderVer string) (model.EmbeddingCacheEntry, error) {
	e, ok := c.entries[contentHash+string(modality)+embedderVer]
	if !ok {
		return model.EmbeddingCacheEntry{}, errNotFoundStub{}
	}
	return e, nil
}

func (c *fakeCache) Put(_ context.Context, e model.EmbeddingCacheEntry) error {
	c.puts++
	c.entries[e.ContentHash+string(e.Modality)+e.EmbedderVer] = e
	return nil
}

type errNotFoundStub struct{}

func (errNotFoundStub) Error() string { return "not found" }

func TestCachedEmbed_MissThenHit(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	embedder := embedclient.NewDeterministic(16, 1)

	vec1, hit1, err := cachedEmbed(context.Background(), cache, embedder, "hello", model.ModalityText, DefaultEmbedCacheTTL)
	require.NoError(t, err)
	require.False(t, hit1)
	require.Len(t, vec1, 16)

	vec2, hit2, err := cachedEmbed(context.Background(), cache, embedder, "hello", model.ModalityText, DefaultEmbedCacheTTL)
	require.NoError(t, err)
	require.True(t, hit2)
	require.Equal(t, vec1, vec2)
}

func TestCachedEmbed_StaleEntryRecomputes(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	embedder := embedclient.NewDeterministic(16, 1)
	key := ChunkCacheKey("hello")
	cache.entries[key+string(model.ModalityText)+embedder.Name()] = model.EmbeddingCacheEntry{
		ContentHash: key,
		Modality:    model.ModalityText,
		EmbedderVer: embedder.Name(),
		Vector:      make([]float32, 16),
		LastUsed:    time.Now().Add(-60 * 24 * time.Hour),
	}

	_, hit, err := cachedEmbed(context.Background(), cache, embedder, "hello", model.ModalityText, DefaultEmbedCacheTTL)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 1, cache.puts)
}

func TestSemanticDuplicate_AboveThresholdReportsNeighbor(t *testing.T) {
	t.Parallel()

	store := vectorstore.NewMemoryStore()
	coll, err := store.Collection(context.Background(), uuid.New(), "text", 4)
	require.NoError(t, err)

	vec := []float32{1, 0, 0, 0}
	require.NoError(t, coll.Upsert(context.Background(), "existing-id", vec, nil))

	neighbor, isDup, err := semanticDuplicate(context.Background(), coll, vec, 0.96)
	require.NoError(t, err)
	require.True(t, isDup)
	require.Equal(t, "existing-id", neighbor)
}

func TestSemanticDuplicate_BelowThresholdIsFresh(t *testing.T) {
	t.Parallel()

	store := vectorstore.NewMemoryStore()
	coll, err := store.Collection(context.Background(), uuid.New(), "text", 4)
	require.NoError(t, err)

	require.NoError(t, coll.Upsert(context.Background(), "existing-id", []float32{1, 0, 0, 0}, nil))

	_, isDup, err := semanticDuplicate(context.Background(), coll, []float32{0, 1, 0, 0}, 0.96)
	require.NoError(t, err)
	require.False(t, isDup)
}
