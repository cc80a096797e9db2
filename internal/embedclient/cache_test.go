package embedclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"corectx/internal/corerr"
	"corectx/internal/model"
)

type fakeRelStore struct {
	entries map[string]model.EmbeddingCacheEntry
}

func newFakeRelStore() *fakeRelStore {
	return &fakeRelStore{entries: map[string]model.EmbeddingCacheEntry{}}
}

func (f *fakeRelStore) key(contentHash string, modality model.Modality, embedderVer string) string {
	return contentHash + "|" + string(modality) + "|" + embedderVer
}

func (f *fakeRelStore) GetEmbedding(_ context.Context, contentHash string, modality model.Modality, embedderVer string) (model.EmbeddingCacheEntry, error) {
	e, ok := f.entries[f.key(contentHash, modality, embedderVer)]
	if !ok {
		return model.EmbeddingCacheEntry{}, corerr.NotFound("embedding cache entry")
	}
	return e, nil
}

func (f *fakeRelStore) PutEmbedding(_ context.Context, e model.EmbeddingCacheEntry) error {
	f.entries[f.key(e.ContentHash, e.Modality, e.EmbedderVer)] = e
	return nil
}

func TestPostgresCache_MissThenHit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache := NewPostgresCache(newFakeRelStore())

	_, err := cache.Get(ctx, "hash1", model.ModalityText, "v1")
	require.Error(t, err)
	require.Equal(t, corerr.KindNotFound, corerr.KindOf(err))

	entry := model.EmbeddingCacheEntry{ContentHash: "hash1", Modality: model.ModalityText, EmbedderVer: "v1", Vector: []float32{1, 2, 3}, Dimensions: 3}
	require.NoError(t, cache.Put(ctx, entry))

	got, err := cache.Get(ctx, "hash1", model.ModalityText, "v1")
	require.NoError(t, err)
	require.Equal(t, entry.Vector, got.Vector)
}
