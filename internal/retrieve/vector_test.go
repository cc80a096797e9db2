package retrieve

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/manifest"
	"corectx/internal/model"
	"corectx/internal/vectorstore"
)

type fakeChunkHydrator struct {
	byID map[uuid.UUID]model.Chunk
}

func (f fakeChunkHydrator) GetChunk(_ context.Context, id uuid.UUID) (model.Chunk, error) {
	c, ok := f.byID[id]
	if !ok {
		return model.Chunk{}, errNotFoundStub{}
	}
	return c, nil
}

func TestVectorFanout_FindsBestScoreAcrossModalities(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	containerID := uuid.New()
	chunkID := uuid.New()

	coll, err := store.Collection(ctx, containerID, string(model.ModalityText), 3)
	require.NoError(t, err)
	require.NoError(t, coll.Upsert(ctx, chunkID.String(), []float32{1, 0, 0}, nil))

	resolved := []resolvedContainer{
		{
			Container: model.Container{ID: containerID},
			Manifest:  manifest.Manifest{Modalities: []model.Modality{model.ModalityText}},
		},
	}
	hydrator := fakeChunkHydrator{byID: map[uuid.UUID]model.Chunk{chunkID: {ID: chunkID, ContainerID: containerID}}}

	hits, down := vectorFanout(ctx, store, hydrator, resolved, [][]float32{{1, 0, 0}}, 5)
	require.False(t, down)
	require.Contains(t, hits, chunkID)
	require.InDelta(t, 1.0, hits[chunkID].Score, 0.001)
}

func TestVectorFanout_EmptyCollectionIsNotDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	containerID := uuid.New()

	resolved := []resolvedContainer{
		{
			Container: model.Container{ID: containerID},
			Manifest:  manifest.Manifest{Modalities: []model.Modality{model.ModalityText}},
		},
	}
	hydrator := fakeChunkHydrator{byID: map[uuid.UUID]model.Chunk{}}

	hits, down := vectorFanout(ctx, store, hydrator, resolved, [][]float32{{1, 0, 0}}, 5)
	require.False(t, down)
	require.Empty(t, hits)
}

func TestVectorFanout_EmptyInputsNoOp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	hits, down := vectorFanout(ctx, store, fakeChunkHydrator{}, nil, [][]float32{{1}}, 5)
	require.Nil(t, hits)
	require.False(t, down)
}
