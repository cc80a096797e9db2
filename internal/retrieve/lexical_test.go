package retrieve

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/manifest"
	"corectx/internal/model"
	"corectx/internal/relstore"
)

type fakeLexicalSearcher struct {
	byContainer map[uuid.UUID][]relstore.LexicalResult
}

func (f fakeLexicalSearcher) LexicalSearch(_ context.Context, containerID uuid.UUID, _ string, _ int) ([]relstore.LexicalResult, error) {
	return f.byContainer[containerID], nil
}

func TestLexicalFanout_MergesAcrossVariantsKeepingBestScore(t *testing.T) {
	t.Parallel()

	containerID := uuid.New()
	chunkID := uuid.New()
	rel := fakeLexicalSearcher{byContainer: map[uuid.UUID][]relstore.LexicalResult{
		containerID: {
			{Chunk: model.Chunk{ID: chunkID, Modality: model.ModalityText}, Score: 0.3, Snippet: "low"},
		},
	}}
	resolved := []resolvedContainer{{
		Container: model.Container{ID: containerID},
		Manifest:  manifest.Manifest{Modalities: []model.Modality{model.ModalityText}},
	}}

	merged, err := lexicalFanout(context.Background(), rel, resolved, []string{"q1", "q2"}, 10)
	require.NoError(t, err)
	require.Contains(t, merged, chunkID)
	require.Equal(t, 0.3, merged[chunkID].Score)
}

func TestLexicalFanout_DropsDisallowedModality(t *testing.T) {
	t.Parallel()

	containerID := uuid.New()
	chunkID := uuid.New()
	rel := fakeLexicalSearcher{byContainer: map[uuid.UUID][]relstore.LexicalResult{
		containerID: {
			{Chunk: model.Chunk{ID: chunkID, Modality: model.ModalityImage}, Score: 0.9},
		},
	}}
	resolved := []resolvedContainer{{
		Container: model.Container{ID: containerID},
		Manifest:  manifest.Manifest{Modalities: []model.Modality{model.ModalityText}},
	}}

	merged, err := lexicalFanout(context.Background(), rel, resolved, []string{"q1"}, 10)
	require.NoError(t, err)
	require.Empty(t, merged)
}

func TestLexicalFanout_EmptyInputsNoOp(t *testing.T) {
	t.Parallel()

	merged, err := lexicalFanout(context.Background(), fakeLexicalSearcher{}, nil, []string{"q"}, 10)
	require.NoError(t, err)
	require.Nil(t, merged)
}
