package ingest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/graphquery"
	"corectx/internal/graphstore"
	"corectx/internal/model"
)

func TestUpsertDocumentGraph_SkipsDuplicateChunks(t *testing.T) {
	t.Parallel()

	g := graphstore.NewMemoryStore()
	containerID := uuid.New()
	doc := model.Document{ID: uuid.New(), ContainerID: containerID, Title: "Doc"}
	live := model.Chunk{ID: uuid.New(), ContainerID: containerID, Text: "live chunk"}
	dup := uuid.New()
	duplicate := model.Chunk{ID: uuid.New(), ContainerID: containerID, Text: "dup chunk", DedupOf: &dup}

	err := upsertDocumentGraph(context.Background(), g, doc, []model.Chunk{live, duplicate})
	require.NoError(t, err)

	_, ok, err := g.GetNode(context.Background(), containerID, live.ID.String())
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = g.GetNode(context.Background(), containerID, duplicate.ID.String())
	require.NoError(t, err)
	require.False(t, ok)

	docNode, ok, err := g.GetNode(context.Background(), containerID, doc.ID.String())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, graphLabelDocument, docNode.Label)
}

func TestUpsertDocumentGraph_NilStoreNoOp(t *testing.T) {
	t.Parallel()

	err := upsertDocumentGraph(context.Background(), nil, model.Document{}, nil)
	require.NoError(t, err)
}

func TestExtractAndUpsertEntities_FallsBackToHeuristicOnExtractorError(t *testing.T) {
	t.Parallel()

	g := graphstore.NewMemoryStore()
	chunk := model.Chunk{ID: uuid.New(), ContainerID: uuid.New(), Text: "Acme Corp announced Project Helios."}

	err := extractAndUpsertEntities(context.Background(), g, failingExtractor{}, chunk, "english")
	require.NoError(t, err)

	nodes, err := g.NodesByType(context.Background(), chunk.ContainerID, string(graphquery.NodeConcept), 10)
	require.NoError(t, err)
	require.NotEmpty(t, nodes)
}

func TestExtractAndUpsertEntities_EmptyTextNoOp(t *testing.T) {
	t.Parallel()

	g := graphstore.NewMemoryStore()
	chunk := model.Chunk{ID: uuid.New(), ContainerID: uuid.New()}

	err := extractAndUpsertEntities(context.Background(), g, graphquery.HeuristicExtractor{}, chunk, "english")
	require.NoError(t, err)
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string, string) (graphquery.ExtractionResult, error) {
	return graphquery.ExtractionResult{}, assertErr{}
}

type assertErr struct{}

func (assertErr) Error() string { return "extractor unavailable" }
