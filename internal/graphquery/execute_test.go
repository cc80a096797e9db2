package graphquery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/graphstore"
	"corectx/internal/model"
)

type fakeRelHydrator struct {
	chunks    map[uuid.UUID]model.Chunk
	documents map[uuid.UUID]model.Document
}

func (f fakeRelHydrator) GetChunk(_ context.Context, id uuid.UUID) (model.Chunk, error) {
	c, ok := f.chunks[id]
	if !ok {
		return model.Chunk{}, errNotFound{}
	}
	return c, nil
}

func (f fakeRelHydrator) GetDocument(_ context.Context, id uuid.UUID) (model.Document, error) {
	d, ok := f.documents[id]
	if !ok {
		return model.Document{}, errNotFound{}
	}
	return d, nil
}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type stubTranslator struct {
	query string
	err   error
}

func (s stubTranslator) Translate(context.Context, TranslateRequest) (string, error) {
	return s.query, s.err
}

func seedGraph(t *testing.T, g *graphstore.MemoryStore, containerID uuid.UUID) (phoenix, alice model.GraphNode) {
	t.Helper()
	ctx := context.Background()
	chunkID := uuid.New()
	phoenix = model.GraphNode{ContainerID: containerID, NodeID: "phoenix", Label: "Phoenix Project", Type: "Project", Summary: "the phoenix project roadmap", SourceChunkIDs: []uuid.UUID{chunkID}}
	alice = model.GraphNode{ContainerID: containerID, NodeID: "alice", Label: "Alice Johnson", Type: "Person", Summary: "works on phoenix"}
	require.NoError(t, g.UpsertNode(ctx, phoenix))
	require.NoError(t, g.UpsertNode(ctx, alice))
	require.NoError(t, g.UpsertEdge(ctx, model.GraphEdge{ContainerID: containerID, SourceID: phoenix.NodeID, TargetID: alice.NodeID, Type: "WORKS_ON"}))
	_ = chunkID
	return phoenix, alice
}

func TestRun_UsesFallbackWhenNoTranslator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := graphstore.NewMemoryStore()
	containerID := uuid.New()
	seedGraph(t, g, containerID)

	rel := fakeRelHydrator{chunks: map[uuid.UUID]model.Chunk{}, documents: map[uuid.UUID]model.Document{}}
	req := TranslateRequest{ContainerID: containerID.String(), Query: "who works on phoenix", MaxHops: 2, K: 10}

	res, err := Run(ctx, g, rel, nil, req)
	require.NoError(t, err)
	require.True(t, res.FallbackUsed)
	require.False(t, res.Invalid)
	require.NotEmpty(t, res.Nodes)
}

func TestRun_UsesValidTranslatedQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := graphstore.NewMemoryStore()
	containerID := uuid.New()
	seedGraph(t, g, containerID)

	rel := fakeRelHydrator{}
	req := TranslateRequest{ContainerID: containerID.String(), Query: "who works on phoenix", MaxHops: 2, K: 10}
	translator := stubTranslator{query: `MATCH (n:Project) WHERE n.container_id = $cid RETURN n LIMIT 10`}

	res, err := Run(ctx, g, rel, translator, req)
	require.NoError(t, err)
	require.False(t, res.FallbackUsed)
	require.False(t, res.Invalid)
}

func TestRun_FallsBackWhenTranslatorErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := graphstore.NewMemoryStore()
	containerID := uuid.New()
	seedGraph(t, g, containerID)

	rel := fakeRelHydrator{}
	req := TranslateRequest{ContainerID: containerID.String(), Query: "who works on phoenix", MaxHops: 2, K: 10}
	translator := stubTranslator{err: errNotFound{}}

	res, err := Run(ctx, g, rel, translator, req)
	require.NoError(t, err)
	require.True(t, res.FallbackUsed)
}

func TestRun_InvalidContainerIDReportsInvalid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := graphstore.NewMemoryStore()

	req := TranslateRequest{ContainerID: "not-a-uuid", Query: "anything", MaxHops: 1, K: 5}
	res, err := Run(ctx, g, fakeRelHydrator{}, nil, req)
	require.NoError(t, err)
	require.True(t, res.Invalid)
}

func TestHydrateSnippets_PrefersDocumentTitle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	chunkID := uuid.New()
	docID := uuid.New()
	nodes := []model.GraphNode{{NodeID: "n1", SourceChunkIDs: []uuid.UUID{chunkID}}}
	rel := fakeRelHydrator{
		chunks:    map[uuid.UUID]model.Chunk{chunkID: {ID: chunkID, DocumentID: docID, Text: "hello world"}},
		documents: map[uuid.UUID]model.Document{docID: {ID: docID, Title: "Doc Title"}},
	}
	snippets := hydrateSnippets(ctx, rel, nodes)
	require.Equal(t, "Doc Title: hello world", snippets["n1"])
}
