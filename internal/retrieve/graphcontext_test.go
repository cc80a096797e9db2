package retrieve

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/graphstore"
	"corectx/internal/model"
)

func TestExpandGraphContext_WalksNeighborsUpToMaxHops(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := graphstore.NewMemoryStore()
	containerID := uuid.New()

	chunkID := uuid.New()
	root := model.GraphNode{ContainerID: containerID, NodeID: chunkID.String(), Type: "Chunk"}
	mid := model.GraphNode{ContainerID: containerID, NodeID: "mid", Type: "Entity"}
	far := model.GraphNode{ContainerID: containerID, NodeID: "far", Type: "Entity"}

	require.NoError(t, g.UpsertNode(ctx, root))
	require.NoError(t, g.UpsertNode(ctx, mid))
	require.NoError(t, g.UpsertNode(ctx, far))
	require.NoError(t, g.UpsertEdge(ctx, model.GraphEdge{ContainerID: containerID, SourceID: root.NodeID, TargetID: mid.NodeID, Type: "MENTIONS"}))
	require.NoError(t, g.UpsertEdge(ctx, model.GraphEdge{ContainerID: containerID, SourceID: mid.NodeID, TargetID: far.NodeID, Type: "RELATED"}))

	items := []Item{{Chunk: model.Chunk{ID: chunkID}, Snippet: "root snippet"}}

	gc := expandGraphContext(ctx, g, containerID, items, 1, 2)
	require.NotNil(t, gc)

	nodeIDs := map[string]bool{}
	for _, n := range gc.Nodes {
		nodeIDs[n.NodeID] = true
	}
	require.True(t, nodeIDs[root.NodeID])
	require.True(t, nodeIDs[mid.NodeID])
	require.True(t, nodeIDs[far.NodeID])
	require.Equal(t, "root snippet", gc.Snippets[chunkID.String()])
}

func TestExpandGraphContext_NilWhenNoGraphStoreOrItems(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.Nil(t, expandGraphContext(ctx, nil, uuid.New(), []Item{{}}, 1, 1))
	require.Nil(t, expandGraphContext(ctx, graphstore.NewMemoryStore(), uuid.New(), nil, 1, 1))
	require.Nil(t, expandGraphContext(ctx, graphstore.NewMemoryStore(), uuid.New(), []Item{{}}, 0, 1))
}
