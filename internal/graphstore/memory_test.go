package graphstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/model"
)

func TestMemoryStore_NeighborsOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	container := uuid.New()

	require.NoError(t, s.UpsertNode(ctx, model.GraphNode{ContainerID: container, NodeID: "a", Type: "person"}))
	require.NoError(t, s.UpsertNode(ctx, model.GraphNode{ContainerID: container, NodeID: "b", Type: "person"}))
	require.NoError(t, s.UpsertEdge(ctx, model.GraphEdge{ContainerID: container, SourceID: "a", TargetID: "b", Type: "knows"}))

	out, err := s.Neighbors(ctx, container, "a", "knows", DirectionOut)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "b", out[0].NodeID)

	in, err := s.Neighbors(ctx, container, "b", "knows", DirectionIn)
	require.NoError(t, err)
	require.Len(t, in, 1)
	require.Equal(t, "a", in[0].NodeID)
}

func TestMemoryStore_DropContainerIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	c1, c2 := uuid.New(), uuid.New()

	require.NoError(t, s.UpsertNode(ctx, model.GraphNode{ContainerID: c1, NodeID: "x"}))
	require.NoError(t, s.UpsertNode(ctx, model.GraphNode{ContainerID: c2, NodeID: "x"}))

	require.NoError(t, s.DropContainer(ctx, c1))

	_, ok, _ := s.GetNode(ctx, c1, "x")
	require.False(t, ok)
	_, ok, _ = s.GetNode(ctx, c2, "x")
	require.True(t, ok)
}
