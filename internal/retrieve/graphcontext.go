package retrieve

import (
	"context"

	"github.com/google/uuid"

	"corectx/internal/graphstore"
	"corectx/internal/model"
)

// expandGraphContext takes the top neighborK chunk ids, asks the graph
// store to expand their neighborhood up to maxHops, and returns the
// node/edge/snippet bundle attached to hybrid_graph responses.
func expandGraphContext(ctx context.Context, g graphstore.Store, containerID uuid.UUID, items []Item, neighborK, maxHops int) *GraphContext {
	if g == nil || len(items) == 0 || neighborK <= 0 || maxHops <= 0 {
		return nil
	}
	if neighborK > len(items) {
		neighborK = len(items)
	}

	seen := map[string]bool{}
	gc := &GraphContext{Snippets: map[string]string{}}

	frontier := make([]string, 0, neighborK)
	for i := 0; i < neighborK; i++ {
		id := items[i].Chunk.ID.String()
		frontier = append(frontier, id)
		gc.Snippets[id] = items[i].Snippet
	}

	for hop := 0; hop < maxHops; hop++ {
		var next []string
		for _, nodeID := range frontier {
			if seen[nodeID] {
				continue
			}
			seen[nodeID] = true
			if n, ok, err := g.GetNode(ctx, containerID, nodeID); err == nil && ok {
				gc.Nodes = append(gc.Nodes, n)
			}
			neighbors, err := g.Neighbors(ctx, containerID, nodeID, "", graphstore.DirectionBoth)
			if err != nil {
				continue
			}
			for _, n := range neighbors {
				// Neighbors returns adjacent nodes, not edge records, so the
				// traversed relation type isn't available here; callers that
				// need it look the edge up directly via the graph store.
				gc.Edges = append(gc.Edges, model.GraphEdge{
					ContainerID: containerID,
					SourceID:    nodeID,
					TargetID:    n.NodeID,
				})
				if !seen[n.NodeID] {
					next = append(next, n.NodeID)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	// nodes first reached on the last hop are recorded but not expanded
	for _, nodeID := range frontier {
		if seen[nodeID] {
			continue
		}
		seen[nodeID] = true
		if n, ok, err := g.GetNode(ctx, containerID, nodeID); err == nil && ok {
			gc.Nodes = append(gc.Nodes, n)
		}
	}
	return gc
}
