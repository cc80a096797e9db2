package graphquery

import (
	"context"

	"github.com/google/uuid"

	"corectx/internal/graphstore"
	"corectx/internal/model"
)

// relHydrator is the narrow slice of relstore.Store this package needs to
// turn source_chunk_ids into provenance snippets.
type relHydrator interface {
	GetChunk(ctx context.Context, id uuid.UUID) (model.Chunk, error)
	GetDocument(ctx context.Context, id uuid.UUID) (model.Document, error)
}

// ExecutionResult is the outcome of one NL graph-search request: the
// expanded node/edge set, hydrated provenance snippets keyed by node id,
// the query actually run, any validator warnings, and whether the
// deterministic fallback had to be used.
type ExecutionResult struct {
	Nodes        []model.GraphNode
	Edges        []model.GraphEdge
	Snippets     map[string]string
	Query        string
	Warnings     []string
	FallbackUsed bool
	Invalid      bool
}

const snippetPreviewLen = 320

// Run performs the full C10/C11 pipeline: translate (if a translator is
// configured), validate, execute against the graph store, and hydrate
// provenance snippets. On translator or validator failure it falls back
// once to the deterministic keyword-match query; if that also fails to
// validate, nothing is executed and it returns an empty result with
// Invalid set. An unparsable container id is reported the same way.
func Run(ctx context.Context, g graphstore.Store, rel relHydrator, translator Translator, req TranslateRequest) (ExecutionResult, error) {
	query, usedFallback, warnings, err := resolveQuery(ctx, translator, req)
	if err != nil {
		return ExecutionResult{Invalid: true}, nil
	}

	keywords := keywordsFromQuestion(req.Query)
	containerID, perr := uuid.Parse(req.ContainerID)
	if perr != nil {
		return ExecutionResult{Invalid: true}, nil
	}

	nodes, edges, err := execute(ctx, g, containerID, keywords, req.MaxHops, req.K)
	if err != nil {
		return ExecutionResult{}, err
	}

	snippets := hydrateSnippets(ctx, rel, nodes)

	return ExecutionResult{
		Nodes:        nodes,
		Edges:        edges,
		Snippets:     snippets,
		Query:        query,
		Warnings:     warnings,
		FallbackUsed: usedFallback,
	}, nil
}

// resolveQuery translates and validates; on any failure it builds the
// deterministic fallback and validates that instead. The fallback's own
// validation failure is surfaces via a non-nil error, which Run turns into
// GRAPH_QUERY_INVALID.
func resolveQuery(ctx context.Context, translator Translator, req TranslateRequest) (query string, usedFallback bool, warnings []string, err error) {
	if translator != nil {
		if q, terr := translator.Translate(ctx, req); terr == nil {
			vr := Validate(q, req.Schema, req.MaxHops)
			if vr.Err == nil {
				return q, false, vr.Warnings, nil
			}
		}
	}

	fallback := BuildFallbackQuery(req.ContainerID, req.Query, req.MaxHops, req.K)
	vr := Validate(fallback, req.Schema, req.MaxHops)
	if vr.Err != nil {
		return "", true, nil, vr.Err
	}
	return fallback, true, vr.Warnings, nil
}

// execute walks the graph store via its safe primitives: find seed nodes
// by keyword, then expand up to maxHops hops in both directions (one when
// maxHops <= 0; the NL-translated query is executed the same way since this store has
// no general-purpose query engine to hand it to, only node/edge/neighbor
// primitives scoped by container_id).
func execute(ctx context.Context, g graphstore.Store, containerID uuid.UUID, keywords []string, maxHops, k int) ([]model.GraphNode, []model.GraphEdge, error) {
	seeds, err := g.SearchNodes(ctx, containerID, keywords, k)
	if err != nil {
		return nil, nil, err
	}

	hops := maxHops
	if hops <= 0 {
		hops = 1
	}

	seen := map[string]model.GraphNode{}
	var edges []model.GraphEdge
	frontier := make([]string, 0, len(seeds))
	for _, n := range seeds {
		seen[n.NodeID] = n
		frontier = append(frontier, n.NodeID)
	}

	for hop := 0; hop < hops; hop++ {
		var next []string
		for _, nodeID := range frontier {
			neighbors, err := g.Neighbors(ctx, containerID, nodeID, "", graphstore.DirectionBoth)
			if err != nil {
				continue
			}
			for _, n := range neighbors {
				edges = append(edges, model.GraphEdge{ContainerID: containerID, SourceID: nodeID, TargetID: n.NodeID})
				if _, ok := seen[n.NodeID]; !ok {
					seen[n.NodeID] = n
					next = append(next, n.NodeID)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	nodes := make([]model.GraphNode, 0, len(seen))
	for _, n := range seen {
		nodes = append(nodes, n)
		if len(nodes) >= k && k > 0 {
			break
		}
	}
	return nodes, edges, nil
}

func hydrateSnippets(ctx context.Context, rel relHydrator, nodes []model.GraphNode) map[string]string {
	snippets := make(map[string]string, len(nodes))
	if rel == nil {
		return snippets
	}
	for _, n := range nodes {
		for _, chunkID := range n.SourceChunkIDs {
			chunk, err := rel.GetChunk(ctx, chunkID)
			if err != nil {
				continue
			}
			text := chunk.Text
			if len(text) > snippetPreviewLen {
				text = text[:snippetPreviewLen]
			}
			doc, err := rel.GetDocument(ctx, chunk.DocumentID)
			title := ""
			if err == nil {
				title = doc.Title
			}
			if title != "" {
				snippets[n.NodeID] = title + ": " + text
			} else {
				snippets[n.NodeID] = text
			}
			break
		}
	}
	return snippets
}
