package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"corectx/internal/graphquery"
	"corectx/internal/graphstore"
	"corectx/internal/model"
)

const (
	graphLabelDocument = "Document"
	graphLabelChunk    = "Chunk"
	graphLabelEntity   = "Entity"
	graphRelHasChunk   = "HAS_CHUNK"
	graphRelMentions   = "MENTIONS"
)

func graphEntityNodeID(containerID uuid.UUID, entityID string) string {
	return fmt.Sprintf("entity:%s:%s", containerID, entityID)
}

// upsertDocumentGraph writes the Document node, one Chunk node per live
// (non-duplicate) chunk, and the HAS_CHUNK edges connecting them. Failures
// are returned to the caller, which logs and continues per the ingest
// failure semantics — relational commit is never rolled back for a graph
// error.
func upsertDocumentGraph(ctx context.Context, g graphstore.Store, doc model.Document, chunks []model.Chunk) error {
	if g == nil {
		return nil
	}
	docNodeID := doc.ID.String()
	if err := g.UpsertNode(ctx, model.GraphNode{
		ContainerID: doc.ContainerID,
		NodeID:      docNodeID,
		Label:       graphLabelDocument,
		Type:        string(graphquery.NodeDocument),
		Summary:     doc.Title,
		Props:       map[string]any{"uri": doc.URI, "modality": string(doc.Modality), "hash": doc.Hash},
	}); err != nil {
		return err
	}

	for _, c := range chunks {
		if c.IsDuplicate() {
			continue
		}
		chunkNodeID := c.ID.String()
		if err := g.UpsertNode(ctx, model.GraphNode{
			ContainerID: c.ContainerID,
			NodeID:      chunkNodeID,
			Label:       graphLabelChunk,
			Type:        string(graphquery.NodeDocument),
			Summary:     truncate(c.Text, 240),
			Props:       map[string]any{"doc_id": doc.ID.String(), "chunk_index": c.Provenance.ChunkIndex},
		}); err != nil {
			return err
		}
		if err := g.UpsertEdge(ctx, model.GraphEdge{
			ContainerID:    doc.ContainerID,
			SourceID:       docNodeID,
			TargetID:       chunkNodeID,
			Type:           graphRelHasChunk,
			SourceChunkIDs: []uuid.UUID{c.ID},
		}); err != nil {
			return err
		}
	}
	return nil
}

// extractAndUpsertEntities runs the configured entity extractor (or the
// dependency-free heuristic fallback) over a chunk's text and writes its
// Entity nodes, MENTIONS edges from the chunk, and co-occurrence/typed
// relations between entities.
func extractAndUpsertEntities(ctx context.Context, g graphstore.Store, extractor graphquery.EntityExtractor, chunk model.Chunk, lang string) error {
	if g == nil || extractor == nil || chunk.Text == "" {
		return nil
	}
	result, err := extractor.Extract(ctx, chunk.Text, lang)
	if err != nil {
		// fall back to the heuristic rather than losing this chunk's graph signal
		result, err = graphquery.HeuristicExtractor{}.Extract(ctx, chunk.Text, lang)
		if err != nil {
			return err
		}
	}

	chunkNodeID := chunk.ID.String()
	for _, e := range result.Entities {
		nodeID := graphEntityNodeID(chunk.ContainerID, e.ID)
		if err := g.UpsertNode(ctx, model.GraphNode{
			ContainerID:    chunk.ContainerID,
			NodeID:         nodeID,
			Label:          graphLabelEntity,
			Type:           string(e.Type),
			Summary:        e.Name,
			SourceChunkIDs: []uuid.UUID{chunk.ID},
		}); err != nil {
			return err
		}
		if err := g.UpsertEdge(ctx, model.GraphEdge{
			ContainerID:    chunk.ContainerID,
			SourceID:       chunkNodeID,
			TargetID:       nodeID,
			Type:           graphRelMentions,
			SourceChunkIDs: []uuid.UUID{chunk.ID},
		}); err != nil {
			return err
		}
	}
	for _, r := range result.Relations {
		src := graphEntityNodeID(chunk.ContainerID, r.SourceID)
		dst := graphEntityNodeID(chunk.ContainerID, r.TargetID)
		if err := g.UpsertEdge(ctx, model.GraphEdge{
			ContainerID:    chunk.ContainerID,
			SourceID:       src,
			TargetID:       dst,
			Type:           string(r.Type),
			SourceChunkIDs: []uuid.UUID{chunk.ID},
		}); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
