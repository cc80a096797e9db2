package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"corectx/internal/chunker"
	"corectx/internal/embedclient"
	"corectx/internal/model"
)

// chunkSpan is one chunking result: its text and byte offsets within the
// extracted document text.
type chunkSpan struct {
	Index int
	Text  string
	Start int
	End   int
}

func splitIntoSpans(text string, opt chunker.Options) []chunkSpan {
	raw := chunker.Split(text, opt)
	out := make([]chunkSpan, len(raw))
	for i, s := range raw {
		out[i] = chunkSpan{Index: s.Index, Text: s.Text, Start: s.Start, End: s.End}
	}
	return out
}

// parseChunkUUID best-effort parses a vector-store point id back into the
// chunk uuid it names; a vector store never stores ids it didn't receive
// from this package, so a parse failure means the collection is corrupt or
// foreign and the dedup match is ignored rather than trusted blindly.
func parseChunkUUID(id string) *uuid.UUID {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	return &parsed
}

// buildChunks splits the extracted text (or, for images, synthesizes the
// single implicit chunk), embeds each chunk through the cache, resolves
// semantic duplicates against the per-(container, modality) vector
// collection, and commits every chunk row. A fresh (non-duplicate) chunk's
// vector is upserted; a duplicate's is not, per the semantic-dedup rule.
func (p *Pipeline) buildChunks(ctx context.Context, doc model.Document, modality model.Modality, ext extraction, semanticThreshold float64, warnings *[]string) ([]model.Chunk, error) {
	var spans []chunkSpan
	if modality == model.ModalityImage {
		spans = []chunkSpan{{Index: 0, Text: "", Start: 0, End: 0}}
	} else {
		spans = splitIntoSpans(ext.Text, p.chunkOpts)
	}
	if len(spans) == 0 {
		return nil, nil
	}

	embedder := p.textEmbedder
	if modality == model.ModalityImage {
		embedder = p.imageEmbedder
	}
	dimensions := 0
	if embedder != nil {
		dimensions = embedder.Dimension()
	}

	vcoll, collErr := p.vec.Collection(ctx, doc.ContainerID, string(modality), dimensions)
	if collErr != nil {
		*warnings = append(*warnings, "vector collection unavailable: "+collErr.Error())
	}

	chunks := make([]model.Chunk, 0, len(spans))
	now := time.Now().UTC()

	for _, span := range spans {
		chunkText := span.Text
		if modality == model.ModalityImage {
			// the implicit image chunk carries no text; embed a stand-in so
			// the cache key and embedder call still have meaningful input
			chunkText = doc.Title
		}

		vec := p.embedChunk(ctx, embedder, chunkText, modality, dimensions, warnings)

		c := model.Chunk{
			ContainerID: doc.ContainerID,
			DocumentID:  doc.ID,
			Modality:    modality,
			Text:        span.Text,
			ByteStart:   span.Start,
			ByteEnd:     span.End,
			Provenance: model.Provenance{
				SourceURI:   doc.URI,
				IngestedAt:  now,
				Pipeline:    "ingest.Pipeline",
				ChunkIndex:  span.Index,
				TotalChunks: len(spans),
			},
			EmbedderVer: embedderName(embedder),
		}

		if vcoll != nil && len(vec) > 0 {
			if neighborID, isDup, err := semanticDuplicate(ctx, vcoll, vec, semanticThreshold); err == nil && isDup {
				c.DedupOf = parseChunkUUID(neighborID)
			}
		}

		created, err := p.rel.CreateChunk(ctx, c)
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, created)

		if vcoll != nil && len(vec) > 0 && !created.IsDuplicate() {
			meta := map[string]string{
				"chunk_id":     created.ID.String(),
				"doc_id":       doc.ID.String(),
				"container_id": doc.ContainerID.String(),
				"modality":     string(modality),
			}
			if err := vcoll.Upsert(ctx, created.ID.String(), vec, meta); err != nil {
				*warnings = append(*warnings, "vector upsert failed: "+err.Error())
			}
		}
	}

	return chunks, nil
}

// embedChunk resolves a chunk's vector via the cache/provider, falling
// back to a literal zero vector (logged as VECTOR_DOWN) on provider
// failure so downstream cosine scores stay neutral rather than failing
// the whole document.
func (p *Pipeline) embedChunk(ctx context.Context, embedder embedclient.Embedder, text string, modality model.Modality, dimensions int, warnings *[]string) []float32 {
	if embedder == nil {
		return nil
	}
	vec, _, err := cachedEmbed(ctx, p.cache, embedder, text, modality, p.cacheTTL)
	if err != nil {
		*warnings = append(*warnings, "VECTOR_DOWN: embedding provider unavailable: "+err.Error())
		return make([]float32, dimensions)
	}
	return vec
}

func embedderName(e embedclient.Embedder) string {
	if e == nil {
		return ""
	}
	return e.Name()
}
