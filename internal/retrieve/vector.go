package retrieve

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"corectx/internal/model"
	"corectx/internal/vectorstore"
)

type chunkHydrator interface {
	GetChunk(ctx context.Context, id uuid.UUID) (model.Chunk, error)
}

type vectorHit struct {
	Chunk model.Chunk
	Score float64
}

// vectorFanout takes one query vector per variant and fans out cosine
// search across every (container, modality) collection allowed by the
// container's manifest, hydrating chunk rows from the relational store.
// A collection or search failure is recorded as vectorDown=true but
// does not abort sibling lookups; a hit whose chunk row cannot be
// hydrated is dropped.
func vectorFanout(ctx context.Context, vec vectorstore.Store, rel chunkHydrator, resolved []resolvedContainer, vectors [][]float32, limit int) (map[uuid.UUID]vectorHit, bool) {
	if len(resolved) == 0 || len(vectors) == 0 || limit <= 0 {
		return nil, false
	}

	type found struct {
		id    uuid.UUID
		score float64
	}

	var vectorDown atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	results := make(chan found, len(resolved)*4*limit)

	for _, rc := range resolved {
		rc := rc
		modalities := rc.Manifest.Modalities
		if len(modalities) == 0 {
			modalities = []model.Modality{model.ModalityText, model.ModalityPDF, model.ModalityImage, model.ModalityWeb}
		}
		for _, modality := range modalities {
			modality := modality
			for _, v := range vectors {
				v := v
				g.Go(func() error {
					coll, err := vec.Collection(gctx, rc.Container.ID, string(modality), len(v))
					if err != nil {
						vectorDown.Store(true)
						return nil
					}
					hits, err := coll.SimilaritySearch(gctx, v, limit, nil)
					if err != nil {
						vectorDown.Store(true)
						return nil
					}
					for _, h := range hits {
						id, err := uuid.Parse(h.ID)
						if err != nil {
							continue
						}
						results <- found{id: id, score: h.Score}
					}
					return nil
				})
			}
		}
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	best := make(map[uuid.UUID]float64)
	for f := range results {
		if s, ok := best[f.id]; !ok || f.score > s {
			best[f.id] = f.score
		}
	}

	out := make(map[uuid.UUID]vectorHit, len(best))
	for id, score := range best {
		chunk, err := rel.GetChunk(ctx, id)
		if err != nil {
			continue
		}
		out[id] = vectorHit{Chunk: chunk, Score: score}
	}
	return out, vectorDown.Load()
}
