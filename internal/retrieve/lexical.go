package retrieve

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"corectx/internal/relstore"
)

type lexicalSearcher interface {
	LexicalSearch(ctx context.Context, containerID uuid.UUID, query string, limit int) ([]relstore.LexicalResult, error)
}

// lexicalFanout runs BM25 search for every (container, query variant) pair
// concurrently and merges hits per chunk, keeping the highest score seen
// across variants, per spec.md's query-expansion aggregation rule.
func lexicalFanout(ctx context.Context, rel lexicalSearcher, resolved []resolvedContainer, variants []string, limit int) (map[uuid.UUID]relstore.LexicalResult, error) {
	if len(resolved) == 0 || len(variants) == 0 || limit <= 0 {
		return nil, nil
	}

	type hit struct {
		res relstore.LexicalResult
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make(chan hit, len(resolved)*len(variants)*limit)

	for _, rc := range resolved {
		rc := rc
		for _, variant := range variants {
			variant := variant
			g.Go(func() error {
				rows, err := rel.LexicalSearch(gctx, rc.Container.ID, variant, limit)
				if err != nil {
					return err
				}
				for _, r := range rows {
					if !allowsModality(rc.Manifest.Modalities, r.Chunk.Modality) {
						continue
					}
					results <- hit{res: r}
				}
				return nil
			})
		}
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	merged := make(map[uuid.UUID]relstore.LexicalResult)
	for h := range results {
		existing, ok := merged[h.res.Chunk.ID]
		if !ok || h.res.Score > existing.Score {
			merged[h.res.Chunk.ID] = h.res
		}
	}
	return merged, nil
}
