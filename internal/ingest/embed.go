package ingest

import (
	"context"
	"time"

	"corectx/internal/embedclient"
	"corectx/internal/model"
	"corectx/internal/vectorstore"
)

// DefaultEmbedCacheTTL is used when config.EmbeddingConfig.CacheTTL is
// unset or fails to parse as a duration.
const DefaultEmbedCacheTTL = 30 * 24 * time.Hour

// cachedEmbed resolves one chunk's vector via the embedding cache before
// ever calling the provider. A stale cache row (older than ttl) is
// treated as a miss and recomputed.
func cachedEmbed(ctx context.Context, cache embedclient.Cache, embedder embedclient.Embedder, text string, modality model.Modality, ttl time.Duration) ([]float32, bool, error) {
	key := ChunkCacheKey(text)
	entry, err := cache.Get(ctx, key, modality, embedder.Name())
	if err == nil {
		if time.Since(entry.LastUsed) <= ttl {
			return entry.Vector, true, nil
		}
	}

	vecs, err := embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, false, err
	}
	vec := vecs[0]

	_ = cache.Put(ctx, model.EmbeddingCacheEntry{
		ContentHash: key,
		Modality:    modality,
		EmbedderVer: embedder.Name(),
		Vector:      vec,
		Dimensions:  len(vec),
		LastUsed:    time.Now().UTC(),
	})
	return vec, false, nil
}

// semanticDuplicate reports whether vec's nearest neighbor in coll scores
// at or above threshold, returning that neighbor's chunk id as a string.
func semanticDuplicate(ctx context.Context, coll vectorstore.Collection, vec []float32, threshold float64) (string, bool, error) {
	if coll == nil || threshold <= 0 {
		return "", false, nil
	}
	results, err := coll.SimilaritySearch(ctx, vec, 1, nil)
	if err != nil {
		return "", false, err
	}
	if len(results) == 0 {
		return "", false, nil
	}
	top := results[0]
	if top.Score >= threshold {
		return top.ID, true, nil
	}
	return "", false, nil
}
