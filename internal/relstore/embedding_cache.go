package relstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"corectx/internal/corerr"
	"corectx/internal/model"
)

// GetEmbedding looks up a cached embedding by its content-hash key, bumping
// last_used so the cache can expire on an LRU basis.
func (s *Store) GetEmbedding(ctx context.Context, contentHash string, modality model.Modality, embedderVer string) (model.EmbeddingCacheEntry, error) {
	row := s.pool.QueryRow(ctx, `
SELECT content_hash, modality, embedder_ver, vec, dimensions, last_used
FROM embedding_cache WHERE content_hash=$1 AND modality=$2 AND embedder_ver=$3
`, contentHash, string(modality), embedderVer)

	var e model.EmbeddingCacheEntry
	var mod string
	if err := row.Scan(&e.ContentHash, &mod, &e.EmbedderVer, &e.Vector, &e.Dimensions, &e.LastUsed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.EmbeddingCacheEntry{}, corerr.NotFound("embedding cache entry")
		}
		return model.EmbeddingCacheEntry{}, err
	}
	e.Modality = model.Modality(mod)

	_, _ = s.pool.Exec(ctx, `UPDATE embedding_cache SET last_used=now() WHERE content_hash=$1 AND modality=$2 AND embedder_ver=$3`,
		contentHash, string(modality), embedderVer)
	return e, nil
}

// PutEmbedding upserts a cache entry.
func (s *Store) PutEmbedding(ctx context.Context, e model.EmbeddingCacheEntry) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO embedding_cache(content_hash, modality, embedder_ver, vec, dimensions, last_used)
VALUES ($1,$2,$3,$4,$5,now())
ON CONFLICT (content_hash, modality, embedder_ver) DO UPDATE SET vec=EXCLUDED.vec, dimensions=EXCLUDED.dimensions, last_used=now()
`, e.ContentHash, string(e.Modality), e.EmbedderVer, e.Vector, e.Dimensions)
	return err
}

// EvictOlderThan deletes cache entries not touched since cutoff, returning
// the number removed. Intended to be run periodically by a maintenance job.
func (s *Store) EvictOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM embedding_cache WHERE last_used < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
