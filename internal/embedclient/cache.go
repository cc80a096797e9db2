package embedclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"corectx/internal/model"
)

// Cache is the read-through/write-through embedding cache consulted before
// a provider call is made. A miss returns corerr.KindNotFound.
type Cache interface {
	Get(ctx context.Context, contentHash string, modality model.Modality, embedderVer string) (model.EmbeddingCacheEntry, error)
	Put(ctx context.Context, entry model.EmbeddingCacheEntry) error
}

// relationalStore is the subset of internal/relstore.Store this package
// depends on, kept narrow so tests can fake it without a real database.
type relationalStore interface {
	GetEmbedding(ctx context.Context, contentHash string, modality model.Modality, embedderVer string) (model.EmbeddingCacheEntry, error)
	PutEmbedding(ctx context.Context, e model.EmbeddingCacheEntry) error
}

// PostgresCache is the authoritative cache backend, a thin adapter over
// internal/relstore's embedding_cache table.
type PostgresCache struct {
	store relationalStore
}

func NewPostgresCache(store relationalStore) *PostgresCache {
	return &PostgresCache{store: store}
}

func (c *PostgresCache) Get(ctx context.Context, contentHash string, modality model.Modality, embedderVer string) (model.EmbeddingCacheEntry, error) {
	return c.store.GetEmbedding(ctx, contentHash, modality, embedderVer)
}

func (c *PostgresCache) Put(ctx context.Context, entry model.EmbeddingCacheEntry) error {
	return c.store.PutEmbedding(ctx, entry)
}

// RedisFrontedCache checks a Redis front cache before falling through to an
// authoritative backing Cache (normally PostgresCache), populating Redis on
// backing-store hits and writing through to both on Put. Redis is purely an
// accelerator: any Redis error falls through to the backing store rather
// than failing the lookup.
type RedisFrontedCache struct {
	client  redis.UniversalClient
	backing Cache
	ttl     time.Duration
}

func NewRedisFrontedCache(client redis.UniversalClient, backing Cache, ttl time.Duration) *RedisFrontedCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisFrontedCache{client: client, backing: backing, ttl: ttl}
}

func redisCacheKey(contentHash string, modality model.Modality, embedderVer string) string {
	return "embcache:" + string(modality) + ":" + embedderVer + ":" + contentHash
}

func (c *RedisFrontedCache) Get(ctx context.Context, contentHash string, modality model.Modality, embedderVer string) (model.EmbeddingCacheEntry, error) {
	key := redisCacheKey(contentHash, modality, embedderVer)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var entry model.EmbeddingCacheEntry
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
			return entry, nil
		}
	}

	entry, err := c.backing.Get(ctx, contentHash, modality, embedderVer)
	if err != nil {
		return model.EmbeddingCacheEntry{}, err
	}
	if data, mErr := json.Marshal(entry); mErr == nil {
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return entry, nil
}

func (c *RedisFrontedCache) Put(ctx context.Context, entry model.EmbeddingCacheEntry) error {
	if err := c.backing.Put(ctx, entry); err != nil {
		return err
	}
	key := redisCacheKey(entry.ContentHash, entry.Modality, entry.EmbedderVer)
	if data, err := json.Marshal(entry); err == nil {
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return nil
}
