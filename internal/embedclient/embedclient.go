// Package embedclient converts text and image content into normalized
// embedding vectors, fronting the configured provider with a rate limiter.
// Ingestion consults a Cache (Postgres-authoritative, optionally
// Redis-fronted) before calling the provider so repeated content never
// re-embeds; query embeddings in retrieve call the Embedder directly.
package embedclient

import (
	"context"
	"math"
	"sync"
	"time"

	"corectx/internal/corerr"
)

// Embedder converts batches of content into embedding vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error)
	Name() string
	Dimension() int
	Ping(ctx context.Context) error
}

// Normalize L2-normalizes v in place and returns it; a zero vector is
// returned unchanged (norm zero means "provider failed", handled by callers
// as the documented zero-vector fallback).
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// rateLimiter enforces a minimum delay between calls, mirroring a simple
// token-less throttle: no burst allowance, just a floor on inter-call
// spacing. Good enough for the batch-oriented embedding call pattern.
type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

func newRateLimiter(rps float64) *rateLimiter {
	if rps <= 0 {
		return &rateLimiter{}
	}
	return &rateLimiter{minDelay: time.Duration(float64(time.Second) / rps)}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	if r.minDelay == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.lastCall.IsZero() {
		if elapsed := time.Since(r.lastCall); elapsed < r.minDelay {
			select {
			case <-time.After(r.minDelay - elapsed):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	r.lastCall = time.Now()
	return nil
}

// errProviderUnavailable classifies every provider-side failure uniformly
// so ingest can fall back to a zero vector rather than failing the whole
// document, per the degraded-ingest invariant.
func errProviderUnavailable(name string, cause error) error {
	return corerr.Unavailable("embedding provider "+name+" unavailable", cause)
}
