package retrieve

import (
	"bytes"
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Reranker reorders a set of candidate chunk ids given the query. It
// returns ids in final rank order; implementations must return every id
// given, appending any they can't score at the end in prior order.
type Reranker interface {
	Rerank(ctx context.Context, provider, query string, ids []string, texts []string, topKOut int) ([]string, error)
}

// NoopReranker leaves ordering unchanged; used when rerank is disabled.
type NoopReranker struct{}

func (NoopReranker) Rerank(_ context.Context, _, _ string, ids []string, _ []string, _ int) ([]string, error) {
	return ids, nil
}

// HTTPReranker POSTs the candidate texts to a remote cross-encoder
// endpoint (llama.cpp-style rerank server), the same wire shape as the
// teacher's sefii package's local reranker client.
type HTTPReranker struct {
	Host       string
	Model      string
	httpClient *http.Client
}

func NewHTTPReranker(host, model string, timeout time.Duration) *HTTPReranker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPReranker{Host: host, Model: model, httpClient: &http.Client{Timeout: timeout}}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	TopN      int      `json:"top_n"`
	Documents []string `json:"documents"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

func (r *HTTPReranker) Rerank(ctx context.Context, _, query string, ids []string, texts []string, topKOut int) ([]string, error) {
	if r.Host == "" || len(ids) == 0 {
		return ids, nil
	}
	payload, err := json.Marshal(rerankRequest{Model: r.Model, Query: query, TopN: topKOut, Documents: texts})
	if err != nil {
		return ids, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Host, bytes.NewReader(payload))
	if err != nil {
		return ids, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return ids, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return ids, fmt.Errorf("rerank failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ids, err
	}

	ranked := make([]string, 0, len(parsed.Results))
	used := make(map[int]bool, len(parsed.Results))
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(ids) {
			continue
		}
		ranked = append(ranked, ids[res.Index])
		used[res.Index] = true
	}
	for i, id := range ids {
		if !used[i] {
			ranked = append(ranked, id)
		}
	}
	return ranked, nil
}

// rerankCacheKey matches spec.md's cache key: (provider, query, top_k_in,
// top_k_out, ordered chunk-id tuple).
func rerankCacheKey(provider, query string, topKIn, topKOut int, ids []string) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{':'})
	h.Write([]byte(query))
	h.Write([]byte{':'})
	fmt.Fprintf(h, "%d:%d:", topKIn, topKOut)
	h.Write([]byte(strings.Join(ids, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// rerankResultCache fronts a Reranker with an LRU+TTL cache so identical
// rerank requests (same provider, query, budgets, and candidate set)
// never repeat the network call. When redisClient is nil it falls back
// to an in-process LRU so tests and infra-less deployments still work.
type rerankResultCache struct {
	inner       Reranker
	ttl         time.Duration
	redisClient redis.UniversalClient
	lru         *lruCache
}

func NewRerankResultCache(inner Reranker, capacity int, ttl time.Duration, redisClient redis.UniversalClient) *rerankResultCache {
	return &rerankResultCache{inner: inner, ttl: ttl, redisClient: redisClient, lru: newLRUCache(capacity)}
}

func (c *rerankResultCache) Rerank(ctx context.Context, provider, query string, ids []string, texts []string, topKOut int) ([]string, error) {
	key := rerankCacheKey(provider, query, len(ids), topKOut, ids)

	if cached, ok := c.getCached(ctx, key); ok {
		return cached, nil
	}

	ranked, err := c.inner.Rerank(ctx, provider, query, ids, texts, topKOut)
	if err != nil {
		return ranked, err
	}
	c.putCached(ctx, key, ranked)
	return ranked, nil
}

func (c *rerankResultCache) getCached(ctx context.Context, key string) ([]string, bool) {
	if c.redisClient != nil {
		val, err := c.redisClient.Get(ctx, "rerank:"+key).Result()
		if err == nil {
			var ids []string
			if json.Unmarshal([]byte(val), &ids) == nil {
				return ids, true
			}
		}
	}
	return c.lru.get(key)
}

func (c *rerankResultCache) putCached(ctx context.Context, key string, ids []string) {
	if c.redisClient != nil {
		if data, err := json.Marshal(ids); err == nil {
			_ = c.redisClient.Set(ctx, "rerank:"+key, data, c.ttl).Err()
		}
	}
	c.lru.put(key, ids, c.ttl)
}

// lruCache is a small dependency-free LRU+TTL cache: no example repo in
// the pack ships one, so this adapts the teacher's hand-rolled
// map-plus-mutex cache pattern (internal/skills/redis_cache.go) to an
// eviction-ordered list instead of unbounded growth.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type lruEntry struct {
	key       string
	value     []string
	expiresAt time.Time
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 2048
	}
	return &lruCache{capacity: capacity, ll: list.New(), items: make(map[string]*list.Element)}
}

func (c *lruCache) get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*lruEntry)
	if time.Now().After(entry.expiresAt) {
		c.ll.Remove(el)
		delete(c.items, key)
		return nil, false
	}
	c.ll.MoveToFront(el)
	return entry.value, true
}

func (c *lruCache) put(key string, value []string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).value = value
		el.Value.(*lruEntry).expiresAt = time.Now().Add(ttl)
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&lruEntry{key: key, value: value, expiresAt: time.Now().Add(ttl)})
	c.items[key] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
}
