package retrieve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPReranker_ReordersByRelevanceScore(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Documents, 2)
		_ = json.NewEncoder(w).Encode(rerankResponse{Results: []rerankResult{
			{Index: 1, RelevanceScore: 0.9},
			{Index: 0, RelevanceScore: 0.1},
		}})
	}))
	defer srv.Close()

	reranker := NewHTTPReranker(srv.URL, "test-model", time.Second)
	ranked, err := reranker.Rerank(context.Background(), "default", "q", []string{"a", "b"}, []string{"text-a", "text-b"}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, ranked)
}

func TestHTTPReranker_EmptyHostIsNoop(t *testing.T) {
	t.Parallel()

	reranker := &HTTPReranker{}
	ranked, err := reranker.Rerank(context.Background(), "default", "q", []string{"a", "b"}, []string{"x", "y"}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ranked)
}

func TestHTTPReranker_ErrorStatusReturnsOriginalOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reranker := NewHTTPReranker(srv.URL, "test-model", time.Second)
	ranked, err := reranker.Rerank(context.Background(), "default", "q", []string{"a", "b"}, []string{"x", "y"}, 2)
	require.Error(t, err)
	require.Equal(t, []string{"a", "b"}, ranked)
}

type countingReranker struct {
	calls int
	ids   []string
}

func (c *countingReranker) Rerank(_ context.Context, _, _ string, ids []string, _ []string, _ int) ([]string, error) {
	c.calls++
	return ids, nil
}

func TestRerankResultCache_ReusesResultForIdenticalRequest(t *testing.T) {
	t.Parallel()

	inner := &countingReranker{}
	cache := NewRerankResultCache(inner, 16, time.Minute, nil)

	ids := []string{"a", "b"}
	_, err := cache.Rerank(context.Background(), "default", "q", ids, []string{"x", "y"}, 2)
	require.NoError(t, err)
	_, err = cache.Rerank(context.Background(), "default", "q", ids, []string{"x", "y"}, 2)
	require.NoError(t, err)

	require.Equal(t, 1, inner.calls)
}

func TestLRUCache_EvictsOldestBeyondCapacity(t *testing.T) {
	t.Parallel()

	c := newLRUCache(2)
	c.put("a", []string{"1"}, time.Minute)
	c.put("b", []string{"2"}, time.Minute)
	c.put("c", []string{"3"}, time.Minute)

	_, ok := c.get("a")
	require.False(t, ok)
	v, ok := c.get("c")
	require.True(t, ok)
	require.Equal(t, []string{"3"}, v)
}

func TestLRUCache_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	c := newLRUCache(4)
	c.put("a", []string{"1"}, -time.Second)
	_, ok := c.get("a")
	require.False(t, ok)
}

func TestRerankCacheKey_DiffersOnTopKOut(t *testing.T) {
	t.Parallel()

	k1 := rerankCacheKey("default", "q", 2, 1, []string{"a", "b"})
	k2 := rerankCacheKey("default", "q", 2, 2, []string{"a", "b"})
	require.NotEqual(t, k1, k2)
}
