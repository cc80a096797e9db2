package retrieve

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/model"
	"corectx/internal/relstore"
)

func TestFuseRRF_CombinesBothSources(t *testing.T) {
	t.Parallel()

	idBoth := uuid.New()
	idLexOnly := uuid.New()
	idVecOnly := uuid.New()

	lexical := map[uuid.UUID]relstore.LexicalResult{
		idBoth:    {Chunk: model.Chunk{ID: idBoth}, Score: 0.9, Snippet: "both snippet"},
		idLexOnly: {Chunk: model.Chunk{ID: idLexOnly}, Score: 0.5, Snippet: "lex only"},
	}
	vector := map[uuid.UUID]vectorHit{
		idBoth:    {Chunk: model.Chunk{ID: idBoth}, Score: 0.8},
		idVecOnly: {Chunk: model.Chunk{ID: idVecOnly}, Score: 0.95},
	}

	items := fuseRRF(lexical, vector)
	require.Len(t, items, 3)

	var both Item
	for _, it := range items {
		if it.Chunk.ID == idBoth {
			both = it
		}
	}
	require.Greater(t, both.Score, 0.0)
	require.Equal(t, "both snippet", both.Snippet)
}

func TestApplyFreshness_DecaysOlderChunks(t *testing.T) {
	t.Parallel()

	now := time.Now()
	items := []Item{
		{Score: 1.0, Chunk: model.Chunk{Provenance: model.Provenance{IngestedAt: now}}},
		{Score: 1.0, Chunk: model.Chunk{Provenance: model.Provenance{IngestedAt: now.Add(-30 * 24 * time.Hour)}}},
	}
	applyFreshness(items, 0.02, now)
	require.Greater(t, items[0].Score, items[1].Score)
}

func TestApplyFreshness_ZeroLambdaNoOp(t *testing.T) {
	t.Parallel()

	items := []Item{{Score: 1.0, Chunk: model.Chunk{Provenance: model.Provenance{IngestedAt: time.Now().Add(-100 * 24 * time.Hour)}}}}
	applyFreshness(items, 0, time.Now())
	require.Equal(t, 1.0, items[0].Score)
}

func TestPseudoRerankBlend_BlendsAndTruncates(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Chunk: model.Chunk{ID: uuid.New()}, VectorScore: 0.9, BM25Score: 0.1, Snippet: "alpha beta", Explanation: map[string]any{}},
		{Chunk: model.Chunk{ID: uuid.New()}, VectorScore: 0.1, BM25Score: 0.9, Snippet: "gamma delta", Explanation: map[string]any{}},
	}
	out := pseudoRerankBlend(items, "alpha", 1)
	require.Len(t, out, 1)
	require.Contains(t, out[0].Snippet, "alpha")
}

func TestKeywordOverlap_FractionOfQueryTokensPresent(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.0, keywordOverlap("alpha beta", "alpha beta gamma"))
	require.Equal(t, 0.5, keywordOverlap("alpha beta", "alpha only"))
	require.Equal(t, 0.0, keywordOverlap("", "anything"))
}
