package diagnostics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuilder_AccumulatesAndSnapshots(t *testing.T) {
	t.Parallel()

	b := NewBuilder("req-1")
	b.RecordStage("lexical", 12*time.Millisecond)
	b.RecordStage("vector", 34*time.Millisecond)
	b.RecordHitCount("lexical", 20)
	b.AddPolicy("hybrid_graph")
	b.AddPolicy("rerank")
	b.SetOverBudget(150 * time.Millisecond)
	b.SetRerank(true, map[string]any{"provider": "cohere"})
	b.SetGraphMeta(map[string]any{"hops": 2})
	b.AddIssue("partial_vector_failure")
	b.SetManifestVersion(3)

	rec := b.Build()
	require.Equal(t, "req-1", rec.RequestID)
	require.Equal(t, int64(12), rec.TimingsMS["lexical"])
	require.Equal(t, int64(34), rec.TimingsMS["vector"])
	require.Equal(t, 20, rec.HitCounts["lexical"])
	require.Equal(t, []string{"hybrid_graph", "rerank"}, rec.AppliedPolicies)
	require.Equal(t, int64(150), rec.OverBudgetMS)
	require.True(t, rec.RerankApplied)
	require.Equal(t, "cohere", rec.RerankMeta["provider"])
	require.Equal(t, 2, rec.GraphMeta["hops"])
	require.Equal(t, []string{"partial_vector_failure"}, rec.Issues)
	require.Equal(t, 3, rec.ManifestVersion)
}

func TestBuilder_NegativeOverBudgetIgnored(t *testing.T) {
	t.Parallel()

	b := NewBuilder("req-2")
	b.SetOverBudget(-5 * time.Millisecond)
	rec := b.Build()
	require.Equal(t, int64(0), rec.OverBudgetMS)
}

func TestBuilder_BuildIsIndependentSnapshots(t *testing.T) {
	t.Parallel()

	b := NewBuilder("req-3")
	b.AddIssue("first")
	first := b.Build()
	b.AddIssue("second")
	second := b.Build()

	require.Equal(t, []string{"first"}, first.Issues)
	require.Equal(t, []string{"first", "second"}, second.Issues)
}
