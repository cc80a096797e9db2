package graphquery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanQueryText_StripsCodeFencesAndLeadingProse(t *testing.T) {
	t.Parallel()
	raw := "Sure, here's the query:\n```cypher\nMATCH (n) WHERE n.container_id = $cid RETURN n LIMIT 10\n```"
	got := cleanQueryText(raw)
	require.Equal(t, "MATCH (n) WHERE n.container_id = $cid RETURN n LIMIT 10", got)
}

func TestEnsureLimit_AppendsWhenAbsent(t *testing.T) {
	t.Parallel()
	q := ensureLimit("MATCH (n) WHERE n.container_id = $cid RETURN n", 10)
	require.Contains(t, q, "LIMIT 10")
}

func TestEnsureLimit_LeavesExistingLimitAlone(t *testing.T) {
	t.Parallel()
	q := ensureLimit("MATCH (n) RETURN n LIMIT 5", 10)
	require.Equal(t, "MATCH (n) RETURN n LIMIT 5", q)
}

func TestStripBannedFunctions_RemovesJSONHelpers(t *testing.T) {
	t.Parallel()
	q := stripBannedFunctions("RETURN apoc.convert.toJson(n)")
	require.NotContains(t, q, "apoc.convert.toJson")
}

func TestNormalizeTranslated_FullPipeline(t *testing.T) {
	t.Parallel()
	raw := "```cypher\nMATCH (n) WHERE n.container_id = $cid RETURN n\n```"
	got := normalizeTranslated(raw, 25)
	require.Contains(t, got, "$cid")
	require.Contains(t, got, "LIMIT 25")
}
