package graphquery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildFallbackQuery_ContainsCIDAndLimit(t *testing.T) {
	t.Parallel()
	q := BuildFallbackQuery("demo-container", "who works on project phoenix", 2, 20)
	require.Contains(t, q, "$cid")
	require.Contains(t, q, "LIMIT")
	require.Contains(t, q, "nodes")
	require.Contains(t, q, "rel_maps")
}

func TestBuildFallbackQuery_ValidatesClean(t *testing.T) {
	t.Parallel()
	q := BuildFallbackQuery("demo", "who owns the widget service", 3, 10)
	vr := Validate(q, Schema{}, 3)
	require.NoError(t, vr.Err)
}

func TestKeywordsFromQuestion_DropsShortTokens(t *testing.T) {
	t.Parallel()
	kws := keywordsFromQuestion("who is on it at XY team")
	for _, k := range kws {
		require.Greater(t, len(k), 2)
	}
}
