package retrieve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandQuery_ProducesOriginalAndKeywordVariant(t *testing.T) {
	t.Parallel()

	variants := ExpandQuery("What is the config error in the repo?")
	require.Len(t, variants, 2)
	require.Equal(t, "What is the config error in the repo?", variants[0])
	require.Equal(t, "configuration failure repository", variants[1])
}

func TestExpandQuery_EmptyQueryYieldsNoVariants(t *testing.T) {
	t.Parallel()

	variants := ExpandQuery("")
	require.Empty(t, variants)
}

func TestExpandQuery_IdenticalVariantCollapses(t *testing.T) {
	t.Parallel()

	variants := ExpandQuery("widgets gadgets")
	require.Len(t, variants, 1)
}
