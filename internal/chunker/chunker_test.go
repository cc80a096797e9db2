package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_Defaults(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("word ", 400) // 2000 bytes
	spans := Split(text, DefaultOptions())

	require.NotEmpty(t, spans)
	for i, s := range spans {
		require.Equal(t, i, s.Index)
		require.NotEmpty(t, s.Text)
	}
}

func TestSplit_OverlapProducesRepeatedBoundaryText(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 1000)
	spans := Split(text, Options{Size: 100, Overlap: 20})

	require.Greater(t, len(spans), 1)
	require.LessOrEqual(t, spans[1].Start, spans[0].End)
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()
	spans := Split("hello world", DefaultOptions())
	require.Len(t, spans, 1)
	require.Equal(t, "hello world", spans[0].Text)
}

func TestSplit_Empty(t *testing.T) {
	t.Parallel()
	require.Empty(t, Split("", DefaultOptions()))
}
