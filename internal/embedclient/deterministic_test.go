package embedclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministic_SameInputSameVector(t *testing.T) {
	t.Parallel()
	e := NewDeterministic(32, 7)
	ctx := context.Background()

	v1, err := e.EmbedBatch(ctx, []string{"hello world"})
	require.NoError(t, err)
	v2, err := e.EmbedBatch(ctx, []string{"hello world"})
	require.NoError(t, err)

	require.Equal(t, v1, v2)
	require.Len(t, v1[0], 32)
}

func TestDeterministic_DifferentInputDifferentVector(t *testing.T) {
	t.Parallel()
	e := NewDeterministic(32, 7)
	ctx := context.Background()

	v1, _ := e.EmbedBatch(ctx, []string{"alpha"})
	v2, _ := e.EmbedBatch(ctx, []string{"beta"})

	require.NotEqual(t, v1, v2)
}

func TestNormalize_UnitLength(t *testing.T) {
	t.Parallel()
	v := Normalize([]float32{3, 4})
	require.InDelta(t, 1.0, float64(v[0]*v[0]+v[1]*v[1]), 1e-6)
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	t.Parallel()
	v := Normalize([]float32{0, 0, 0})
	require.Equal(t, []float32{0, 0, 0}, v)
}
