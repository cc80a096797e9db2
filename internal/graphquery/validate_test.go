package graphquery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_RejectsEmptyQuery(t *testing.T) {
	t.Parallel()
	vr := Validate("", Schema{}, 2)
	require.Error(t, vr.Err)
}

func TestValidate_RejectsForbiddenKeyword(t *testing.T) {
	t.Parallel()
	q := `MATCH (n) WHERE n.container_id = $cid DETACH DELETE n LIMIT 10`
	vr := Validate(q, Schema{}, 2)
	require.Error(t, vr.Err)
}

func TestValidate_RejectsMissingCIDOrLimit(t *testing.T) {
	t.Parallel()
	require.Error(t, Validate(`MATCH (n) RETURN n LIMIT 10`, Schema{}, 2).Err)
	require.Error(t, Validate(`MATCH (n) WHERE n.container_id = $cid RETURN n`, Schema{}, 2).Err)
}

func TestValidate_RejectsHopRangeExceedingMaxHops(t *testing.T) {
	t.Parallel()
	q := `MATCH (n)-[r*1..5]-(m) WHERE n.container_id = $cid RETURN n, m LIMIT 10`
	vr := Validate(q, Schema{}, 2)
	require.Error(t, vr.Err)
}

func TestValidate_AnnotatesUnknownLabelsWithoutRejecting(t *testing.T) {
	t.Parallel()
	q := `MATCH (n:Widget) WHERE n.container_id = $cid RETURN n LIMIT 10`
	vr := Validate(q, Schema{Labels: []string{"Person"}}, 2)
	require.NoError(t, vr.Err)
	require.Contains(t, vr.Warnings[0], "Widget")
}

func TestValidate_AcceptsWellFormedQuery(t *testing.T) {
	t.Parallel()
	q := `MATCH (n:Person) WHERE n.container_id = $cid RETURN n LIMIT 10`
	vr := Validate(q, Schema{Labels: []string{"Person"}}, 2)
	require.NoError(t, vr.Err)
	require.Empty(t, vr.Warnings)
}
