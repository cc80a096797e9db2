package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/graphquery"
	"corectx/internal/ingest"
	"corectx/internal/retrieve"
)

func TestTranslateRequest_AdaptsFieldsAndStringifiesContainerID(t *testing.T) {
	t.Parallel()

	cid := uuid.New()
	req := GraphSearchRequest{
		ContainerID: cid,
		Query:       "who owns phoenix",
		Schema:      graphquery.Schema{Labels: []string{"Project"}},
		MaxHops:     2,
		K:           5,
	}

	tr := TranslateRequest(req)
	require.Equal(t, cid.String(), tr.ContainerID)
	require.Equal(t, req.Query, tr.Query)
	require.Equal(t, req.Schema, tr.Schema)
	require.Equal(t, 2, tr.MaxHops)
	require.Equal(t, 5, tr.K)
}

func TestOverBudget_ZeroWhenWithinBudget(t *testing.T) {
	t.Parallel()

	got := overBudget(1000, map[string]int64{"lexical": 100, "vector": 200})
	require.Equal(t, int64(0), got)
}

func TestOverBudget_PositiveWhenExceeded(t *testing.T) {
	t.Parallel()

	got := overBudget(100, map[string]int64{"lexical": 80, "vector": 90})
	require.Equal(t, int64(70), got)
}

func TestDiagnosticsFromResponse_CarriesIssuesAndRerankFlag(t *testing.T) {
	t.Parallel()

	resp := retrieve.Response{
		Diagnostics: retrieve.Diagnostics{
			RequestID:  "req-1",
			TimingsMS:  map[string]int64{"lexical": 50},
			Issues:     []string{"RERANK_TIMEOUT"},
			BudgetMS:   1000,
			RerankUsed: true,
		},
	}

	rec := diagnosticsFromResponse(resp)
	require.Equal(t, "req-1", rec.RequestID)
	require.Equal(t, int64(50), rec.TimingsMS["lexical"])
	require.Equal(t, []string{"RERANK_TIMEOUT"}, rec.Issues)
	require.True(t, rec.RerankApplied)
	require.Equal(t, int64(0), rec.OverBudgetMS)
}

func TestDiagnosticsForIngest_CarriesChunkCount(t *testing.T) {
	t.Parallel()

	cid := uuid.New()
	req := ingest.Request{ContainerID: cid}
	result := ingest.Result{Stats: ingest.Stats{NumChunks: 7}}

	rec := diagnosticsForIngest(req, result, 0)
	require.Equal(t, cid.String(), rec.RequestID)
	require.Equal(t, 7, rec.HitCounts["chunks"])
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestPingOK_NilPingerIsFalse(t *testing.T) {
	t.Parallel()
	require.False(t, pingOK(context.Background(), nil))
}

func TestPingOK_TrueWhenPingSucceeds(t *testing.T) {
	t.Parallel()
	require.True(t, pingOK(context.Background(), fakePinger{}))
}

func TestPingOK_FalseWhenPingFails(t *testing.T) {
	t.Parallel()
	require.False(t, pingOK(context.Background(), fakePinger{err: errors.New("down")}))
}

func TestGraphSearch_ReportsInvalidWhenNoGraphStoreConfigured(t *testing.T) {
	t.Parallel()

	s := &Service{}
	res, err := s.GraphSearch(context.Background(), GraphSearchRequest{ContainerID: uuid.New(), Query: "anything"})
	require.NoError(t, err)
	require.True(t, res.Invalid)
}
