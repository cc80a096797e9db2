package jobqueue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/ingest"
	"corectx/internal/model"
)

func TestEncodeDecodeIngestPayload_RoundTrips(t *testing.T) {
	t.Parallel()

	containerID := uuid.New()
	req := ingest.Request{
		ContainerID: containerID,
		Source: ingest.Source{
			URI:      "inline:x",
			MIME:     "text/plain",
			Modality: model.ModalityText,
			Title:    "demo",
			Meta:     map[string]any{"text": "alpha beta gamma"},
		},
	}

	payload, err := EncodeIngestPayload(req)
	require.NoError(t, err)

	decoded, err := decodeIngestRequest(payload)
	require.NoError(t, err)
	require.Equal(t, req.ContainerID, decoded.ContainerID)
	require.Equal(t, req.Source.URI, decoded.Source.URI)
	require.Equal(t, req.Source.Modality, decoded.Source.Modality)
	require.Equal(t, "alpha beta gamma", decoded.Source.Meta["text"])
}

func TestDecodeIngestRequest_RejectsMissingContainerID(t *testing.T) {
	t.Parallel()

	_, err := decodeIngestRequest(map[string]any{"source": map[string]any{"uri": "inline:x"}})
	require.Error(t, err)
}

func TestIngestHandler_RejectsWrongJobKind(t *testing.T) {
	t.Parallel()

	handler := IngestHandler(nil)
	err := handler(nil, model.Job{Kind: model.JobRefresh})
	require.Error(t, err)
}

func TestTruncateErrMsg_BoundsLength(t *testing.T) {
	t.Parallel()

	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateErrMsg(string(long))
	require.LessOrEqual(t, len(got), maxErrMsgLen)
}
