package ingest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/corerr"
	"corectx/internal/model"
)

type fakeLookup struct {
	doc     model.Document
	docErr  error
	chunks  []model.Chunk
	chunkErr error
}

func (f fakeLookup) GetDocumentByHash(context.Context, uuid.UUID, string) (model.Document, error) {
	return f.doc, f.docErr
}

func (f fakeLookup) ChunksForDocument(context.Context, uuid.UUID) ([]model.Chunk, error) {
	return f.chunks, f.chunkErr
}

func TestResolveIdempotency_NoExistingDocumentCreates(t *testing.T) {
	t.Parallel()

	lookup := fakeLookup{docErr: corerr.NotFound("document")}
	decision, err := resolveIdempotency(context.Background(), lookup, uuid.New(), "hash")
	require.NoError(t, err)
	require.Equal(t, actionCreate, decision.Action)
}

func TestResolveIdempotency_ExistingWithChunksIsNoOp(t *testing.T) {
	t.Parallel()

	docID := uuid.New()
	lookup := fakeLookup{
		doc:    model.Document{ID: docID},
		chunks: []model.Chunk{{ID: uuid.New()}},
	}
	decision, err := resolveIdempotency(context.Background(), lookup, uuid.New(), "hash")
	require.NoError(t, err)
	require.Equal(t, actionNoOp, decision.Action)
	require.Equal(t, docID, decision.Existing.ID)
}

func TestResolveIdempotency_ExistingWithoutChunksRecovers(t *testing.T) {
	t.Parallel()

	docID := uuid.New()
	lookup := fakeLookup{doc: model.Document{ID: docID}}
	decision, err := resolveIdempotency(context.Background(), lookup, uuid.New(), "hash")
	require.NoError(t, err)
	require.Equal(t, actionRecover, decision.Action)
	require.Equal(t, docID, decision.Existing.ID)
}
