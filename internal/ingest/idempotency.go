package ingest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"corectx/internal/corerr"
	"corectx/internal/model"
)

// documentLookup is the narrow relstore capability idempotency resolution
// needs, kept separate from the full Store type so tests can fake it.
type documentLookup interface {
	GetDocumentByHash(ctx context.Context, containerID uuid.UUID, hash string) (model.Document, error)
	ChunksForDocument(ctx context.Context, documentID uuid.UUID) ([]model.Chunk, error)
}

type idempotencyAction int

const (
	actionCreate idempotencyAction = iota
	actionNoOp
	actionRecover
)

type idempotencyDecision struct {
	Action   idempotencyAction
	Existing model.Document
}

// resolveIdempotency implements the dedup-on-hash rule: an existing
// document with chunks is a no-op; an existing document with zero chunks
// is a recovery (metadata refresh, re-run ingestion); no existing document
// creates one.
func resolveIdempotency(ctx context.Context, lookup documentLookup, containerID uuid.UUID, hash string) (idempotencyDecision, error) {
	doc, err := lookup.GetDocumentByHash(ctx, containerID, hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || corerr.Is(err, corerr.KindNotFound) {
			return idempotencyDecision{Action: actionCreate}, nil
		}
		return idempotencyDecision{}, err
	}

	chunks, err := lookup.ChunksForDocument(ctx, doc.ID)
	if err != nil {
		return idempotencyDecision{}, err
	}
	if len(chunks) > 0 {
		return idempotencyDecision{Action: actionNoOp, Existing: doc}, nil
	}
	return idempotencyDecision{Action: actionRecover, Existing: doc}, nil
}
