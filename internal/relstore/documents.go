package relstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"corectx/internal/corerr"
	"corectx/internal/model"
)

// CreateDocument inserts a document row. Callers resolve the dedup-on-hash
// check (GetDocumentByHash) before calling this, per the ingest write
// ordering.
func (s *Store) CreateDocument(ctx context.Context, d model.Document) (model.Document, error) {
	if d.ID == uuid.Nil {
		d.ID = model.NewID()
	}
	meta, err := json.Marshal(d.Meta)
	if err != nil {
		return model.Document{}, corerr.Invalid("marshal document meta")
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	if d.State == "" {
		d.State = model.DocumentActive
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO documents(id, container_id, hash, uri, mime, modality, title, meta, state, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, d.ID, d.ContainerID, d.Hash, d.URI, d.MIME, string(d.Modality), d.Title, meta, string(d.State), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return model.Document{}, corerr.Wrap(corerr.KindInvalid, "create document", err)
	}
	return d, nil
}

const documentColumns = `id, container_id, hash, uri, mime, modality, title, meta, state, created_at, updated_at`

func scanDocument(row pgx.Row) (model.Document, error) {
	var d model.Document
	var modality, state string
	var meta []byte
	err := row.Scan(&d.ID, &d.ContainerID, &d.Hash, &d.URI, &d.MIME, &modality, &d.Title, &meta, &state, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Document{}, corerr.NotFound("document")
		}
		return model.Document{}, err
	}
	d.Modality = model.Modality(modality)
	d.State = model.DocumentState(state)
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &d.Meta)
	}
	return d, nil
}

// GetDocumentByHash implements the dedup-on-ingest-time-hash lookup.
func (s *Store) GetDocumentByHash(ctx context.Context, containerID uuid.UUID, hash string) (model.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE container_id=$1 AND hash=$2`, containerID, hash)
	return scanDocument(row)
}

func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (model.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	return scanDocument(row)
}

// UpdateDocumentState transitions a document's lifecycle state, e.g. into
// "degraded" after a failed re-embed.
func (s *Store) UpdateDocumentState(ctx context.Context, id uuid.UUID, state model.DocumentState) error {
	tag, err := s.pool.Exec(ctx, `UPDATE documents SET state=$2, updated_at=now() WHERE id=$1`, id, string(state))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return corerr.NotFound("document")
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return corerr.NotFound("document")
	}
	return nil
}

// ListDocuments returns every document in a container, newest first.
func (s *Store) ListDocuments(ctx context.Context, containerID uuid.UUID) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE container_id=$1 ORDER BY created_at DESC`, containerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
