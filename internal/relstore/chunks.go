package relstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"corectx/internal/corerr"
	"corectx/internal/model"
)

func marshalProvenance(p model.Provenance) ([]byte, error) { return json.Marshal(p) }

// CreateChunk inserts a chunk row. A non-nil DedupOf marks it as a semantic
// duplicate excluded from default search.
func (s *Store) CreateChunk(ctx context.Context, c model.Chunk) (model.Chunk, error) {
	if c.ID == uuid.Nil {
		c.ID = model.NewID()
	}
	prov, err := marshalProvenance(c.Provenance)
	if err != nil {
		return model.Chunk{}, corerr.Invalid("marshal chunk provenance")
	}
	meta, err := json.Marshal(c.Meta)
	if err != nil {
		return model.Chunk{}, corerr.Invalid("marshal chunk meta")
	}
	c.CreatedAt = time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
INSERT INTO chunks(id, container_id, document_id, modality, text, byte_start, byte_end,
                    provenance, meta, embedder_ver, dedup_of, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`, c.ID, c.ContainerID, c.DocumentID, string(c.Modality), c.Text, c.ByteStart, c.ByteEnd,
		prov, meta, c.EmbedderVer, c.DedupOf, c.CreatedAt)
	if err != nil {
		return model.Chunk{}, corerr.Wrap(corerr.KindInvalid, "create chunk", err)
	}
	return c, nil
}

const chunkColumns = `id, container_id, document_id, modality, text, byte_start, byte_end,
	provenance, meta, embedder_ver, dedup_of, created_at`

func scanChunk(row pgx.Row) (model.Chunk, error) {
	var c model.Chunk
	var modality string
	var prov, meta []byte
	err := row.Scan(&c.ID, &c.ContainerID, &c.DocumentID, &modality, &c.Text, &c.ByteStart, &c.ByteEnd,
		&prov, &meta, &c.EmbedderVer, &c.DedupOf, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Chunk{}, corerr.NotFound("chunk")
		}
		return model.Chunk{}, err
	}
	c.Modality = model.Modality(modality)
	if len(prov) > 0 {
		_ = json.Unmarshal(prov, &c.Provenance)
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &c.Meta)
	}
	return c, nil
}

func (s *Store) GetChunk(ctx context.Context, id uuid.UUID) (model.Chunk, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id=$1`, id)
	return scanChunk(row)
}

// ChunksForDocument returns every chunk belonging to a document, in
// provenance order.
func (s *Store) ChunksForDocument(ctx context.Context, documentID uuid.UUID) ([]model.Chunk, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE document_id=$1 ORDER BY byte_start`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) MarkDuplicate(ctx context.Context, chunkID, dedupOf uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE chunks SET dedup_of=$2 WHERE id=$1`, chunkID, dedupOf)
	return err
}

func (s *Store) DeleteChunksForDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id=$1`, documentID)
	return err
}

// LexicalResult is one hit from a lexical (tsvector) search, scored and
// snippeted the way the hybrid retriever expects.
type LexicalResult struct {
	Chunk   model.Chunk
	Score   float64
	Snippet string
}

// LexicalSearch runs a `websearch_to_tsquery` match over chunk text scoped
// to a container, falling back to `plainto_tsquery` when the websearch
// parser rejects the input (e.g. unbalanced quotes).
func (s *Store) LexicalSearch(ctx context.Context, containerID uuid.UUID, query string, limit int) ([]LexicalResult, error) {
	if limit <= 0 {
		limit = 10
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}

	run := func(stmt string) ([]LexicalResult, error) {
		rows, err := s.pool.Query(ctx, stmt, containerID, q, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := make([]LexicalResult, 0, limit)
		for rows.Next() {
			var r LexicalResult
			var modality string
			var prov, meta []byte
			if err := rows.Scan(&r.Chunk.ID, &r.Chunk.ContainerID, &r.Chunk.DocumentID, &modality,
				&r.Chunk.Text, &r.Chunk.ByteStart, &r.Chunk.ByteEnd, &prov, &meta, &r.Chunk.EmbedderVer,
				&r.Chunk.DedupOf, &r.Chunk.CreatedAt, &r.Score, &r.Snippet); err != nil {
				return nil, err
			}
			r.Chunk.Modality = model.Modality(modality)
			if len(prov) > 0 {
				_ = json.Unmarshal(prov, &r.Chunk.Provenance)
			}
			if len(meta) > 0 {
				_ = json.Unmarshal(meta, &r.Chunk.Meta)
			}
			out = append(out, r)
		}
		return out, rows.Err()
	}

	stmt := `
SELECT ` + chunkColumns + `,
       ts_rank(ts, websearch_to_tsquery('simple', $2)) AS score,
       ts_headline('simple', text, websearch_to_tsquery('simple', $2)) AS snippet
FROM chunks
WHERE container_id = $1 AND dedup_of IS NULL AND ts @@ websearch_to_tsquery('simple', $2)
ORDER BY score DESC
LIMIT $3`
	out, err := run(stmt)
	if err == nil {
		return out, nil
	}

	fallback := `
SELECT ` + chunkColumns + `,
       ts_rank(ts, plainto_tsquery('simple', $2)) AS score,
       ts_headline('simple', text, plainto_tsquery('simple', $2)) AS snippet
FROM chunks
WHERE container_id = $1 AND dedup_of IS NULL AND ts @@ plainto_tsquery('simple', $2)
ORDER BY score DESC
LIMIT $3`
	return run(fallback)
}
