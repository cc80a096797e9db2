package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the pgvector-backed fallback vector store, used when
// Qdrant is unavailable or for small/local deployments.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore ensures the pgvector extension and the shared points
// table exist, then returns a Store backed by pool.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return nil, fmt.Errorf("create vector extension: %w", err)
	}
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vector_points (
  collection TEXT NOT NULL,
  id TEXT NOT NULL,
  vec vector NOT NULL,
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
  PRIMARY KEY (collection, id)
)`)
	if err != nil {
		return nil, fmt.Errorf("create vector_points table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Collection(_ context.Context, containerID uuid.UUID, modality string, dimensions int) (Collection, error) {
	return &pgCollection{pool: s.pool, name: CollectionName(containerID, modality), dimension: dimensions}, nil
}

func (s *PostgresStore) DropContainer(ctx context.Context, containerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM vector_points WHERE collection LIKE $1`, "c_"+containerID.String()+"_%")
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type pgCollection struct {
	pool      *pgxpool.Pool
	name      string
	dimension int
}

func (c *pgCollection) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	md, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx, `
INSERT INTO vector_points(collection, id, vec, metadata) VALUES ($1, $2, $3::vector, $4)
ON CONFLICT (collection, id) DO UPDATE SET vec = EXCLUDED.vec, metadata = EXCLUDED.metadata
`, c.name, id, toVectorLiteral(vector), md)
	return err
}

func (c *pgCollection) Delete(ctx context.Context, id string) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM vector_points WHERE collection=$1 AND id=$2`, c.name, id)
	return err
}

func (c *pgCollection) SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	vecLit := toVectorLiteral(vector)
	query := `SELECT id, 1 - (vec <=> $1::vector) AS score, metadata FROM vector_points WHERE collection=$2`
	args := []any{vecLit, c.name}
	if len(filter) > 0 {
		md, err := json.Marshal(filter)
		if err != nil {
			return nil, err
		}
		query += " AND metadata @> $3"
		args = append(args, md)
	}
	query += fmt.Sprintf(" ORDER BY vec <=> $1::vector LIMIT %d", k)

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Result, 0, k)
	for rows.Next() {
		var r Result
		var mdRaw []byte
		if err := rows.Scan(&r.ID, &r.Score, &mdRaw); err != nil {
			return nil, err
		}
		md := map[string]string{}
		_ = json.Unmarshal(mdRaw, &md)
		r.Metadata = md
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *pgCollection) Dimension() int { return c.dimension }

func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}
