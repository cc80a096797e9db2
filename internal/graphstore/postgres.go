package graphstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"corectx/internal/model"
)

// PostgresStore is the production graph backend: two tables scoped by
// container_id, indexed for both directions of traversal.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS graph_nodes (
			container_id UUID NOT NULL,
			node_id TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			props JSONB NOT NULL DEFAULT '{}'::jsonb,
			source_chunk_ids UUID[] NOT NULL DEFAULT '{}',
			PRIMARY KEY (container_id, node_id)
		)`,
		`CREATE INDEX IF NOT EXISTS graph_nodes_type_idx ON graph_nodes (container_id, type)`,
		`CREATE TABLE IF NOT EXISTS graph_edges (
			container_id UUID NOT NULL,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			type TEXT NOT NULL,
			props JSONB NOT NULL DEFAULT '{}'::jsonb,
			source_chunk_ids UUID[] NOT NULL DEFAULT '{}',
			PRIMARY KEY (container_id, source_id, target_id, type)
		)`,
		`CREATE INDEX IF NOT EXISTS graph_edges_src_idx ON graph_edges (container_id, source_id, type)`,
		`CREATE INDEX IF NOT EXISTS graph_edges_dst_idx ON graph_edges (container_id, target_id, type)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("bootstrap graph schema: %w", err)
		}
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) UpsertNode(ctx context.Context, n model.GraphNode) error {
	props, err := json.Marshal(n.Props)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO graph_nodes(container_id, node_id, label, type, summary, props, source_chunk_ids)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (container_id, node_id) DO UPDATE SET
  label=EXCLUDED.label, type=EXCLUDED.type, summary=EXCLUDED.summary,
  props=EXCLUDED.props, source_chunk_ids=EXCLUDED.source_chunk_ids
`, n.ContainerID, n.NodeID, n.Label, n.Type, n.Summary, props, n.SourceChunkIDs)
	return err
}

func (s *PostgresStore) UpsertEdge(ctx context.Context, e model.GraphEdge) error {
	props, err := json.Marshal(e.Props)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO graph_edges(container_id, source_id, target_id, type, props, source_chunk_ids)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (container_id, source_id, target_id, type) DO UPDATE SET
  props=EXCLUDED.props, source_chunk_ids=EXCLUDED.source_chunk_ids
`, e.ContainerID, e.SourceID, e.TargetID, e.Type, props, e.SourceChunkIDs)
	return err
}

func scanNode(row pgx.Row) (model.GraphNode, error) {
	var n model.GraphNode
	var props []byte
	err := row.Scan(&n.ContainerID, &n.NodeID, &n.Label, &n.Type, &n.Summary, &props, &n.SourceChunkIDs)
	if err != nil {
		return model.GraphNode{}, err
	}
	if len(props) > 0 {
		_ = json.Unmarshal(props, &n.Props)
	}
	return n, nil
}

const nodeColumns = `container_id, node_id, label, type, summary, props, source_chunk_ids`

func (s *PostgresStore) GetNode(ctx context.Context, containerID uuid.UUID, nodeID string) (model.GraphNode, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+nodeColumns+` FROM graph_nodes WHERE container_id=$1 AND node_id=$2`, containerID, nodeID)
	n, err := scanNode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.GraphNode{}, false, nil
		}
		return model.GraphNode{}, false, err
	}
	return n, true, nil
}

func (s *PostgresStore) Neighbors(ctx context.Context, containerID uuid.UUID, nodeID, edgeType string, direction Direction) ([]model.GraphNode, error) {
	var query string
	switch direction {
	case DirectionOut:
		query = `SELECT ` + prefixed("n.", nodeColumns) + ` FROM graph_edges e
JOIN graph_nodes n ON n.container_id = e.container_id AND n.node_id = e.target_id
WHERE e.container_id=$1 AND e.source_id=$2 AND ($3 = '' OR e.type=$3)`
	case DirectionIn:
		query = `SELECT ` + prefixed("n.", nodeColumns) + ` FROM graph_edges e
JOIN graph_nodes n ON n.container_id = e.container_id AND n.node_id = e.source_id
WHERE e.container_id=$1 AND e.target_id=$2 AND ($3 = '' OR e.type=$3)`
	default:
		query = `SELECT ` + prefixed("n.", nodeColumns) + ` FROM graph_edges e
JOIN graph_nodes n ON n.container_id = e.container_id AND n.node_id IN (e.target_id, e.source_id) AND n.node_id <> $2
WHERE e.container_id=$1 AND (e.source_id=$2 OR e.target_id=$2) AND ($3 = '' OR e.type=$3)`
	}

	rows, err := s.pool.Query(ctx, query, containerID, nodeID, edgeType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GraphNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) NodesByType(ctx context.Context, containerID uuid.UUID, nodeType string, limit int) ([]model.GraphNode, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT `+nodeColumns+` FROM graph_nodes WHERE container_id=$1 AND type=$2 LIMIT $3`, containerID, nodeType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GraphNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SearchNodes(ctx context.Context, containerID uuid.UUID, keywords []string, limit int) ([]model.GraphNode, error) {
	if limit <= 0 {
		limit = 50
	}
	if len(keywords) == 0 {
		keywords = []string{""}
	}
	clauses := make([]string, 0, len(keywords))
	args := []any{containerID}
	for _, kw := range keywords {
		args = append(args, "%"+kw+"%")
		clauses = append(clauses, fmt.Sprintf("(label ILIKE $%d OR summary ILIKE $%d)", len(args), len(args)))
	}
	args = append(args, limit)
	query := `SELECT ` + nodeColumns + ` FROM graph_nodes WHERE container_id=$1 AND (` +
		strings.Join(clauses, " OR ") + fmt.Sprintf(") LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GraphNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DropContainer(ctx context.Context, containerID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM graph_edges WHERE container_id=$1`, containerID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM graph_nodes WHERE container_id=$1`, containerID)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
func (s *PostgresStore) Close() error                   { return nil }

func prefixed(prefix, columns string) string {
	out := prefix + "container_id"
	for _, c := range []string{"node_id", "label", "type", "summary", "props", "source_chunk_ids"} {
		out += ", " + prefix + c
	}
	return out
}
