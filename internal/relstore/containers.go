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

func modalitiesToStrings(ms []model.Modality) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m)
	}
	return out
}

func stringsToModalities(ss []string) []model.Modality {
	out := make([]model.Modality, len(ss))
	for i, s := range ss {
		out[i] = model.Modality(s)
	}
	return out
}

// CreateContainer inserts a new container row.
func (s *Store) CreateContainer(ctx context.Context, c model.Container) (model.Container, error) {
	if c.ID == uuid.Nil {
		c.ID = model.NewID()
	}
	acl, err := json.Marshal(c.ACL)
	if err != nil {
		return model.Container{}, corerr.Invalid("marshal container acl")
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.State == "" {
		c.State = model.ContainerActive
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO containers(id, slug, theme, parent_id, modalities, embedder, embedder_ver, dimensions,
                        acl, state, graph_enabled, guiding_doc_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`, c.ID, c.Slug, c.Theme, c.ParentID, modalitiesToStrings(c.Modalities), c.Embedder, c.EmbedderVer,
		c.Dimensions, acl, string(c.State), c.GraphEnabled, c.GuidingDocID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return model.Container{}, corerr.Wrap(corerr.KindInvalid, "create container", err)
	}
	return c, nil
}

func scanContainer(row pgx.Row) (model.Container, error) {
	var c model.Container
	var modalities []string
	var aclRaw []byte
	var stateStr string
	var lastIngest *time.Time
	err := row.Scan(&c.ID, &c.Slug, &c.Theme, &c.ParentID, &modalities, &c.Embedder, &c.EmbedderVer,
		&c.Dimensions, &aclRaw, &stateStr, &c.GraphEnabled, &c.GuidingDocID,
		&c.Stats.DocumentCount, &c.Stats.ChunkCount, &c.Stats.SizeBytes, &lastIngest,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Container{}, corerr.NotFound("container")
		}
		return model.Container{}, err
	}
	c.Modalities = stringsToModalities(modalities)
	c.State = model.ContainerState(stateStr)
	c.Stats.LastIngest = lastIngest
	if len(aclRaw) > 0 {
		_ = json.Unmarshal(aclRaw, &c.ACL)
	}
	return c, nil
}

const containerColumns = `id, slug, theme, parent_id, modalities, embedder, embedder_ver, dimensions,
	acl, state, graph_enabled, guiding_doc_id, doc_count, chunk_count, size_bytes, last_ingest,
	created_at, updated_at`

// GetContainer looks a container up by id.
func (s *Store) GetContainer(ctx context.Context, id uuid.UUID) (model.Container, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+containerColumns+` FROM containers WHERE id=$1`, id)
	return scanContainer(row)
}

// GetContainerBySlug looks a container up by its unique slug. Satisfies
// manifest.ContainerStore.
func (s *Store) GetContainerBySlug(ctx context.Context, slug string) (model.Container, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+containerColumns+` FROM containers WHERE slug=$1`, slug)
	return scanContainer(row)
}

// UpdateContainer persists mutable fields and bumps updated_at. It does not
// touch the aggregate Stats counters; use IncrementStats for those.
func (s *Store) UpdateContainer(ctx context.Context, c model.Container) error {
	acl, err := json.Marshal(c.ACL)
	if err != nil {
		return corerr.Invalid("marshal container acl")
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE containers SET theme=$2, modalities=$3, embedder=$4, embedder_ver=$5, dimensions=$6,
  acl=$7, state=$8, graph_enabled=$9, guiding_doc_id=$10, updated_at=now()
WHERE id=$1
`, c.ID, c.Theme, modalitiesToStrings(c.Modalities), c.Embedder, c.EmbedderVer, c.Dimensions,
		acl, string(c.State), c.GraphEnabled, c.GuidingDocID)
	if err != nil {
		return corerr.Wrap(corerr.KindInvalid, "update container", err)
	}
	if tag.RowsAffected() == 0 {
		return corerr.NotFound("container")
	}
	return nil
}

// IncrementStats atomically bumps a container's aggregate counters, used
// after a successful ingest write.
func (s *Store) IncrementStats(ctx context.Context, id uuid.UUID, docDelta, chunkDelta, sizeDelta int64) error {
	_, err := s.pool.Exec(ctx, `
UPDATE containers SET doc_count = doc_count + $2, chunk_count = chunk_count + $3,
  size_bytes = size_bytes + $4, last_ingest = now(), updated_at = now()
WHERE id=$1
`, id, docDelta, chunkDelta, sizeDelta)
	return err
}

// DeleteContainer removes a container and, via ON DELETE CASCADE, every
// document/chunk belonging to it. Callers are still responsible for
// dropping its vector/graph/object-store state.
func (s *Store) DeleteContainer(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM containers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return corerr.NotFound("container")
	}
	return nil
}

// ListContainers returns containers in creation order, optionally filtered
// to a parent.
func (s *Store) ListContainers(ctx context.Context, parentID *uuid.UUID) ([]model.Container, error) {
	var rows pgx.Rows
	var err error
	if parentID != nil {
		rows, err = s.pool.Query(ctx, `SELECT `+containerColumns+` FROM containers WHERE parent_id=$1 ORDER BY created_at`, *parentID)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+containerColumns+` FROM containers ORDER BY created_at`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Container
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SnapshotVersion records the current container state as a new
// container_versions row, returning the version number assigned.
func (s *Store) SnapshotVersion(ctx context.Context, c model.Container) (int, error) {
	snap, err := json.Marshal(c)
	if err != nil {
		return 0, corerr.Invalid("marshal container snapshot")
	}
	var version int
	err = s.pool.QueryRow(ctx, `
INSERT INTO container_versions(container_id, version, snapshot)
SELECT $1, COALESCE(MAX(version), 0) + 1, $2 FROM container_versions WHERE container_id=$1
RETURNING version
`, c.ID, snap).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// LinkContainers records a directed relation between two containers (e.g.
// "derived_from", "shares_graph_with").
func (s *Store) LinkContainers(ctx context.Context, containerID, linkedID uuid.UUID, relation string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO container_links(container_id, linked_container_id, relation)
VALUES ($1,$2,$3) ON CONFLICT DO NOTHING
`, containerID, linkedID, relation)
	return err
}

// LinkedContainers returns the ids linked to containerID by relation (or by
// any relation, when relation is empty).
func (s *Store) LinkedContainers(ctx context.Context, containerID uuid.UUID, relation string) ([]uuid.UUID, error) {
	query := `SELECT linked_container_id FROM container_links WHERE container_id=$1`
	args := []any{containerID}
	if relation != "" {
		query += ` AND relation=$2`
		args = append(args, relation)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Subscribe registers subscriber for containerID's named event types.
func (s *Store) Subscribe(ctx context.Context, containerID uuid.UUID, subscriber string, eventTypes []string, webhookURL string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO container_subscriptions(container_id, subscriber, event_types, webhook_url)
VALUES ($1,$2,$3,$4)
ON CONFLICT (container_id, subscriber) DO UPDATE SET event_types=EXCLUDED.event_types, webhook_url=EXCLUDED.webhook_url
`, containerID, subscriber, eventTypes, webhookURL)
	return err
}

type Subscription struct {
	Subscriber string
	EventTypes []string
	WebhookURL string
}

// Subscribers returns every subscription registered on containerID.
func (s *Store) Subscribers(ctx context.Context, containerID uuid.UUID) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, `SELECT subscriber, event_types, webhook_url FROM container_subscriptions WHERE container_id=$1`, containerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.Subscriber, &sub.EventTypes, &sub.WebhookURL); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
