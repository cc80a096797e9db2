package relstore

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// AgentActivity is a single throttled flush of an agent session's activity
// counters, written by internal/activity.
type AgentActivity struct {
	SessionID    string
	AgentID      string
	ContainerID  *uuid.UUID
	EventDelta   int64
	Meta         map[string]any
}

// RecordActivity upserts a session's last-activity timestamp and bumps its
// event counter by delta. Called at a throttled cadence, not per-event.
func (s *Store) RecordActivity(ctx context.Context, a AgentActivity) error {
	meta, err := json.Marshal(a.Meta)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO agent_sessions(session_id, agent_id, container_id, last_activity, event_count, meta)
VALUES ($1,$2,$3,now(),$4,$5)
ON CONFLICT (session_id) DO UPDATE SET
  last_activity = now(),
  event_count = agent_sessions.event_count + EXCLUDED.event_count,
  meta = EXCLUDED.meta
`, a.SessionID, a.AgentID, a.ContainerID, a.EventDelta, meta)
	return err
}
