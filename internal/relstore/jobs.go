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

// EnqueueJob inserts a new queued job.
func (s *Store) EnqueueJob(ctx context.Context, j model.Job) (model.Job, error) {
	if j.ID == uuid.Nil {
		j.ID = model.NewID()
	}
	payload, err := json.Marshal(j.Payload)
	if err != nil {
		return model.Job{}, corerr.Invalid("marshal job payload")
	}
	now := time.Now().UTC()
	j.CreatedAt, j.UpdatedAt = now, now
	if j.Status == "" {
		j.Status = model.JobQueued
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO jobs(id, kind, status, payload, retries, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, j.ID, string(j.Kind), string(j.Status), payload, j.Retries, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return model.Job{}, corerr.Wrap(corerr.KindInvalid, "enqueue job", err)
	}
	return j, nil
}

const jobColumns = `id, kind, status, payload, retries, last_heartbeat, error, created_at, updated_at`

func scanJob(row pgx.Row) (model.Job, error) {
	var j model.Job
	var kind, status string
	var payload []byte
	err := row.Scan(&j.ID, &kind, &status, &payload, &j.Retries, &j.LastHeartbeat, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Job{}, corerr.NotFound("job")
		}
		return model.Job{}, err
	}
	j.Kind = model.JobKind(kind)
	j.Status = model.JobStatus(status)
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &j.Payload)
	}
	return j, nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (model.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1`, id)
	return scanJob(row)
}

// ClaimJob atomically claims the oldest queued job (or a reaped, visibility-
// expired running job) using SELECT ... FOR UPDATE SKIP LOCKED so concurrent
// workers never double-claim. A job reclaimed from a stale 'running' state
// counts against maxRetries exactly like an explicit FailJob failure: its
// retries counter is incremented, it is failed outright (not reclaimed) once
// retries >= maxRetries, and a "reaped_stale" job_event records the reap
// either way.
func (s *Store) ClaimJob(ctx context.Context, visibilityTimeout time.Duration, maxRetries int) (model.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Job{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE status = 'queued'
   OR (status = 'running' AND last_heartbeat < now() - $1::interval)
ORDER BY created_at
FOR UPDATE SKIP LOCKED
LIMIT 1
`, visibilityTimeout.String())
	j, err := scanJob(row)
	if err != nil {
		return model.Job{}, err
	}

	now := time.Now().UTC()
	wasStale := j.Status == model.JobRunning
	if wasStale {
		j.Retries++
		if _, err := tx.Exec(ctx, `INSERT INTO job_events(job_id, status, message) VALUES ($1,'reaped_stale',$2)`,
			j.ID, "visibility timeout exceeded, reclaiming"); err != nil {
			return model.Job{}, err
		}
		if j.Retries >= maxRetries {
			if _, err := tx.Exec(ctx, `UPDATE jobs SET status='failed', retries=$2, error=$3, updated_at=$4 WHERE id=$1`,
				j.ID, j.Retries, "stale job exceeded max retries", now); err != nil {
				return model.Job{}, err
			}
			if err := tx.Commit(ctx); err != nil {
				return model.Job{}, err
			}
			j.Status = model.JobFailed
			j.Error = "stale job exceeded max retries"
			j.UpdatedAt = now
			return j, corerr.Invalid("job exceeded max retries after stale reclaim")
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE jobs SET status='running', retries=$2, last_heartbeat=$3, updated_at=$3 WHERE id=$1`,
		j.ID, j.Retries, now); err != nil {
		return model.Job{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Job{}, err
	}
	j.Status = model.JobRunning
	j.LastHeartbeat = &now
	j.UpdatedAt = now
	return j, nil
}

// Heartbeat extends a running job's visibility window.
func (s *Store) Heartbeat(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE jobs SET last_heartbeat=now(), updated_at=now() WHERE id=$1 AND status='running'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return corerr.Conflict("job not running")
	}
	return nil
}

// CompleteJob marks a job done.
func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE jobs SET status='done', error='', updated_at=now() WHERE id=$1`, id)
	return err
}

// FailJob records an error and either requeues (retries < maxRetries) or
// marks the job permanently failed. errMsg is truncated by the caller per
// the 500-character retry-message limit.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, errMsg string, maxRetries int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var retries int
	if err := tx.QueryRow(ctx, `SELECT retries FROM jobs WHERE id=$1 FOR UPDATE`, id).Scan(&retries); err != nil {
		return err
	}
	retries++
	status := "queued"
	if retries >= maxRetries {
		status = "failed"
	}
	if _, err := tx.Exec(ctx, `UPDATE jobs SET status=$2, retries=$3, error=$4, updated_at=now() WHERE id=$1`,
		id, status, retries, errMsg); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AppendEvent writes an entry to a job's append-only event journal.
func (s *Store) AppendEvent(ctx context.Context, jobID uuid.UUID, status, message string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO job_events(job_id, status, message) VALUES ($1,$2,$3)`, jobID, status, message)
	return err
}

// EventsForJob returns a job's event journal in chronological order.
func (s *Store) EventsForJob(ctx context.Context, jobID uuid.UUID) ([]model.JobEvent, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, job_id, status, message, ts FROM job_events WHERE job_id=$1 ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.JobEvent
	for rows.Next() {
		var e model.JobEvent
		if err := rows.Scan(&e.ID, &e.JobID, &e.Status, &e.Message, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
