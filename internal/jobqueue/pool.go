// Package jobqueue runs the worker pool that dispatches queued jobs into
// the ingestion pipeline: poll-claim-heartbeat-complete, with exponential
// backoff on transient handler errors, mirroring the teacher's Kafka
// consumer worker-pool shape in internal/orchestrator/kafka.go adapted
// from a push (consumer fetch) model to a pull (SELECT...FOR UPDATE SKIP
// LOCKED claim) model against the relational job table.
package jobqueue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"corectx/internal/logging"
	"corectx/internal/model"
	"corectx/internal/relstore"
)

// DefaultHeartbeatInterval is how often a claimed job's visibility window
// is renewed while its handler runs.
const DefaultHeartbeatInterval = 30 * time.Second

// Handler processes one claimed job. A returned error marks the job
// failed-or-requeued (per FailJob's retry policy); nil marks it done.
type Handler func(ctx context.Context, job model.Job) error

// Pool polls the job table with a fixed worker count, dispatching claimed
// jobs to Handler and maintaining their heartbeat for the duration.
type Pool struct {
	rel               *relstore.Store
	handler           Handler
	workers           int
	pollInterval      time.Duration
	idleBackoff       time.Duration
	visibilityTimeout time.Duration
	heartbeatInterval time.Duration
	maxRetries        int
	log               logging.Logger
}

// PoolOption configures an optional Pool parameter.
type PoolOption func(*Pool)

func WithWorkers(n int) PoolOption                    { return func(p *Pool) { p.workers = n } }
func WithPollInterval(d time.Duration) PoolOption     { return func(p *Pool) { p.pollInterval = d } }
func WithVisibilityTimeout(d time.Duration) PoolOption {
	return func(p *Pool) { p.visibilityTimeout = d }
}
func WithHeartbeatInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.heartbeatInterval = d }
}
func WithMaxRetries(n int) PoolOption      { return func(p *Pool) { p.maxRetries = n } }
func WithLogger(l logging.Logger) PoolOption { return func(p *Pool) { p.log = l } }

func NewPool(rel *relstore.Store, handler Handler, opts ...PoolOption) *Pool {
	p := &Pool{
		rel:               rel,
		handler:           handler,
		workers:           4,
		pollInterval:      500 * time.Millisecond,
		idleBackoff:       2 * time.Second,
		visibilityTimeout: 5 * time.Minute,
		heartbeatInterval: DefaultHeartbeatInterval,
		maxRetries:        5,
		log:               logging.Default{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts the worker pool and blocks until ctx is cancelled, at which
// point every in-flight job finishes its current handler call before the
// workers exit.
func (p *Pool) Run(ctx context.Context) {
	done := make(chan struct{})
	for i := 0; i < p.workers; i++ {
		go func(workerID int) {
			p.workerLoop(ctx, workerID)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < p.workers; i++ {
		<-done
	}
}

func (p *Pool) workerLoop(ctx context.Context, workerID int) {
	const maxBackoffShift = 6
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.rel.ClaimJob(ctx, p.visibilityTimeout, p.maxRetries)
		if err != nil {
			p.sleep(ctx, p.idleBackoff)
			continue
		}

		if p.runJob(ctx, job) {
			failures = 0
		} else if failures < maxBackoffShift {
			failures++
		}
		p.sleep(ctx, p.pollInterval<<failures)
	}
}

// runJob reports whether the handler succeeded.
func (p *Pool) runJob(ctx context.Context, job model.Job) bool {
	hbCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.heartbeatLoop(hbCtx, job.ID)

	_ = p.rel.AppendEvent(ctx, job.ID, string(model.JobRunning), "claimed")

	err := p.handler(ctx, job)
	cancel()

	if err != nil {
		msg := truncateErrMsg(err.Error())
		_ = p.rel.AppendEvent(ctx, job.ID, string(model.JobFailed), msg)
		if ferr := p.rel.FailJob(ctx, job.ID, msg, p.maxRetries); ferr != nil {
			p.log.Error("job_fail_record_failed", logging.Fields{"job_id": job.ID, "error": ferr.Error()})
		}
		return false
	}

	_ = p.rel.AppendEvent(ctx, job.ID, string(model.JobDone), "completed")
	if cerr := p.rel.CompleteJob(ctx, job.ID); cerr != nil {
		p.log.Error("job_complete_record_failed", logging.Fields{"job_id": job.ID, "error": cerr.Error()})
	}
	return true
}

func (p *Pool) heartbeatLoop(ctx context.Context, jobID uuid.UUID) {
	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.rel.Heartbeat(ctx, jobID); err != nil {
				p.log.Warn("job_heartbeat_failed", logging.Fields{"job_id": jobID, "error": err.Error()})
			}
		}
	}
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

const maxErrMsgLen = 500

func truncateErrMsg(s string) string {
	if len(s) > maxErrMsgLen {
		return s[:maxErrMsgLen]
	}
	return s
}
