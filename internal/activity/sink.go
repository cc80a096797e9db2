// Package activity buffers per-session agent-activity counters in memory
// and flushes them to relstore.RecordActivity on a timer, so the
// ingest/search hot path only ever does a non-blocking channel send
// instead of a synchronous write. Mirrors the coalesce-then-flush shape
// of the teacher's internal/llm.TokenCache cleanup loop, adapted from
// TTL eviction to periodic batched writes.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"corectx/internal/logging"
	"corectx/internal/relstore"
)

// DefaultFlushInterval is how often buffered counters are written out.
const DefaultFlushInterval = 10 * time.Second

// DefaultQueueSize bounds the number of pending Record calls buffered
// between flushes before Record starts dropping events.
const DefaultQueueSize = 1024

// recorder is the narrow slice of *relstore.Store the sink depends on,
// so tests can supply a fake without a live database.
type recorder interface {
	RecordActivity(ctx context.Context, a relstore.AgentActivity) error
}

// Event is one activity observation for a session.
type Event struct {
	SessionID   string
	AgentID     string
	ContainerID *uuid.UUID
	Meta        map[string]any
}

// Sink coalesces Events per session between flush ticks and writes one
// RecordActivity call per session per tick, so a chatty agent session
// costs one upsert every FlushInterval rather than one per event.
type Sink struct {
	rel           recorder
	flushInterval time.Duration
	log           logging.Logger

	events chan Event

	mu      sync.Mutex
	pending map[string]*pendingActivity

	done chan struct{}
}

type pendingActivity struct {
	agentID     string
	containerID *uuid.UUID
	delta       int64
	meta        map[string]any
}

// Option configures an optional Sink parameter.
type Option func(*Sink)

func WithFlushInterval(d time.Duration) Option { return func(s *Sink) { s.flushInterval = d } }
func WithQueueSize(n int) Option                { return func(s *Sink) { s.events = make(chan Event, n) } }
func WithLogger(l logging.Logger) Option        { return func(s *Sink) { s.log = l } }

// New builds a Sink. Call Run to start its flush loop.
func New(rel recorder, opts ...Option) *Sink {
	s := &Sink{
		rel:           rel,
		flushInterval: DefaultFlushInterval,
		log:           logging.Default{},
		events:        make(chan Event, DefaultQueueSize),
		pending:       make(map[string]*pendingActivity),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record enqueues an activity observation. Non-blocking: if the internal
// queue is full the event is dropped and logged, since activity tracking
// is best-effort and must never back-pressure the caller's hot path.
func (s *Sink) Record(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("activity_queue_full_dropped_event", logging.Fields{"session_id": ev.SessionID})
	}
}

// Run drains the event channel into the pending buffer and flushes it on
// every tick, until ctx is cancelled, at which point it flushes once more
// before returning.
func (s *Sink) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flush(context.Background())
			return
		case ev := <-s.events:
			s.coalesce(ev)
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

// Done returns a channel closed once Run has returned and performed its
// final flush, so callers can wait for a clean shutdown.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

func (s *Sink) coalesce(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[ev.SessionID]
	if !ok {
		p = &pendingActivity{}
		s.pending[ev.SessionID] = p
	}
	p.agentID = ev.AgentID
	p.containerID = ev.ContainerID
	p.delta++
	if ev.Meta != nil {
		p.meta = ev.Meta
	}
}

func (s *Sink) flush(ctx context.Context) {
	for drained := false; !drained; {
		select {
		case ev := <-s.events:
			s.coalesce(ev)
		default:
			drained = true
		}
	}

	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]*pendingActivity)
	s.mu.Unlock()

	for sessionID, p := range batch {
		err := s.rel.RecordActivity(ctx, relstore.AgentActivity{
			SessionID:   sessionID,
			AgentID:     p.agentID,
			ContainerID: p.containerID,
			EventDelta:  p.delta,
			Meta:        p.meta,
		})
		if err != nil {
			s.log.Warn("activity_flush_failed", logging.Fields{"session_id": sessionID, "error": err.Error()})
		}
	}
}
