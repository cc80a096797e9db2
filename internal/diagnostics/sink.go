package diagnostics

import (
	"context"

	"corectx/internal/logging"
	"corectx/internal/model"
)

// DefaultQueueSize bounds how many records can be buffered between the
// caller's Record call and the background writer goroutine.
const DefaultQueueSize = 256

// store is the narrow slice of *relstore.Store this package depends on.
type store interface {
	PutDiagnostics(ctx context.Context, d model.DiagnosticsRecord) error
}

// mirror is an optional secondary sink (e.g. ClickHouse) that receives
// the same records as store, for ad-hoc analytics querying outside the
// primary relational store.
type mirror interface {
	Write(ctx context.Context, d model.DiagnosticsRecord) error
}

// Sink asynchronously persists DiagnosticsRecords so that attaching
// diagnostics to a response never blocks on a database write. A failed
// write is logged, never surfaced to the request that produced it.
type Sink struct {
	rel    store
	mirror mirror
	log    logging.Logger

	records chan model.DiagnosticsRecord
	done    chan struct{}
}

// Option configures an optional Sink parameter.
type Option func(*Sink)

func WithMirror(m mirror) Option          { return func(s *Sink) { s.mirror = m } }
func WithLogger(l logging.Logger) Option  { return func(s *Sink) { s.log = l } }
func WithQueueSize(n int) Option          { return func(s *Sink) { s.records = make(chan model.DiagnosticsRecord, n) } }

// New builds a Sink. Call Run to start its writer loop.
func New(rel store, opts ...Option) *Sink {
	s := &Sink{
		rel:     rel,
		log:     logging.Default{},
		records: make(chan model.DiagnosticsRecord, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record enqueues a built record for persistence. Non-blocking: a full
// queue drops the record and logs a warning rather than stalling the
// caller's response path.
func (s *Sink) Record(d model.DiagnosticsRecord) {
	select {
	case s.records <- d:
	default:
		s.log.Warn("diagnostics_queue_full_dropped_record", logging.Fields{"request_id": d.RequestID})
	}
}

// Run drains records and writes them until ctx is cancelled, then drains
// whatever remains in the queue once more before returning.
func (s *Sink) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.drainRemaining()
			return
		case d := <-s.records:
			s.write(ctx, d)
		}
	}
}

// Done returns a channel closed once Run has returned.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

func (s *Sink) drainRemaining() {
	for {
		select {
		case d := <-s.records:
			s.write(context.Background(), d)
		default:
			return
		}
	}
}

func (s *Sink) write(ctx context.Context, d model.DiagnosticsRecord) {
	if err := s.rel.PutDiagnostics(ctx, d); err != nil {
		s.log.Warn("diagnostics_write_failed", logging.Fields{"request_id": d.RequestID, "error": err.Error()})
	}
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Write(ctx, d); err != nil {
		s.log.Warn("diagnostics_mirror_write_failed", logging.Fields{"request_id": d.RequestID, "error": err.Error()})
	}
}
