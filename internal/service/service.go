// Package service is the in-scope Go API an external transport (HTTP,
// gRPC, a CLI) would bind to: Ingest, Search, GraphSearch, JobStatus,
// and SystemStatus, each a thin orchestration layer over the ingestion
// pipeline, the hybrid retrieval engine, the NL-to-graph-query runner,
// and the job queue's relational store.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"corectx/internal/activity"
	"corectx/internal/appctx"
	"corectx/internal/diagnostics"
	"corectx/internal/graphquery"
	"corectx/internal/graphstore"
	"corectx/internal/ingest"
	"corectx/internal/jobqueue"
	"corectx/internal/logging"
	"corectx/internal/model"
	"corectx/internal/relstore"
	"corectx/internal/retrieve"
)

// pinger is satisfied by every adapter SystemStatus checks; kept narrow
// so Service doesn't need each adapter's full interface.
type pinger interface {
	Ping(ctx context.Context) error
}

// Service wires the ingestion pipeline, retrieval engine, and
// graph-query runner behind one constructor-injected surface, per
// appctx's explicit-wiring convention rather than package-level
// singletons.
type Service struct {
	app *appctx.Context

	rel      *relstore.Store
	pipeline *ingest.Pipeline
	engine   *retrieve.Engine
	graph    graphstore.Store
	vec      pinger
	obj      pinger

	translator graphquery.Translator

	diag *diagnostics.Sink
	act  *activity.Sink

	log logging.Logger
}

// Option configures an optional Service parameter.
type Option func(*Service)

func WithGraphStore(g graphstore.Store) Option       { return func(s *Service) { s.graph = g } }
func WithTranslator(t graphquery.Translator) Option  { return func(s *Service) { s.translator = t } }
func WithVectorPinger(v pinger) Option               { return func(s *Service) { s.vec = v } }
func WithObjectPinger(o pinger) Option                { return func(s *Service) { s.obj = o } }
func WithDiagnosticsSink(d *diagnostics.Sink) Option { return func(s *Service) { s.diag = d } }
func WithActivitySink(a *activity.Sink) Option       { return func(s *Service) { s.act = a } }

// New builds a Service from its already-constructed collaborators.
// Ingest/Search are the only two always required; everything else is
// best-effort and degrades gracefully when not configured (see
// SystemStatus and GraphSearch).
func New(app *appctx.Context, rel *relstore.Store, pipeline *ingest.Pipeline, engine *retrieve.Engine, opts ...Option) *Service {
	s := &Service{
		app:      app,
		rel:      rel,
		pipeline: pipeline,
		engine:   engine,
		log:      app.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest enqueues a model.JobIngest row carrying req and returns the job;
// a worker later runs it through the ingestion pipeline out-of-band.
// IngestInline below runs it synchronously instead. This mirrors §6's ingest endpoint,
// which accepts a source and returns a job handle.
func (s *Service) Ingest(ctx context.Context, req ingest.Request) (model.Job, error) {
	payload, err := jobqueue.EncodeIngestPayload(req)
	if err != nil {
		return model.Job{}, err
	}
	job, err := s.rel.EnqueueJob(ctx, model.Job{
		Kind:    model.JobIngest,
		Status:  model.JobQueued,
		Payload: payload,
	})
	if err != nil {
		return model.Job{}, err
	}
	s.recordActivity(&req.ContainerID, "ingest_enqueued")
	return job, nil
}

// IngestInline runs the ingestion pipeline synchronously and returns its
// result directly, for callers (tests, the CLI) that don't need the
// job-queue's async/retry machinery.
func (s *Service) IngestInline(ctx context.Context, req ingest.Request) (ingest.Result, error) {
	start := time.Now()
	result, err := s.pipeline.Run(ctx, req)
	s.recordDiagnostics(diagnosticsForIngest(req, result, time.Since(start)))
	s.recordActivity(&req.ContainerID, "ingest_inline")
	return result, err
}

// Search runs the hybrid retrieval engine and best-effort mirrors its
// diagnostics envelope to the diagnostics sink before returning.
func (s *Service) Search(ctx context.Context, req retrieve.Request) (retrieve.Response, error) {
	resp, err := s.engine.Search(ctx, req)
	if err == nil {
		s.recordDiagnostics(diagnosticsFromResponse(resp))
		if len(req.ContainerIDs) > 0 {
			s.recordActivity(&req.ContainerIDs[0], "search")
		}
	}
	return resp, err
}

// GraphSearchRequest parameterizes a natural-language graph query.
type GraphSearchRequest struct {
	ContainerID uuid.UUID
	Query       string
	Schema      graphquery.Schema
	MaxHops     int
	K           int
}

// GraphSearch translates (or falls back on) a natural-language question
// into a validated traversal and executes it against the graph store.
// Returns a zero-value, non-error result with Invalid=true when no graph
// store is configured, so callers can distinguish "not wired" from "ran
// and found nothing."
func (s *Service) GraphSearch(ctx context.Context, req GraphSearchRequest) (graphquery.ExecutionResult, error) {
	if s.graph == nil {
		return graphquery.ExecutionResult{Invalid: true, Warnings: []string{"graph store not configured"}}, nil
	}
	tr := TranslateRequest(req)
	res, err := graphquery.Run(ctx, s.graph, s.rel, s.translator, tr)
	if err == nil {
		s.recordActivity(&req.ContainerID, "graph_search")
	}
	return res, err
}

// TranslateRequest adapts a GraphSearchRequest into graphquery's own
// request shape (container ID as string, per Translator's prompt-facing
// contract).
func TranslateRequest(req GraphSearchRequest) graphquery.TranslateRequest {
	return graphquery.TranslateRequest{
		ContainerID: req.ContainerID.String(),
		Query:       req.Query,
		Schema:      req.Schema,
		MaxHops:     req.MaxHops,
		K:           req.K,
	}
}

// JobStatus fetches a job's current status and its event journal.
func (s *Service) JobStatus(ctx context.Context, jobID uuid.UUID) (model.Job, []model.JobEvent, error) {
	job, err := s.rel.GetJob(ctx, jobID)
	if err != nil {
		return model.Job{}, nil, err
	}
	events, err := s.rel.EventsForJob(ctx, jobID)
	if err != nil {
		return job, nil, err
	}
	return job, events, nil
}

// SystemStatus reports per-subsystem readiness. Postgres is required —
// its Ping error is returned as this call's error. Vector/object/graph
// stores are best-effort: an unreachable one is reported in the result,
// not surfaced as a call error, since a degraded search (e.g. no
// rerank) is still a usable response.
type SystemStatus struct {
	Postgres    bool
	Vectorstore bool
	Objectstore bool
	Graphstore  bool
}

func (s *Service) SystemStatus(ctx context.Context) (SystemStatus, error) {
	var status SystemStatus
	if err := s.rel.Ping(ctx); err != nil {
		return status, err
	}
	status.Postgres = true
	status.Vectorstore = pingOK(ctx, s.vec)
	status.Objectstore = pingOK(ctx, s.obj)
	status.Graphstore = pingOK(ctx, s.graph)
	return status, nil
}

func pingOK(ctx context.Context, p pinger) bool {
	if p == nil {
		return false
	}
	return p.Ping(ctx) == nil
}

func (s *Service) recordDiagnostics(rec model.DiagnosticsRecord) {
	if s.diag == nil {
		return
	}
	s.diag.Record(rec)
}

func (s *Service) recordActivity(containerID *uuid.UUID, stage string) {
	if s.act == nil {
		return
	}
	s.act.Record(activity.Event{
		SessionID:   "service",
		AgentID:     stage,
		ContainerID: containerID,
	})
}

func diagnosticsFromResponse(resp retrieve.Response) model.DiagnosticsRecord {
	return model.DiagnosticsRecord{
		RequestID:    resp.Diagnostics.RequestID,
		TimingsMS:    resp.Diagnostics.TimingsMS,
		Issues:       resp.Diagnostics.Issues,
		OverBudgetMS: overBudget(resp.Diagnostics.BudgetMS, resp.Diagnostics.TimingsMS),
		RerankApplied: resp.Diagnostics.RerankUsed,
	}
}

func overBudget(budgetMS int64, timings map[string]int64) int64 {
	var total int64
	for _, v := range timings {
		total += v
	}
	if total > budgetMS {
		return total - budgetMS
	}
	return 0
}

func diagnosticsForIngest(req ingest.Request, result ingest.Result, elapsed time.Duration) model.DiagnosticsRecord {
	return model.DiagnosticsRecord{
		RequestID: req.ContainerID.String(),
		TimingsMS: map[string]int64{"ingest": elapsed.Milliseconds()},
		HitCounts: map[string]int{
			"chunks": result.Stats.NumChunks,
		},
	}
}
