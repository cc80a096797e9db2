// Package diagnostics accumulates the per-request DiagnosticsRecord
// envelope attached to search and ingest responses, and best-effort
// mirrors it to durable storage and an optional ClickHouse sink.
package diagnostics

import (
	"sync"
	"time"

	"corectx/internal/model"
)

// Builder accumulates timings, hit counts, and issues for a single
// request, then produces the immutable model.DiagnosticsRecord snapshot
// that gets attached to the response and handed to a Sink.
//
// Safe for concurrent use: C9's fan-out stages (lexical, vector, rerank,
// graph) all record into the same Builder from their own goroutines.
type Builder struct {
	requestID string

	mu              sync.Mutex
	timingsMS       map[string]int64
	hitCounts       map[string]int
	appliedPolicies []string
	overBudgetMS    int64
	rerankApplied   bool
	rerankMeta      map[string]any
	graphMeta       map[string]any
	issues          []string
	manifestVersion int
}

// NewBuilder starts an accumulator for one request.
func NewBuilder(requestID string) *Builder {
	return &Builder{
		requestID: requestID,
		timingsMS: make(map[string]int64),
		hitCounts: make(map[string]int),
	}
}

// RecordStage records how long a named pipeline stage took.
func (b *Builder) RecordStage(stage string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timingsMS[stage] = d.Milliseconds()
}

// RecordHitCount records how many candidates a named stage produced.
func (b *Builder) RecordHitCount(stage string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hitCounts[stage] = n
}

// AddPolicy records the name of a manifest-driven policy that was
// applied while serving the request (e.g. "hybrid_graph", "rerank").
func (b *Builder) AddPolicy(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appliedPolicies = append(b.appliedPolicies, name)
}

// SetOverBudget records how far a request ran past its latency budget.
// Zero or negative means it stayed within budget.
func (b *Builder) SetOverBudget(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d > 0 {
		b.overBudgetMS = d.Milliseconds()
	}
}

// SetRerank records whether a rerank pass ran and any metadata about it
// (provider, model, candidate count).
func (b *Builder) SetRerank(applied bool, meta map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rerankApplied = applied
	b.rerankMeta = meta
}

// SetGraphMeta records metadata about a graph-context expansion pass
// (hop count, seed count, node count).
func (b *Builder) SetGraphMeta(meta map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graphMeta = meta
}

// AddIssue records an issue-taxonomy code surfaced to the caller
// (e.g. "VECTOR_DOWN", "RERANK_TIMEOUT").
func (b *Builder) AddIssue(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issues = append(b.issues, code)
}

// SetManifestVersion records which container manifest version governed
// this request's policy decisions.
func (b *Builder) SetManifestVersion(v int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.manifestVersion = v
}

// Build snapshots the accumulated state into an immutable record. Safe
// to call more than once (e.g. once for the response, once for the sink).
func (b *Builder) Build() model.DiagnosticsRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	timings := make(map[string]int64, len(b.timingsMS))
	for k, v := range b.timingsMS {
		timings[k] = v
	}
	hits := make(map[string]int, len(b.hitCounts))
	for k, v := range b.hitCounts {
		hits[k] = v
	}
	policies := make([]string, len(b.appliedPolicies))
	copy(policies, b.appliedPolicies)
	issues := make([]string, len(b.issues))
	copy(issues, b.issues)

	return model.DiagnosticsRecord{
		RequestID:       b.requestID,
		TimingsMS:       timings,
		HitCounts:       hits,
		AppliedPolicies: policies,
		OverBudgetMS:    b.overBudgetMS,
		RerankApplied:   b.rerankApplied,
		RerankMeta:      b.rerankMeta,
		GraphMeta:       b.graphMeta,
		Issues:          issues,
		ManifestVersion: b.manifestVersion,
	}
}
