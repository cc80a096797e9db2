// Package retrieve implements the hybrid search engine: query expansion,
// parallel lexical/vector fan-out, reciprocal rank fusion, freshness
// decay, a pseudo-rerank blend, an optional remote rerank pass, optional
// graph-neighborhood context, and per-request latency-budget accounting.
package retrieve

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"corectx/internal/model"
)

// Mode selects which stages a request runs.
type Mode string

const (
	ModeSemantic    Mode = "semantic"
	ModeBM25        Mode = "bm25"
	ModeHybrid      Mode = "hybrid"
	ModeCrossmodal  Mode = "crossmodal"
	ModeGraph       Mode = "graph"
	ModeHybridGraph Mode = "hybrid_graph"
)

// Request is one search call. ContainerIDs may be resolved from UUIDs or
// slugs by the caller before this package sees them.
type Request struct {
	ContainerIDs []uuid.UUID
	Principal    string
	Mode         Mode
	Query        string
	ImageBase64  string
	TopK         int
	Rerank       *bool // nil defers to manifest
	GraphAugment bool
	NeighborK    int
	MaxHops      int
}

// Item is one fused, scored, hydrated search hit.
type Item struct {
	Chunk       model.Chunk
	DocumentURI string
	DocTitle    string
	Score       float64
	BM25Score   float64
	VectorScore float64
	Snippet     string
	Explanation map[string]any
}

// GraphContext carries the hybrid_graph neighborhood expansion attached to
// a response.
type GraphContext struct {
	Nodes    []model.GraphNode
	Edges    []model.GraphEdge
	Snippets map[string]string
}

// Diagnostics mirrors model.DiagnosticsRecord's shape for this request.
type Diagnostics struct {
	RequestID   string
	TimingsMS   map[string]int64
	Issues      []string
	Partial     bool
	BudgetMS    int64
	RerankUsed  bool
}

// Response is the result of one Search call.
type Response struct {
	Items       []Item
	GraphCtx    *GraphContext
	Diagnostics Diagnostics
}

const (
	IssueContainerNotFound     = "CONTAINER_NOT_FOUND"
	IssueNoHits                = "NO_HITS"
	IssueVectorDown            = "VECTOR_DOWN"
	IssueRerankDown            = "RERANK_DOWN"
	IssueRerankTimeout         = "RERANK_TIMEOUT"
	IssueRerankSkippedNoText   = "RERANK_SKIPPED_NO_TEXT"
	IssueLatencyBudgetExceeded = "LATENCY_BUDGET_EXCEEDED"
	IssueGraphQueryInvalid     = "GRAPH_QUERY_INVALID"
)

// MaxTopK is the declared upper bound on Request.TopK (spec.md §8: k=50
// accepted, k=51 rejected).
const MaxTopK = 50

// ValidationError is the Validation error kind from spec.md §7: a
// malformed request, surfaced as 400 with Code in the response detail.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
)

func invalidRequest(msg string) *ValidationError {
	return &ValidationError{Code: ErrCodeInvalidRequest, Message: msg}
}

// ValidateRequest rejects a malformed Request before Engine.Search runs,
// per spec.md §8's boundary behaviors: k must be in [1, MaxTopK], query
// and image must not both be empty, and graph mode rejects an image.
func ValidateRequest(req Request) error {
	if req.TopK <= 0 {
		return invalidRequest("top_k must be greater than 0")
	}
	if req.TopK > MaxTopK {
		return invalidRequest("top_k must not exceed 50")
	}
	if strings.TrimSpace(req.Query) == "" && strings.TrimSpace(req.ImageBase64) == "" {
		return invalidRequest("query and image must not both be empty")
	}
	if req.Mode == ModeGraph && req.ImageBase64 != "" {
		return invalidRequest("graph mode does not accept an image")
	}
	return nil
}

func elapsedMS(start time.Time) int64 { return time.Since(start).Milliseconds() }
