package retrieve

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"corectx/internal/embedclient"
	"corectx/internal/graphstore"
	"corectx/internal/logging"
	"corectx/internal/manifest"
	"corectx/internal/model"
	"corectx/internal/obs"
	"corectx/internal/relstore"
	"corectx/internal/vectorstore"
)

// Engine wires the stores and clients the hybrid search engine needs.
type Engine struct {
	rel       *relstore.Store
	vec       vectorstore.Store
	graph     graphstore.Store
	manifests *manifest.Loader
	embedder  embedclient.Embedder
	rerank    Reranker
	log       logging.Logger
	tracer    trace.Tracer
	metrics   obs.Metrics

	globalBudgetMS int64
}

// EngineOption configures an optional Engine dependency.
type EngineOption func(*Engine)

func WithGraphStore(g graphstore.Store) EngineOption { return func(e *Engine) { e.graph = g } }
func WithReranker(r Reranker) EngineOption           { return func(e *Engine) { e.rerank = r } }
func WithLogger(l logging.Logger) EngineOption       { return func(e *Engine) { e.log = l } }
func WithGlobalBudgetMS(ms int64) EngineOption       { return func(e *Engine) { e.globalBudgetMS = ms } }
func WithTracer(t trace.Tracer) EngineOption         { return func(e *Engine) { e.tracer = t } }
func WithMetrics(m obs.Metrics) EngineOption         { return func(e *Engine) { e.metrics = m } }

func NewEngine(rel *relstore.Store, vec vectorstore.Store, manifests *manifest.Loader, embedder embedclient.Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		rel:            rel,
		vec:            vec,
		manifests:      manifests,
		embedder:       embedder,
		rerank:         NoopReranker{},
		log:            logging.Default{},
		tracer:         nooptrace.NewTracerProvider().Tracer("corectx/retrieve"),
		globalBudgetMS: 1200,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs one hybrid retrieval request end to end: resolution and
// policy, query expansion, lexical/vector fan-out, fusion, freshness,
// pseudo-rerank, optional remote rerank, optional graph context, and
// latency-budget accounting.
func (e *Engine) Search(ctx context.Context, req Request) (Response, error) {
	if err := ValidateRequest(req); err != nil {
		return Response{}, err
	}

	ctx, span := e.tracer.Start(ctx, "retrieve.Engine.Search",
		trace.WithAttributes(attribute.String("mode", string(req.Mode)), attribute.Int("top_k", req.TopK)))
	defer span.End()

	start := time.Now()
	timings := map[string]int64{}
	var issues []string

	k := req.TopK

	resolved := resolveContainers(ctx, e.rel, e.manifests, req.ContainerIDs, req.Principal)
	if len(resolved) == 0 {
		issues = append(issues, IssueContainerNotFound)
		return e.finish(req, nil, nil, issues, timings, start, false), nil
	}

	budget := effectiveBudget(e.globalBudgetMS, resolved)
	rerankPolicy := effectiveRerank(resolved)

	variants := ExpandQuery(req.Query)

	var lexical map[uuid.UUID]relstore.LexicalResult
	var vector map[uuid.UUID]vectorHit
	var vectorDown bool

	if req.Mode != ModeSemantic && req.Mode != ModeCrossmodal && req.Mode != ModeGraph {
		t0 := time.Now()
		lex, err := lexicalFanout(ctx, e.rel, resolved, variants, maxOf(2*k, k))
		timings["bm25_ms"] = elapsedMS(t0)
		if err == nil {
			lexical = lex
		}
	}

	queryInputs := variants
	if req.Mode == ModeCrossmodal && req.ImageBase64 != "" {
		queryInputs = []string{req.ImageBase64}
	}

	if req.Mode != ModeBM25 && req.Mode != ModeGraph && e.embedder != nil && len(queryInputs) > 0 {
		t0 := time.Now()
		vecs, err := e.embedder.EmbedBatch(ctx, queryInputs)
		timings["embed_ms"] = elapsedMS(t0)
		if err != nil {
			issues = append(issues, IssueVectorDown)
		} else {
			t1 := time.Now()
			vh, down := vectorFanout(ctx, e.vec, e.rel, resolved, vecs, k)
			timings["vector_ms"] = elapsedMS(t1)
			vector = vh
			vectorDown = down
		}
	}
	if vectorDown {
		issues = appendUnique(issues, IssueVectorDown)
	}

	t0 := time.Now()
	items := fuseRRF(lexical, vector)
	applyFreshness(items, freshnessLambda(resolved), time.Now())
	items = pseudoRerankBlend(items, req.Query, maxOf(k, len(items)))
	timings["fusion_ms"] = elapsedMS(t0)

	if len(items) == 0 {
		issues = append(issues, IssueNoHits)
	}

	useRerank := rerankPolicy.Enabled
	if req.Rerank != nil {
		useRerank = *req.Rerank
	}
	rerankApplied := false
	if useRerank && len(items) > 0 {
		topIn := rerankPolicy.TopKIn
		if topIn <= 0 || topIn > len(items) {
			topIn = len(items)
		}
		remaining := budget - elapsedMS(start)
		timeout := rerankPolicy.Timeout
		if remaining > 0 && time.Duration(remaining)*time.Millisecond < timeout {
			timeout = time.Duration(remaining) * time.Millisecond
		}
		rctx, cancel := context.WithTimeout(ctx, timeout)
		t0 := time.Now()
		items, rerankApplied = e.applyRerank(rctx, req.Query, items[:topIn], items[topIn:], rerankPolicy.TopKOut)
		cancel()
		timings["rerank_ms"] = elapsedMS(t0)
		if !rerankApplied {
			if timings["rerank_ms"] >= timeout.Milliseconds() {
				issues = append(issues, IssueRerankTimeout)
			} else {
				issues = append(issues, IssueRerankDown)
			}
		}
	}

	if k > 0 && len(items) > k {
		items = items[:k]
	}

	var graphCtx *GraphContext
	if req.Mode == ModeHybridGraph && e.graph != nil && len(resolved) > 0 {
		t0 := time.Now()
		graphCtx = expandGraphContext(ctx, e.graph, resolved[0].Container.ID, items, req.NeighborK, req.MaxHops)
		timings["graph_ms"] = elapsedMS(t0)
	}

	return e.finish(req, items, graphCtx, issues, timings, start, rerankApplied), nil
}

func (e *Engine) applyRerank(ctx context.Context, query string, head, tail []Item, topKOut int) ([]Item, bool) {
	ids := make([]string, len(head))
	texts := make([]string, len(head))
	byID := make(map[string]Item, len(head))
	for i, it := range head {
		id := it.Chunk.ID.String()
		ids[i] = id
		texts[i] = it.Chunk.Text
		byID[id] = it
	}
	if topKOut <= 0 {
		topKOut = len(ids)
	}
	ranked, err := e.rerank.Rerank(ctx, "default", query, ids, texts, topKOut)
	if err != nil {
		return append(head, tail...), false
	}
	out := make([]Item, 0, len(ranked)+len(tail))
	for _, id := range ranked {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	out = append(out, tail...)
	return out, true
}

func (e *Engine) finish(req Request, items []Item, gc *GraphContext, issues []string, timings map[string]int64, start time.Time, rerankApplied bool) Response {
	timings["total_ms"] = elapsedMS(start)
	partial := false
	budget := e.globalBudgetMS
	if timings["total_ms"] > budget {
		issues = appendUnique(issues, IssueLatencyBudgetExceeded)
		partial = true
	}
	if e.metrics != nil {
		labels := map[string]string{"mode": string(req.Mode)}
		e.metrics.IncCounter("retrieve_searches_total", labels)
		e.metrics.ObserveHistogram("retrieve_search_ms", float64(timings["total_ms"]), labels)
	}
	return Response{
		Items:    items,
		GraphCtx: gc,
		Diagnostics: Diagnostics{
			RequestID:  model.NewID().String(),
			TimingsMS:  timings,
			Issues:     issues,
			Partial:    partial,
			BudgetMS:   budget,
			RerankUsed: rerankApplied,
		},
	}
}

func freshnessLambda(resolved []resolvedContainer) float64 {
	for _, r := range resolved {
		if r.Manifest.Retrieval.Freshness.Enabled {
			return r.Manifest.Retrieval.Freshness.DecayLambda
		}
	}
	return 0
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func appendUnique(issues []string, issue string) []string {
	for _, i := range issues {
		if i == issue {
			return issues
		}
	}
	return append(issues, issue)
}
