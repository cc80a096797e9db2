// Package bootstrap wires the stores, clients, and top-level Service
// shared by cmd/coreworker and cmd/corequery from one loaded
// config.Config, so both entrypoints build the exact same dependency
// graph and only differ in what they do with it (run a worker pool vs.
// issue one request).
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"corectx/internal/activity"
	"corectx/internal/appctx"
	"corectx/internal/config"
	"corectx/internal/diagnostics"
	"corectx/internal/embedclient"
	"corectx/internal/graphquery"
	"corectx/internal/graphstore"
	"corectx/internal/ingest"
	"corectx/internal/jobqueue"
	"corectx/internal/logging"
	"corectx/internal/manifest"
	"corectx/internal/obs"
	"corectx/internal/objectstore"
	"corectx/internal/relstore"
	"corectx/internal/retrieve"
	"corectx/internal/service"
	"corectx/internal/vectorstore"
)

// App bundles every long-lived collaborator built from config, so
// cmd/ entrypoints have one value to pass around and one Close to call
// at shutdown.
type App struct {
	Context  *appctx.Context
	Rel      *relstore.Store
	Vec      vectorstore.Store
	Graph    graphstore.Store
	Obj      objectstore.ObjectStore
	Manifest *manifest.Loader
	Pipeline *ingest.Pipeline
	Engine   *retrieve.Engine
	Service  *service.Service
	DiagSink *diagnostics.Sink
	ActSink  *activity.Sink

	closers []func()
}

// Close releases every resource App opened, in reverse build order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build loads cfg's adapters and constructs the full dependency graph.
// ctx is used only for the duration of construction (dialing Postgres,
// pinging ClickHouse); it is not retained.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	tracer, meter, otelShutdown, err := obs.Setup(ctx, cfg.OTel)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	app := appctx.New(cfg, tracer, meter)
	a := &App{Context: app}
	a.closers = append(a.closers, func() { _ = otelShutdown(context.Background()) })

	rel, err := relstore.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.Rel = rel
	a.closers = append(a.closers, rel.Close)

	vec, err := buildVectorStore(ctx, cfg, rel)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build vector store: %w", err)
	}
	a.Vec = vec

	graph, err := buildGraphStore(ctx, cfg, rel)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build graph store: %w", err)
	}
	a.Graph = graph
	a.closers = append(a.closers, func() { _ = graph.Close() })

	obj, err := buildObjectStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build object store: %w", err)
	}
	a.Obj = obj

	textEmbedder, imageEmbedder, err := buildEmbedders(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build embedders: %w", err)
	}

	cache := buildEmbeddingCache(cfg, rel)

	a.Manifest = manifest.New(rel, os.Getenv("CORECTX_MANIFEST_OVERLAY_DIR"), 10*time.Minute)

	extractor := buildEntityExtractor(cfg)
	translator := buildTranslator(cfg)

	metrics := obs.NewOtelMetrics(app.Meter)

	embedCacheTTL, err := time.ParseDuration(cfg.Embedding.CacheTTL)
	if err != nil || embedCacheTTL <= 0 {
		embedCacheTTL = ingest.DefaultEmbedCacheTTL
	}

	a.Pipeline = ingest.New(rel, vec, cache, textEmbedder, a.Manifest,
		ingest.WithGraphStore(graph),
		ingest.WithObjectStore(obj),
		ingest.WithImageEmbedder(imageEmbedder),
		ingest.WithEntityExtractor(extractor),
		ingest.WithLogger(app.Logger),
		ingest.WithTracer(app.Tracer),
		ingest.WithMetrics(metrics),
		ingest.WithEmbedCacheTTL(embedCacheTTL),
	)

	reranker := buildReranker(cfg)

	a.Engine = retrieve.NewEngine(rel, vec, a.Manifest, textEmbedder,
		retrieve.WithGraphStore(graph),
		retrieve.WithReranker(reranker),
		retrieve.WithLogger(app.Logger),
		retrieve.WithGlobalBudgetMS(cfg.Retrieval.LatencyBudgetMS),
		retrieve.WithTracer(app.Tracer),
		retrieve.WithMetrics(metrics),
	)

	a.ActSink = activity.New(rel, activity.WithLogger(app.Logger))
	diagOpts := []diagnostics.Option{diagnostics.WithLogger(app.Logger)}
	mirror, err := diagnostics.NewClickHouseMirror(ctx, diagnostics.ClickHouseConfig{
		DSN:   cfg.OTel.ClickHouseDSN,
		Table: cfg.OTel.ClickHouseTable,
	})
	if err != nil {
		app.Logger.Warn("clickhouse_mirror_unavailable", logging.Fields{"error": err.Error()})
	} else if mirror != nil {
		diagOpts = append(diagOpts, diagnostics.WithMirror(mirror))
		a.closers = append(a.closers, func() { _ = mirror.Close() })
	}
	a.DiagSink = diagnostics.New(rel, diagOpts...)

	a.Service = service.New(app, rel, a.Pipeline, a.Engine,
		service.WithGraphStore(graph),
		service.WithTranslator(translator),
		service.WithVectorPinger(vec),
		service.WithObjectPinger(obj),
		service.WithDiagnosticsSink(a.DiagSink),
		service.WithActivitySink(a.ActSink),
	)

	return a, nil
}

// RunSinks starts the activity and diagnostics background flush loops in
// their own goroutines and returns immediately; both loops stop once ctx is
// cancelled and drain.
func (a *App) RunSinks(ctx context.Context) {
	go a.ActSink.Run(ctx)
	go a.DiagSink.Run(ctx)
}

func buildVectorStore(ctx context.Context, cfg *config.Config, rel *relstore.Store) (vectorstore.Store, error) {
	switch backend := strings.ToLower(os.Getenv("CORECTX_VECTOR_BACKEND")); backend {
	case "qdrant":
		return vectorstore.NewQdrantStore(cfg.Qdrant)
	case "memory":
		return vectorstore.NewMemoryStore(), nil
	case "", "postgres":
		return vectorstore.NewPostgresStore(ctx, rel.Pool())
	default:
		return nil, fmt.Errorf("unknown vector backend %q", backend)
	}
}

func buildGraphStore(ctx context.Context, cfg *config.Config, rel *relstore.Store) (graphstore.Store, error) {
	switch backend := strings.ToLower(os.Getenv("CORECTX_GRAPH_BACKEND")); backend {
	case "memory":
		return graphstore.NewMemoryStore(), nil
	case "", "postgres":
		return graphstore.NewPostgresStore(ctx, rel.Pool())
	default:
		return nil, fmt.Errorf("unknown graph backend %q", backend)
	}
}

func buildObjectStore(ctx context.Context, cfg *config.Config) (objectstore.ObjectStore, error) {
	if strings.TrimSpace(cfg.ObjectStore.Bucket) == "" {
		return objectstore.NewMemoryStore(), nil
	}
	return objectstore.NewS3Store(ctx, cfg.ObjectStore)
}

func buildEmbedders(ctx context.Context, cfg *config.Config) (text, image embedclient.Embedder, err error) {
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "genai":
		e, err := embedclient.NewGenaiEmbedder(ctx, cfg.Embedding)
		if err != nil {
			return nil, nil, err
		}
		return e, e, nil
	case "", "openai", "http":
		e := embedclient.NewOpenAIEmbedder(cfg.Embedding)
		return e, e, nil
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func buildEmbeddingCache(cfg *config.Config, rel *relstore.Store) embedclient.Cache {
	backing := embedclient.NewPostgresCache(rel)
	if !cfg.Redis.Enabled || strings.TrimSpace(cfg.Redis.Addr) == "" {
		return backing
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	return embedclient.NewRedisFrontedCache(client, backing, 10*time.Minute)
}

func buildReranker(cfg *config.Config) retrieve.Reranker {
	if !cfg.Reranker.Enabled || strings.TrimSpace(cfg.Reranker.Host) == "" {
		return retrieve.NoopReranker{}
	}
	base := retrieve.NewHTTPReranker(cfg.Reranker.Host, "", 0)

	ttl, err := time.ParseDuration(cfg.Reranker.CacheTTL)
	if err != nil || ttl <= 0 {
		ttl = 10 * time.Minute
	}

	var client redis.UniversalClient
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) != "" {
		client = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}
	return retrieve.NewRerankResultCache(base, cfg.Reranker.CacheSize, ttl, client)
}

func buildEntityExtractor(cfg *config.Config) graphquery.EntityExtractor {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.OpenAIKey == "" {
			return nil
		}
		return graphquery.NewOpenAIExtractor(cfg.LLM.OpenAIKey, cfg.LLM.Model)
	case "", "anthropic":
		if cfg.LLM.AnthropicKey == "" {
			return nil
		}
		return graphquery.NewAnthropicExtractor(cfg.LLM.AnthropicKey, cfg.LLM.Model)
	default:
		return nil
	}
}

func buildTranslator(cfg *config.Config) graphquery.Translator {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.OpenAIKey == "" {
			return nil
		}
		return graphquery.NewOpenAITranslator(cfg.LLM.OpenAIKey, cfg.LLM.Model)
	case "", "anthropic":
		if cfg.LLM.AnthropicKey == "" {
			return nil
		}
		return graphquery.NewAnthropicTranslator(cfg.LLM.AnthropicKey, cfg.LLM.Model)
	default:
		return nil
	}
}

// BuildJobPool constructs the jobqueue worker pool wired to the app's
// ingestion pipeline. Separate from Build since only cmd/coreworker
// needs it.
func BuildJobPool(a *App, cfg *config.Config) *jobqueue.Pool {
	opts := []jobqueue.PoolOption{jobqueue.WithLogger(a.Context.Logger)}
	if n := cfg.JobQueue.Workers; n > 0 {
		opts = append(opts, jobqueue.WithWorkers(n))
	}
	if d, err := time.ParseDuration(cfg.JobQueue.PollInterval); err == nil && d > 0 {
		opts = append(opts, jobqueue.WithPollInterval(d))
	}
	if d, err := time.ParseDuration(cfg.JobQueue.VisibilityTimeout); err == nil && d > 0 {
		opts = append(opts, jobqueue.WithVisibilityTimeout(d))
	}
	if cfg.JobQueue.MaxRetries > 0 {
		opts = append(opts, jobqueue.WithMaxRetries(cfg.JobQueue.MaxRetries))
	}
	return jobqueue.NewPool(a.Rel, jobqueue.IngestHandler(a.Pipeline), opts...)
}
