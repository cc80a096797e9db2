package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"corectx/internal/chunker"
	"corectx/internal/corerr"
	"corectx/internal/embedclient"
	"corectx/internal/graphquery"
	"corectx/internal/graphstore"
	"corectx/internal/logging"
	"corectx/internal/manifest"
	"corectx/internal/model"
	"corectx/internal/obs"
	"corectx/internal/objectstore"
	"corectx/internal/relstore"
	"corectx/internal/textextract"
	"corectx/internal/vectorstore"
)

// Pipeline wires every store and client the ingestion pipeline needs. It
// is constructed once per process and reused across jobs; all state it
// touches is scoped by the request's container id.
type Pipeline struct {
	rel           *relstore.Store
	vec           vectorstore.Store
	graph         graphstore.Store
	obj           objectstore.ObjectStore
	cache         embedclient.Cache
	textEmbedder  embedclient.Embedder
	imageEmbedder embedclient.Embedder
	extractor     graphquery.EntityExtractor
	manifests     *manifest.Loader
	webFetcher    *textextract.WebFetcher
	chunkOpts     chunker.Options
	log           logging.Logger
	tracer        trace.Tracer
	metrics       obs.Metrics
	cacheTTL      time.Duration
}

// Option configures an optional Pipeline dependency.
type Option func(*Pipeline)

func WithGraphStore(g graphstore.Store) Option         { return func(p *Pipeline) { p.graph = g } }
func WithObjectStore(o objectstore.ObjectStore) Option { return func(p *Pipeline) { p.obj = o } }
func WithImageEmbedder(e embedclient.Embedder) Option  { return func(p *Pipeline) { p.imageEmbedder = e } }
func WithEntityExtractor(e graphquery.EntityExtractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}
func WithChunkOptions(o chunker.Options) Option { return func(p *Pipeline) { p.chunkOpts = o } }
func WithLogger(l logging.Logger) Option        { return func(p *Pipeline) { p.log = l } }
func WithTracer(t trace.Tracer) Option { return func(p *Pipeline) { p.tracer = t } }
func WithMetrics(m obs.Metrics) Option { return func(p *Pipeline) { p.metrics = m } }
func WithEmbedCacheTTL(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.cacheTTL = d
		}
	}
}

func New(rel *relstore.Store, vec vectorstore.Store, cache embedclient.Cache, textEmbedder embedclient.Embedder, manifests *manifest.Loader, opts ...Option) *Pipeline {
	p := &Pipeline{
		rel:          rel,
		vec:          vec,
		cache:        cache,
		textEmbedder: textEmbedder,
		manifests:    manifests,
		webFetcher:   textextract.NewWebFetcher(0, 0),
		chunkOpts:    chunker.DefaultOptions(),
		log:          logging.Default{},
		tracer:       nooptrace.NewTracerProvider().Tracer("corectx/ingest"),
		cacheTTL:     DefaultEmbedCacheTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.imageEmbedder == nil {
		p.imageEmbedder = p.textEmbedder
	}
	return p
}

// Run executes one ingestion request end to end: fingerprint/dedup-on-hash,
// chunking, cached embedding, semantic dedup, and the multi-store commit:
// blob, then each chunk row immediately followed by its vector upsert, then
// stats, then graph. Vector upserts therefore land before the stats update,
// not after it.
func (p *Pipeline) Run(ctx context.Context, req Request) (result Result, err error) {
	ctx, span := p.tracer.Start(ctx, "ingest.Pipeline.Run",
		trace.WithAttributes(attribute.String("container_id", req.ContainerID.String())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	var warnings []string

	container, err := p.rel.GetContainer(ctx, req.ContainerID)
	containerLoaded := err == nil
	useManifest := containerLoaded
	var mf manifest.Manifest
	if useManifest {
		mf, err = p.manifests.Load(ctx, container.Slug)
		useManifest = err == nil
	}
	limits := manifest.Limits{MaxSizeBytes: 50 << 20, MaxPDFPages: 500}
	imgPolicy := manifest.ImagePolicy{ThumbnailMaxEdge: 2048, CompressQuality: 85}
	semanticThreshold := 0.96
	graphEnabled := false
	if useManifest {
		limits = mf.Limits
		imgPolicy = mf.Image
		semanticThreshold = mf.Dedup.SemanticThreshold
		graphEnabled = mf.Graph.Enabled
	}

	modality := DetectModality(req.Source)
	allowed := true
	if useManifest {
		allowed = mf.AllowsModality(modality)
	} else if containerLoaded {
		allowed = container.AllowsModality(modality)
	}
	if !allowed {
		return Result{}, corerr.Invalid(fmt.Sprintf("BLOCKED_MODALITY: container does not allow modality %q", modality))
	}

	ext, err := p.extract(ctx, req.Source, modality, limits, imgPolicy)
	if err != nil {
		return Result{}, corerr.Wrap(corerr.KindUnavailable, "extract source", err)
	}
	if ext.Degraded {
		warnings = append(warnings, "extraction degraded: "+string(modality))
	}

	fingerprint := Fingerprint(ext.Text, req.Source)
	hash := DocumentHash(req.ContainerID, fingerprint)

	decision, err := resolveIdempotency(ctx, p.rel, req.ContainerID, hash)
	if err != nil {
		return Result{}, corerr.Wrap(corerr.KindInternal, "resolve idempotency", err)
	}
	if decision.Action == actionNoOp {
		return Result{DocumentID: decision.Existing.ID, NoOp: true}, nil
	}

	doc := model.Document{
		ContainerID: req.ContainerID,
		Hash:        hash,
		URI:         req.Source.URI,
		MIME:        req.Source.MIME,
		Modality:    modality,
		Title:       req.Source.Title,
		Meta:        req.Source.Meta,
	}
	if ext.Degraded {
		doc.State = model.DocumentDegraded
	}

	if decision.Action == actionRecover {
		doc.ID = decision.Existing.ID
		if err := p.rel.UpdateDocumentState(ctx, doc.ID, doc.State); err != nil {
			return Result{}, corerr.Wrap(corerr.KindInternal, "refresh recovered document", err)
		}
	} else {
		created, err := p.rel.CreateDocument(ctx, doc)
		if err != nil {
			return Result{}, corerr.Wrap(corerr.KindInternal, "create document", err)
		}
		doc = created
	}

	// Blob writes, best-effort: relational state remains authoritative even
	// if the object store is unavailable. Keys follow the container/doc
	// layout objectstore.RawTextKey/OriginalKey/ThumbnailKey define.
	containerKey := req.ContainerID.String()
	docKey := doc.ID.String()
	filename := filenameFromSource(req.Source)
	if p.obj != nil {
		if ext.Text != "" {
			textKey := objectstore.RawTextKey(containerKey, docKey)
			if _, err := p.obj.Put(ctx, textKey, strings.NewReader(ext.Text), objectstore.PutOptions{ContentType: "text/plain"}); err != nil {
				warnings = append(warnings, "raw text write failed: "+err.Error())
			}
		}
		if len(ext.Original) > 0 {
			key := objectstore.OriginalKey(containerKey, docKey, filename)
			if _, err := p.obj.Put(ctx, key, bytes.NewReader(ext.Original), objectstore.PutOptions{ContentType: req.Source.MIME}); err != nil {
				warnings = append(warnings, "object store write failed: "+err.Error())
				p.log.Warn("ingest_blob_write_failed", logging.Fields{"error": err.Error(), "container_id": req.ContainerID})
			}
			if len(ext.Thumbnail) > 0 {
				thumbKey := objectstore.ThumbnailKey(containerKey, docKey, filename)
				if _, err := p.obj.Put(ctx, thumbKey, bytes.NewReader(ext.Thumbnail), objectstore.PutOptions{ContentType: "image/jpeg"}); err != nil {
					warnings = append(warnings, "thumbnail write failed: "+err.Error())
				}
			}
		}
	}

	chunks, err := p.buildChunks(ctx, doc, modality, ext, semanticThreshold, &warnings)
	if err != nil {
		return Result{}, corerr.Wrap(corerr.KindInternal, "chunk and embed document", err)
	}

	var docSize int64
	for _, c := range chunks {
		docSize += int64(len(c.Text))
	}
	if err := p.rel.IncrementStats(ctx, req.ContainerID, 1, int64(len(chunks)), docSize); err != nil {
		warnings = append(warnings, "stats recompute failed: "+err.Error())
	}

	vectorUpserts := 0
	for _, c := range chunks {
		if !c.IsDuplicate() {
			vectorUpserts++
		}
	}

	if graphEnabled {
		if err := upsertDocumentGraph(ctx, p.graph, doc, chunks); err != nil {
			warnings = append(warnings, "graph upsert failed: "+err.Error())
			p.log.Warn("ingest_graph_upsert_failed", logging.Fields{"error": err.Error(), "document_id": doc.ID})
		} else {
			for _, c := range chunks {
				if c.IsDuplicate() {
					continue
				}
				if err := extractAndUpsertEntities(ctx, p.graph, p.extractor, c, "english"); err != nil {
					warnings = append(warnings, "entity extraction failed: "+err.Error())
				}
			}
		}
	}

	chunkIDs := make([]uuid.UUID, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.ID
	}

	if p.metrics != nil {
		labels := map[string]string{"modality": string(modality)}
		p.metrics.IncCounter("ingest_documents_total", labels)
		p.metrics.ObserveHistogram("ingest_duration_ms", float64(time.Since(start).Milliseconds()), labels)
	}

	return Result{
		DocumentID: doc.ID,
		Degraded:   ext.Degraded,
		ChunkIDs:   chunkIDs,
		Stats: Stats{
			NumChunks:       len(chunks),
			DuplicateChunks: len(chunks) - vectorUpserts,
			VectorUpserts:   vectorUpserts,
			Duration:        time.Since(start),
		},
		Warnings: warnings,
	}, nil
}

// filenameFromSource derives the blob filename used under the document's
// original/ and thumbs/ object-store keys: the URI's base name, else the
// title, else "" (for which the key helpers substitute "source").
func filenameFromSource(src Source) string {
	if name := path.Base(src.URI); name != "." && name != "/" && name != "" {
		return name
	}
	if src.Title != "" {
		return src.Title
	}
	return ""
}
