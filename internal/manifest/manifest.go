// Package manifest loads and caches per-container declarative policy:
// allowed modalities, size limits, retrieval knobs, dedup threshold, ACL,
// graph toggles, and image handling — merging relational-store defaults
// with an optional YAML overlay, manifest wins on conflict.
package manifest

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"corectx/internal/corerr"
	"corectx/internal/model"
)

// RerankPolicy configures the optional rerank stage.
type RerankPolicy struct {
	Enabled   bool          `yaml:"enabled"`
	TopKIn    int           `yaml:"top_k_in"`
	TopKOut   int           `yaml:"top_k_out"`
	Timeout   time.Duration `yaml:"timeout"`
}

// FreshnessPolicy configures the exponential age-decay applied to scores.
type FreshnessPolicy struct {
	Enabled     bool    `yaml:"enabled"`
	DecayLambda float64 `yaml:"decay_lambda"`
}

// DedupPolicy configures semantic-dedup-on-ingest.
type DedupPolicy struct {
	SemanticThreshold float64 `yaml:"semantic_threshold"`
}

// GraphPolicy configures graph extraction/translation for a container.
type GraphPolicy struct {
	Enabled      bool   `yaml:"enabled"`
	LLMExtractor string `yaml:"llm_extractor"` // "", "anthropic", "openai"
}

// ImagePolicy configures image-modality thumbnailing.
type ImagePolicy struct {
	ThumbnailMaxEdge int `yaml:"thumbnail_max_edge"`
	CompressQuality  int `yaml:"compress_quality"`
}

// Limits bounds what can be ingested.
type Limits struct {
	MaxSizeBytes int64 `yaml:"max_size_bytes"`
	MaxPDFPages  int   `yaml:"max_pdf_pages"`
}

// Retrieval bundles the retrieval-time policy knobs.
type Retrieval struct {
	LatencyBudgetMS int64           `yaml:"latency_budget_ms"`
	Rerank          RerankPolicy    `yaml:"rerank"`
	Freshness       FreshnessPolicy `yaml:"freshness"`
}

// Manifest is the effective, merged per-container configuration.
type Manifest struct {
	ContainerID uuid.UUID
	Slug        string
	Modalities  []model.Modality
	Limits      Limits
	Retrieval   Retrieval
	Dedup       DedupPolicy
	ACL         model.ACL
	Graph       GraphPolicy
	Image       ImagePolicy
	Version     int
	LoadedAt    time.Time
}

func defaultManifest(c model.Container) Manifest {
	return Manifest{
		ContainerID: c.ID,
		Slug:        c.Slug,
		Modalities:  c.Modalities,
		Limits: Limits{
			MaxSizeBytes: 50 << 20,
			MaxPDFPages:  500,
		},
		Retrieval: Retrieval{
			LatencyBudgetMS: 1200,
			Rerank:          RerankPolicy{Enabled: false, TopKIn: 50, TopKOut: 10, Timeout: 2 * time.Second},
			Freshness:       FreshnessPolicy{Enabled: true, DecayLambda: 0.02},
		},
		Dedup: DedupPolicy{SemanticThreshold: 0.96},
		ACL:   c.ACL,
		Graph: GraphPolicy{Enabled: c.GraphEnabled},
		Image: ImagePolicy{ThumbnailMaxEdge: 2048, CompressQuality: 85},
	}
}

// yamlOverlay is the subset of Manifest fields an operator may author by
// hand in a `manifest.yaml`-shaped file; zero values mean "not set" and do
// not override the relational/default value.
type yamlOverlay struct {
	Modalities []model.Modality `yaml:"modalities,omitempty"`
	Limits     *Limits          `yaml:"limits,omitempty"`
	Retrieval  *Retrieval       `yaml:"retrieval,omitempty"`
	Dedup      *DedupPolicy     `yaml:"dedup,omitempty"`
	Graph      *GraphPolicy     `yaml:"graph,omitempty"`
	Image      *ImagePolicy     `yaml:"image,omitempty"`
}

func applyOverlay(m Manifest, ov yamlOverlay) Manifest {
	if len(ov.Modalities) > 0 {
		m.Modalities = ov.Modalities
	}
	if ov.Limits != nil {
		m.Limits = *ov.Limits
	}
	if ov.Retrieval != nil {
		m.Retrieval = *ov.Retrieval
	}
	if ov.Dedup != nil {
		m.Dedup = *ov.Dedup
	}
	if ov.Graph != nil {
		m.Graph = *ov.Graph
	}
	if ov.Image != nil {
		m.Image = *ov.Image
	}
	return m
}

// ContainerStore is the narrow slice of the relational store the loader
// depends on, so tests can stub it without a real Postgres connection.
type ContainerStore interface {
	GetContainerBySlug(ctx context.Context, slug string) (model.Container, error)
}

// Loader caches merged manifests by container slug.
type Loader struct {
	store      ContainerStore
	overlayDir string // directory of optional <slug>.yaml overlays; "" disables
	ttl        time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	manifest Manifest
	expires  time.Time
}

// New builds a Loader. overlayDir may be empty to disable YAML overlays.
func New(store ContainerStore, overlayDir string, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Loader{
		store:      store,
		overlayDir: overlayDir,
		ttl:        ttl,
		entries:    make(map[string]cacheEntry),
	}
}

// Load returns the effective manifest for slug, using the cache when fresh.
func (l *Loader) Load(ctx context.Context, slug string) (Manifest, error) {
	l.mu.RLock()
	entry, ok := l.entries[slug]
	l.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.manifest, nil
	}
	return l.reload(ctx, slug)
}

func (l *Loader) reload(ctx context.Context, slug string) (Manifest, error) {
	c, err := l.store.GetContainerBySlug(ctx, slug)
	if err != nil {
		return Manifest{}, corerr.Wrap(corerr.KindOf(err), "load container for manifest", err)
	}

	m := defaultManifest(c)
	if l.overlayDir != "" {
		if ov, err := l.readOverlay(slug); err == nil {
			m = applyOverlay(m, ov)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.entries[slug]
	m.Version = prev.manifest.Version + 1
	m.LoadedAt = time.Now()
	l.entries[slug] = cacheEntry{manifest: m, expires: time.Now().Add(l.ttl)}
	return m, nil
}

func (l *Loader) readOverlay(slug string) (yamlOverlay, error) {
	data, err := os.ReadFile(l.overlayDir + "/" + slug + ".yaml")
	if err != nil {
		return yamlOverlay{}, err
	}
	var ov yamlOverlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return yamlOverlay{}, err
	}
	return ov, nil
}

// Invalidate expires the cached manifest for slug, forcing a reload on next
// access; the reload still bumps Version from the previous value.
func (l *Loader) Invalidate(slug string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[slug]; ok {
		e.expires = time.Time{}
		l.entries[slug] = e
	}
}

// AllowsModality reports whether m's modality set includes mod.
func (m Manifest) AllowsModality(mod model.Modality) bool {
	for _, x := range m.Modalities {
		if x == mod {
			return true
		}
	}
	return false
}
