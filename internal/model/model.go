// Package model defines the explicit domain records shared across the
// ingestion pipeline, hybrid retrieval engine, job queue, and graph
// subsystems. Fields that are genuinely free-form (per-document metadata,
// graph node/edge properties) stay as map[string]any; everything else is a
// typed field so callers never have to type-assert their way through a
// dict.
package model

import (
	"time"

	"github.com/google/uuid"
)

// ContainerState is the lifecycle state of a Container.
type ContainerState string

const (
	ContainerActive   ContainerState = "active"
	ContainerPaused   ContainerState = "paused"
	ContainerArchived ContainerState = "archived"
)

// Modality tags the kind of content a document or chunk carries. Pipeline
// dispatch and retrieval filtering both switch on this type instead of
// branching on ad-hoc strings.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityPDF   Modality = "pdf"
	ModalityImage Modality = "image"
	ModalityWeb   Modality = "web"
)

// ValidModality reports whether m is one of the known modality tags.
func ValidModality(m Modality) bool {
	switch m {
	case ModalityText, ModalityPDF, ModalityImage, ModalityWeb:
		return true
	default:
		return false
	}
}

// Role is an ACL principal role within a container.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleReader Role = "reader"
)

// ACL maps a principal id (agent id, user id, or "*") to its role.
type ACL map[string]Role

// Allows reports whether principal has at least the reader role, i.e. any
// explicit grant or a wildcard grant.
func (a ACL) Allows(principal string) bool {
	if _, ok := a[principal]; ok {
		return true
	}
	_, ok := a["*"]
	return ok
}

// Stats tracks the aggregate counters recomputed after every ingest.
type Stats struct {
	DocumentCount int64
	ChunkCount    int64
	SizeBytes     int64
	LastIngest    *time.Time
}

// Container is an isolated, versioned knowledge collection.
type Container struct {
	ID          uuid.UUID
	Slug        string
	Theme       string
	ParentID    *uuid.UUID
	Modalities  []Modality
	Embedder    string
	EmbedderVer string
	Dimensions  int
	ACL         ACL
	State       ContainerState
	Stats       Stats
	GraphEnabled bool
	GuidingDocID *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AllowsModality reports whether m is in the container's declared set.
func (c Container) AllowsModality(m Modality) bool {
	for _, x := range c.Modalities {
		if x == m {
			return true
		}
	}
	return false
}

// DocumentState tracks the lifecycle of a Document row.
type DocumentState string

const (
	DocumentActive   DocumentState = "active"
	DocumentDegraded DocumentState = "degraded"
)

// Document belongs to exactly one container and is keyed by (container_id,
// hash) where hash is the content-address described in spec.md §3.
type Document struct {
	ID          uuid.UUID
	ContainerID uuid.UUID
	Hash        string
	URI         string
	MIME        string
	Modality    Modality
	Title       string
	Meta        map[string]any
	State       DocumentState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Provenance is carried on every chunk for traceability back to its source.
type Provenance struct {
	SourceURI    string
	IngestedAt   time.Time
	Pipeline     string
	ChunkIndex   int
	TotalChunks  int
}

// Chunk is the retrievable unit produced by the ingestion pipeline.
type Chunk struct {
	ID            uuid.UUID
	ContainerID   uuid.UUID
	DocumentID    uuid.UUID
	Modality      Modality
	Text          string // empty for images
	ByteStart     int
	ByteEnd       int
	Provenance    Provenance
	Meta          map[string]any
	EmbedderVer   string
	DedupOf       *uuid.UUID
	CreatedAt     time.Time
}

// IsDuplicate reports whether this chunk is a semantic duplicate that must
// be excluded from default search results and must not carry a live vector.
func (c Chunk) IsDuplicate() bool { return c.DedupOf != nil }

// EmbeddingCacheEntry is keyed by (content_hash, modality, embedder_version).
type EmbeddingCacheEntry struct {
	ContentHash   string
	Modality      Modality
	EmbedderVer   string
	Vector        []float32
	Dimensions    int
	LastUsed      time.Time
}

// JobKind enumerates the kinds of work the queue dispatches.
type JobKind string

const (
	JobIngest  JobKind = "ingest"
	JobRefresh JobKind = "refresh"
	JobExport  JobKind = "export"
)

// JobStatus is the lifecycle state of a Job row.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is a unit of at-least-once work dispatched by the job queue.
type Job struct {
	ID            uuid.UUID
	Kind          JobKind
	Status        JobStatus
	Payload       map[string]any // opaque JSON, includes container_id and source
	Retries       int
	LastHeartbeat *time.Time
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// JobEvent is an append-only entry in a job's event journal.
type JobEvent struct {
	ID        int64
	JobID     uuid.UUID
	Status    string
	Message   string
	Timestamp time.Time
}

// GraphNode is a (container_id, node_id)-keyed property-graph node.
type GraphNode struct {
	ContainerID    uuid.UUID
	NodeID         string
	Label          string
	Type           string
	Summary        string
	Props          map[string]any
	SourceChunkIDs []uuid.UUID
}

// GraphEdge connects two nodes within the same container.
type GraphEdge struct {
	ContainerID  uuid.UUID
	SourceID     string
	TargetID     string
	Type         string
	Props        map[string]any
	SourceChunkIDs []uuid.UUID
}

// DiagnosticsRecord is the per-request envelope attached to search and
// ingest responses.
type DiagnosticsRecord struct {
	RequestID        string
	TimingsMS        map[string]int64
	HitCounts        map[string]int
	AppliedPolicies  []string
	OverBudgetMS     int64
	RerankApplied    bool
	RerankMeta       map[string]any
	GraphMeta        map[string]any
	Issues           []string
	ManifestVersion  int
}

// NewID returns a fresh random UUID. Centralized so every ID-producing site
// uses the same generator (and tests can substitute it if ever needed).
func NewID() uuid.UUID { return uuid.New() }
