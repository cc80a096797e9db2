// Package ingest implements the ingestion pipeline: modality dispatch,
// fingerprint/dedup-on-hash, chunking, cached embedding, semantic
// deduplication, coordinated multi-store commit, and optional graph
// extraction.
package ingest

import (
	"time"

	"github.com/google/uuid"

	"corectx/internal/model"
)

// Source describes the raw input to ingest: a URI plus optional inline
// bytes (for images uploaded directly rather than fetched) and a modality
// hint the caller may already know.
type Source struct {
	URI      string
	MIME     string
	Modality model.Modality // optional hint; empty triggers detection
	Title    string
	Meta     map[string]any
	Inline   []byte // raw bytes, used when URI isn't independently fetchable
}

// Request is one ingestion job's payload.
type Request struct {
	ContainerID uuid.UUID
	Source      Source
}

// Stats mirrors the operational counters recorded for observability.
type Stats struct {
	NumChunks     int
	DuplicateChunks int
	VectorUpserts int
	Duration      time.Duration
}

// Result summarizes the mutation performed by one Run call.
type Result struct {
	DocumentID uuid.UUID
	NoOp       bool // existing document already had chunks; nothing changed
	Degraded   bool
	ChunkIDs   []uuid.UUID
	Stats      Stats
	Warnings   []string
}
