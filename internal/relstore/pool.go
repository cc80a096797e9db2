// Package relstore is the Postgres-backed system of record: containers,
// documents, chunks, the job queue and its event journal, the embedding
// cache, diagnostics records, and the lighter-weight container-versioning
// and agent-activity tables. Every table uses best-effort CREATE TABLE IF
// NOT EXISTS bootstrap rather than an external migration tool, matching the
// teacher's dev-time posture; production deployments are expected to manage
// schema with an external migration tool instead.
package relstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"corectx/internal/config"
)

// Store wraps a pooled Postgres connection and implements every
// relational-store-backed interface the rest of the system depends on
// (manifest.ContainerStore, jobqueue's store, retrieve's lexical search,
// and so on).
type Store struct {
	pool *pgxpool.Pool
}

// Open dials Postgres with the pool sizing from cfg and bootstraps schema.
func Open(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if d, err := time.ParseDuration(cfg.MaxConnLifetime); err == nil && d > 0 {
		pcfg.MaxConnLifetime = d
	}
	if d, err := time.ParseDuration(cfg.MaxConnIdle); err == nil && d > 0 {
		pcfg.MaxConnIdleTime = d
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool wraps an already-open pool, skipping the dial step; used by
// tests that share a pool across stores.
func NewWithPool(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
		`CREATE TABLE IF NOT EXISTS containers (
			id UUID PRIMARY KEY,
			slug TEXT UNIQUE NOT NULL,
			theme TEXT NOT NULL DEFAULT '',
			parent_id UUID REFERENCES containers(id),
			modalities TEXT[] NOT NULL DEFAULT '{}',
			embedder TEXT NOT NULL DEFAULT '',
			embedder_ver TEXT NOT NULL DEFAULT '',
			dimensions INT NOT NULL DEFAULT 0,
			acl JSONB NOT NULL DEFAULT '{}'::jsonb,
			state TEXT NOT NULL DEFAULT 'active',
			graph_enabled BOOLEAN NOT NULL DEFAULT false,
			guiding_doc_id UUID,
			doc_count BIGINT NOT NULL DEFAULT 0,
			chunk_count BIGINT NOT NULL DEFAULT 0,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			last_ingest TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS container_versions (
			container_id UUID NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
			version INT NOT NULL,
			snapshot JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (container_id, version)
		)`,
		`CREATE TABLE IF NOT EXISTS container_links (
			container_id UUID NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
			linked_container_id UUID NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
			relation TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (container_id, linked_container_id, relation)
		)`,
		`CREATE TABLE IF NOT EXISTS container_subscriptions (
			container_id UUID NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
			subscriber TEXT NOT NULL,
			event_types TEXT[] NOT NULL DEFAULT '{}',
			webhook_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (container_id, subscriber)
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			container_id UUID NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
			hash TEXT NOT NULL,
			uri TEXT NOT NULL DEFAULT '',
			mime TEXT NOT NULL DEFAULT '',
			modality TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			meta JSONB NOT NULL DEFAULT '{}'::jsonb,
			state TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (container_id, hash)
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			container_id UUID NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			modality TEXT NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			byte_start INT NOT NULL DEFAULT 0,
			byte_end INT NOT NULL DEFAULT 0,
			provenance JSONB NOT NULL DEFAULT '{}'::jsonb,
			meta JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedder_ver TEXT NOT NULL DEFAULT '',
			dedup_of UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			ts tsvector GENERATED ALWAYS AS (to_tsvector('simple', coalesce(text, ''))) STORED
		)`,
		`CREATE INDEX IF NOT EXISTS chunks_ts_idx ON chunks USING GIN (ts)`,
		`CREATE INDEX IF NOT EXISTS chunks_container_idx ON chunks (container_id)`,
		`CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks (document_id)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'queued',
			payload JSONB NOT NULL DEFAULT '{}'::jsonb,
			retries INT NOT NULL DEFAULT 0,
			last_heartbeat TIMESTAMPTZ,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status)`,
		`CREATE TABLE IF NOT EXISTS job_events (
			id BIGSERIAL PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			ts TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS embedding_cache (
			content_hash TEXT NOT NULL,
			modality TEXT NOT NULL,
			embedder_ver TEXT NOT NULL,
			vec FLOAT4[] NOT NULL,
			dimensions INT NOT NULL,
			last_used TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (content_hash, modality, embedder_ver)
		)`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			request_id TEXT PRIMARY KEY,
			record JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS agent_sessions (
			session_id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			container_id UUID,
			last_activity TIMESTAMPTZ NOT NULL DEFAULT now(),
			event_count BIGINT NOT NULL DEFAULT 0,
			meta JSONB NOT NULL DEFAULT '{}'::jsonb
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
