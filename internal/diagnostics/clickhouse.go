package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"corectx/internal/corerr"
	"corectx/internal/model"
)

// ClickHouseMirror writes DiagnosticsRecords to a wide, append-only
// ClickHouse table, giving support tooling and SLO dashboards an
// ad-hoc-queryable copy of every request's diagnostics envelope
// alongside the primary relational store's row-per-request lookup.
type ClickHouseMirror struct {
	conn    clickhouse.Conn
	table   string
	timeout time.Duration
}

// ClickHouseConfig configures ClickHouseMirror's connection.
type ClickHouseConfig struct {
	DSN     string
	Table   string
	Timeout time.Duration
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewClickHouseMirror opens and pings a ClickHouse connection. Returns
// (nil, nil) when DSN is blank, since the mirror is optional: callers
// should treat a nil mirror as "not configured" rather than an error.
func NewClickHouseMirror(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseMirror, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, nil
	}

	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = "corectx_diagnostics"
	}
	if !identPattern.MatchString(table) {
		return nil, corerr.Invalid("diagnostics: invalid clickhouse table name: " + table)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInvalid, "parse clickhouse dsn", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindUnavailable, "open clickhouse connection", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		return nil, corerr.Wrap(corerr.KindUnavailable, "ping clickhouse", err)
	}

	return &ClickHouseMirror{conn: conn, table: table, timeout: timeout}, nil
}

// Write appends one DiagnosticsRecord as a row. Map-typed fields are
// JSON-encoded into String columns since their shape varies per
// request (timings/hit-counts keys differ across search vs. ingest).
func (m *ClickHouseMirror) Write(ctx context.Context, d model.DiagnosticsRecord) error {
	if m == nil || m.conn == nil {
		return nil
	}

	timingsJSON, err := json.Marshal(d.TimingsMS)
	if err != nil {
		return corerr.Wrap(corerr.KindInvalid, "marshal timings", err)
	}
	hitsJSON, err := json.Marshal(d.HitCounts)
	if err != nil {
		return corerr.Wrap(corerr.KindInvalid, "marshal hit counts", err)
	}
	rerankJSON, err := json.Marshal(d.RerankMeta)
	if err != nil {
		return corerr.Wrap(corerr.KindInvalid, "marshal rerank meta", err)
	}
	graphJSON, err := json.Marshal(d.GraphMeta)
	if err != nil {
		return corerr.Wrap(corerr.KindInvalid, "marshal graph meta", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	batch, err := m.conn.PrepareBatch(execCtx, fmt.Sprintf(`INSERT INTO %s (
		request_id, timings_ms, hit_counts, applied_policies, over_budget_ms,
		rerank_applied, rerank_meta, graph_meta, issues, manifest_version, recorded_at
	)`, m.table))
	if err != nil {
		return corerr.Wrap(corerr.KindUnavailable, "prepare clickhouse batch", err)
	}

	err = batch.Append(
		d.RequestID,
		string(timingsJSON),
		string(hitsJSON),
		d.AppliedPolicies,
		d.OverBudgetMS,
		d.RerankApplied,
		string(rerankJSON),
		string(graphJSON),
		d.Issues,
		int32(d.ManifestVersion),
		time.Now(),
	)
	if err != nil {
		return corerr.Wrap(corerr.KindInvalid, "append clickhouse row", err)
	}

	if err := batch.Send(); err != nil {
		return corerr.Wrap(corerr.KindUnavailable, "send clickhouse batch", err)
	}
	return nil
}

// Close releases the underlying ClickHouse connection.
func (m *ClickHouseMirror) Close() error {
	if m == nil || m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
