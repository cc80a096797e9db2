package relstore

import (
	"context"
	"encoding/json"

	"corectx/internal/model"
)

// PutDiagnostics persists a request's diagnostics envelope for later
// inspection (support tooling, SLO dashboards). Best-effort: callers should
// not fail a request because this write failed.
func (s *Store) PutDiagnostics(ctx context.Context, d model.DiagnosticsRecord) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO diagnostics(request_id, record) VALUES ($1,$2)
ON CONFLICT (request_id) DO UPDATE SET record=EXCLUDED.record
`, d.RequestID, raw)
	return err
}

// GetDiagnostics fetches a previously recorded diagnostics envelope.
func (s *Store) GetDiagnostics(ctx context.Context, requestID string) (model.DiagnosticsRecord, error) {
	var raw []byte
	if err := s.pool.QueryRow(ctx, `SELECT record FROM diagnostics WHERE request_id=$1`, requestID).Scan(&raw); err != nil {
		return model.DiagnosticsRecord{}, err
	}
	var d model.DiagnosticsRecord
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.DiagnosticsRecord{}, err
	}
	return d, nil
}
