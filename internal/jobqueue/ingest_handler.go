package jobqueue

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"corectx/internal/corerr"
	"corectx/internal/ingest"
	"corectx/internal/model"
)

// IngestHandler decodes a JobIngest payload into an ingest.Request and
// dispatches it through the ingestion pipeline. The payload round-trips
// through JSON (mirroring how relstore.EnqueueJob/scanJob already
// marshal/unmarshal model.Job.Payload) rather than hand-walking the
// map[string]any, so field additions to ingest.Source only need updating
// in one place.
func IngestHandler(pipeline *ingest.Pipeline) Handler {
	return func(ctx context.Context, job model.Job) error {
		if job.Kind != model.JobIngest {
			return corerr.Invalid("jobqueue: unsupported job kind for ingest handler: " + string(job.Kind))
		}
		req, err := decodeIngestRequest(job.Payload)
		if err != nil {
			return err
		}
		_, err = pipeline.Run(ctx, req)
		return err
	}
}

type ingestPayload struct {
	ContainerID uuid.UUID     `json:"container_id"`
	Source      ingest.Source `json:"source"`
}

func decodeIngestRequest(payload map[string]any) (ingest.Request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ingest.Request{}, corerr.Wrap(corerr.KindInvalid, "marshal job payload", err)
	}
	var p ingestPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ingest.Request{}, corerr.Wrap(corerr.KindInvalid, "decode ingest job payload", err)
	}
	if p.ContainerID == uuid.Nil {
		return ingest.Request{}, corerr.Invalid("jobqueue: ingest job payload missing container_id")
	}
	return ingest.Request{ContainerID: p.ContainerID, Source: p.Source}, nil
}

// EncodeIngestPayload builds the map[string]any payload EnqueueJob expects
// for a JobIngest job, the inverse of decodeIngestRequest.
func EncodeIngestPayload(req ingest.Request) (map[string]any, error) {
	raw, err := json.Marshal(ingestPayload{ContainerID: req.ContainerID, Source: req.Source})
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInvalid, "marshal ingest request", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, corerr.Wrap(corerr.KindInvalid, "decode ingest payload", err)
	}
	return out, nil
}
