package retrieve

import (
	"context"

	"github.com/google/uuid"

	"corectx/internal/manifest"
	"corectx/internal/model"
)

type containerLookup interface {
	GetContainer(ctx context.Context, id uuid.UUID) (model.Container, error)
}

// resolvedContainer pairs a container with its effective manifest.
type resolvedContainer struct {
	Container model.Container
	Manifest  manifest.Manifest
}

// resolveContainers loads each requested container, drops archived ones
// and any whose ACL doesn't grant the principal at least reader, and
// loads the effective manifest for the survivors. Containers that fail
// to resolve at all (not found) are silently dropped; the caller attaches
// CONTAINER_NOT_FOUND if the result is empty.
func resolveContainers(ctx context.Context, rel containerLookup, manifests *manifest.Loader, ids []uuid.UUID, principal string) []resolvedContainer {
	out := make([]resolvedContainer, 0, len(ids))
	for _, id := range ids {
		c, err := rel.GetContainer(ctx, id)
		if err != nil {
			continue
		}
		if c.State == model.ContainerArchived {
			continue
		}
		if principal != "" && !c.ACL.Allows(principal) {
			continue
		}
		mf, err := manifests.Load(ctx, c.Slug)
		if err != nil {
			continue
		}
		out = append(out, resolvedContainer{Container: c, Manifest: mf})
	}
	return out
}

// effectiveBudget returns the minimum of the global latency budget and
// every resolved container's manifest override.
func effectiveBudget(globalMS int64, resolved []resolvedContainer) int64 {
	budget := globalMS
	for _, r := range resolved {
		if b := r.Manifest.Retrieval.LatencyBudgetMS; b > 0 && b < budget {
			budget = b
		}
	}
	return budget
}

// allowsModality reports whether m is in allowed, or allowed is empty
// (meaning no restriction was declared).
func allowsModality(allowed []model.Modality, m model.Modality) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == m {
			return true
		}
	}
	return false
}

// effectiveRerank picks the first enabled rerank policy across resolved
// containers, per spec: "first enabled wins".
func effectiveRerank(resolved []resolvedContainer) manifest.RerankPolicy {
	for _, r := range resolved {
		if r.Manifest.Retrieval.Rerank.Enabled {
			return r.Manifest.Retrieval.Rerank
		}
	}
	if len(resolved) > 0 {
		return resolved[0].Manifest.Retrieval.Rerank
	}
	return manifest.RerankPolicy{}
}
