package retrieve

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/manifest"
	"corectx/internal/model"
)

type errNotFoundStub struct{}

func (errNotFoundStub) Error() string { return "not found" }

type fakeContainers struct {
	byID map[uuid.UUID]model.Container
}

func (f fakeContainers) GetContainer(_ context.Context, id uuid.UUID) (model.Container, error) {
	c, ok := f.byID[id]
	if !ok {
		return model.Container{}, errNotFoundStub{}
	}
	return c, nil
}

func (f fakeContainers) GetContainerBySlug(_ context.Context, slug string) (model.Container, error) {
	for _, c := range f.byID {
		if c.Slug == slug {
			return c, nil
		}
	}
	return model.Container{}, errNotFoundStub{}
}

func TestResolveContainers_DropsArchivedAndUnauthorized(t *testing.T) {
	t.Parallel()

	active := model.Container{ID: uuid.New(), Slug: "active", State: model.ContainerActive, ACL: model.ACL{"alice": model.RoleReader}}
	archived := model.Container{ID: uuid.New(), Slug: "archived", State: model.ContainerArchived, ACL: model.ACL{"*": model.RoleReader}}
	restricted := model.Container{ID: uuid.New(), Slug: "restricted", State: model.ContainerActive, ACL: model.ACL{"bob": model.RoleReader}}

	rel := fakeContainers{byID: map[uuid.UUID]model.Container{
		active.ID: active, archived.ID: archived, restricted.ID: restricted,
	}}
	loader := manifest.New(rel, "", 0)

	resolved := resolveContainers(context.Background(), rel, loader, []uuid.UUID{active.ID, archived.ID, restricted.ID}, "alice")
	require.Len(t, resolved, 1)
	require.Equal(t, active.ID, resolved[0].Container.ID)
}

func TestEffectiveBudget_PicksMinimum(t *testing.T) {
	t.Parallel()

	resolved := []resolvedContainer{
		{Manifest: manifest.Manifest{Retrieval: manifest.Retrieval{LatencyBudgetMS: 900}}},
		{Manifest: manifest.Manifest{Retrieval: manifest.Retrieval{LatencyBudgetMS: 1500}}},
	}
	require.Equal(t, int64(900), effectiveBudget(1200, resolved))
}

func TestEffectiveRerank_FirstEnabledWins(t *testing.T) {
	t.Parallel()

	resolved := []resolvedContainer{
		{Manifest: manifest.Manifest{Retrieval: manifest.Retrieval{Rerank: manifest.RerankPolicy{Enabled: false}}}},
		{Manifest: manifest.Manifest{Retrieval: manifest.Retrieval{Rerank: manifest.RerankPolicy{Enabled: true, TopKIn: 50}}}},
	}
	policy := effectiveRerank(resolved)
	require.True(t, policy.Enabled)
	require.Equal(t, 50, policy.TopKIn)
}

func TestAllowsModality_EmptyAllowsAll(t *testing.T) {
	t.Parallel()

	require.True(t, allowsModality(nil, model.ModalityText))
	require.True(t, allowsModality([]model.Modality{model.ModalityText}, model.ModalityText))
	require.False(t, allowsModality([]model.Modality{model.ModalityText}, model.ModalityImage))
}
