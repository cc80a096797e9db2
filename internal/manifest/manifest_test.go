package manifest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"corectx/internal/model"
)

type stubStore struct {
	containers map[string]model.Container
	calls      int
}

func (s *stubStore) GetContainerBySlug(ctx context.Context, slug string) (model.Container, error) {
	s.calls++
	c, ok := s.containers[slug]
	if !ok {
		return model.Container{}, errNotFound
	}
	return c, nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "not found" }

func TestLoad_DefaultsAndCaching(t *testing.T) {
	store := &stubStore{containers: map[string]model.Container{
		"demo": {
			ID:         model.NewID(),
			Slug:       "demo",
			Modalities: []model.Modality{model.ModalityText},
			ACL:        model.ACL{"alice": model.RoleOwner},
		},
	}}
	loader := New(store, "", time.Minute)

	m1, err := loader.Load(context.Background(), "demo")
	require.NoError(t, err)
	require.Equal(t, 0.96, m1.Dedup.SemanticThreshold)
	require.True(t, m1.AllowsModality(model.ModalityText))
	require.Equal(t, 1, m1.Version)

	m2, err := loader.Load(context.Background(), "demo")
	require.NoError(t, err)
	require.Equal(t, m1.Version, m2.Version)
	require.Equal(t, 1, store.calls) // cached, no second store call
}

func TestInvalidate_ForcesReload(t *testing.T) {
	store := &stubStore{containers: map[string]model.Container{
		"demo": {ID: model.NewID(), Slug: "demo", Modalities: []model.Modality{model.ModalityText}},
	}}
	loader := New(store, "", time.Minute)

	_, err := loader.Load(context.Background(), "demo")
	require.NoError(t, err)
	loader.Invalidate("demo")

	m2, err := loader.Load(context.Background(), "demo")
	require.NoError(t, err)
	require.Equal(t, 2, m2.Version)
	require.Equal(t, 2, store.calls)
}
