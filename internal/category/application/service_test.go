package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/category/application"
	"github.com/dmehra2102/storefront/internal/category/domain"
	"github.com/dmehra2102/storefront/internal/category/infrastructure/memory"
	"github.com/dmehra2102/storefront/pkg/logging"
)

func newService() *application.Service {
	return application.NewService(logging.Discard(), memory.NewRepository())
}

func ptr[T any](v T) *T { return &v }

// chain builds A <- B <- C.
func chain(t *testing.T, svc *application.Service) (a, b, c domain.Category) {
	t.Helper()
	ctx := context.Background()
	var err error
	a, err = svc.Create(ctx, application.CreateInput{Name: "Electronics", Slug: "electronics"})
	require.NoError(t, err)
	b, err = svc.Create(ctx, application.CreateInput{Name: "Phones", Slug: "phones", ParentID: &a.ID})
	require.NoError(t, err)
	c, err = svc.Create(ctx, application.CreateInput{Name: "Android", Slug: "android", ParentID: &b.ID})
	require.NoError(t, err)
	return a, b, c
}

func TestService_Update_RejectsCycle(t *testing.T) {
	svc := newService()
	a, _, c := chain(t, svc)

	_, err := svc.Update(context.Background(), a.ID, application.UpdateInput{ParentID: &c.ID})
	assert.ErrorIs(t, err, domain.ErrCycle)

	got, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID, "rejected update must not persist")
}

func TestService_Update_RejectsSelfParent(t *testing.T) {
	svc := newService()
	_, _, c := chain(t, svc)

	_, err := svc.Update(context.Background(), c.ID, application.UpdateInput{ParentID: &c.ID})
	assert.ErrorIs(t, err, domain.ErrSelfParent)
}

func TestService_Update_Reparent(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	a, _, c := chain(t, svc)

	moved, err := svc.Update(ctx, c.ID, application.UpdateInput{ParentID: &a.ID, Name: ptr("Android Phones")})
	require.NoError(t, err)
	assert.Equal(t, a.ID, moved.Parent())
	assert.Equal(t, "Android Phones", moved.Name)

	root, err := svc.Update(ctx, c.ID, application.UpdateInput{ClearParent: true})
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)
}

func TestService_Update_UnknownParent(t *testing.T) {
	svc := newService()
	a, _, _ := chain(t, svc)

	_, err := svc.Update(context.Background(), a.ID, application.UpdateInput{ParentID: ptr("11111111-1111-1111-1111-111111111111")})
	assert.ErrorIs(t, err, domain.ErrParentNotFound)
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	a, b, c := chain(t, svc)

	assert.ErrorIs(t, svc.Remove(ctx, b.ID), domain.ErrHasChildren)
	assert.ErrorIs(t, svc.Remove(ctx, a.ID), domain.ErrHasChildren)

	require.NoError(t, svc.Remove(ctx, c.ID))
	_, err := svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Remove(ctx, b.ID), "b is a leaf now")
	assert.ErrorIs(t, svc.Remove(ctx, c.ID), domain.ErrNotFound)
}

func TestService_Create_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.Create(ctx, application.CreateInput{Name: " ", Slug: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, application.CreateInput{Name: "X", Slug: "Bad Slug"})
	assert.ErrorIs(t, err, domain.ErrInvalidSlug)

	_, err = svc.Create(ctx, application.CreateInput{Name: "X", Slug: "x", ParentID: ptr("22222222-2222-2222-2222-222222222222")})
	assert.ErrorIs(t, err, domain.ErrParentNotFound)

	_, err = svc.Create(ctx, application.CreateInput{Name: "X", Slug: "x"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, application.CreateInput{Name: "Y", Slug: "x"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestService_List_ActiveOnly(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	_, err := svc.Create(ctx, application.CreateInput{Name: "Books", Slug: "books"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, application.CreateInput{Name: "Archive", Slug: "archive", IsActive: ptr(false)})
	require.NoError(t, err)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "books", active[0].Slug)
}

// interleavingRepo runs between once after the first Get of id, so the
// caller continues with a copy that is already stale.
type interleavingRepo struct {
	*memory.Repository
	id      string
	between func()
}

func (r *interleavingRepo) Get(ctx context.Context, id string) (domain.Category, error) {
	c, err := r.Repository.Get(ctx, id)
	if id == r.id && r.between != nil {
		between := r.between
		r.between = nil
		between()
	}
	return c, err
}

func TestService_Update_StaleRenameKeepsConcurrentReparent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRepository()
	other := application.NewService(logging.Discard(), store)

	p, err := other.Create(ctx, application.CreateInput{Name: "Home", Slug: "home"})
	require.NoError(t, err)
	x, err := other.Create(ctx, application.CreateInput{Name: "Kitchen", Slug: "kitchen", ParentID: &p.ID})
	require.NoError(t, err)
	y, err := other.Create(ctx, application.CreateInput{Name: "Garden", Slug: "garden"})
	require.NoError(t, err)

	repo := &interleavingRepo{Repository: store, id: x.ID, between: func() {
		_, err := other.Update(ctx, x.ID, application.UpdateInput{ParentID: &y.ID})
		require.NoError(t, err)
		_, err = other.Update(ctx, p.ID, application.UpdateInput{ParentID: &x.ID})
		require.NoError(t, err)
	}}
	svc := application.NewService(logging.Discard(), repo)

	renamed, err := svc.Update(ctx, x.ID, application.UpdateInput{Name: ptr("Kitchenware")})
	require.NoError(t, err)
	assert.Equal(t, "Kitchenware", renamed.Name)
	assert.Equal(t, y.ID, renamed.Parent())

	lookup := func(ctx context.Context, id string) (string, bool, error) {
		c, err := store.Get(ctx, id)
		if err != nil {
			return "", false, nil
		}
		return c.Parent(), true, nil
	}
	// A fresh root under P walks P -> X -> Y and terminates.
	assert.NoError(t, domain.AssertNoCycle(ctx, lookup, "fresh", p.ID))
}
