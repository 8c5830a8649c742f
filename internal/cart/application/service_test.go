package application_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/cart/application"
	"github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/internal/cart/infrastructure/memory"
	invapp "github.com/dmehra2102/storefront/internal/inventory/application"
	invdomain "github.com/dmehra2102/storefront/internal/inventory/domain"
	invmemory "github.com/dmehra2102/storefront/internal/inventory/infrastructure/memory"
	"github.com/dmehra2102/storefront/pkg/logging"
)

type fixture struct {
	svc      *application.Service
	carts    *memory.Repository
	products *invmemory.Repository
	catalog  *invapp.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	carts := memory.NewRepository()
	products := invmemory.NewRepository()
	catalog := invapp.NewCatalog(products)
	return &fixture{
		svc:      application.NewService(logging.Discard(), carts, catalog),
		carts:    carts,
		products: products,
		catalog:  catalog,
	}
}

func (f *fixture) product(t *testing.T, slug string, variants ...invdomain.Variant) invdomain.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), invapp.NewProductInput{
		Name: slug, Slug: slug, Variants: variants, Images: []string{slug + ".png"},
	})
	require.NoError(t, err)
	return p
}

func TestService_UpsertLine_LatestQuantityWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pid := uuid.NewString()

	_, err := f.svc.UpsertLine(ctx, "u1", pid, "A", 2)
	require.NoError(t, err)
	c, err := f.svc.UpsertLine(ctx, "u1", pid, "A", 7)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 7, c.Items[0].Quantity)
}

func TestService_UpsertLine_Capacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pid := uuid.NewString()
	for i := 0; i < domain.MaxItems; i++ {
		_, err := f.svc.UpsertLine(ctx, "u1", pid, fmt.Sprintf("SKU-%02d", i), 1)
		require.NoError(t, err)
	}

	_, err := f.svc.UpsertLine(ctx, "u1", pid, "SKU-51", 1)
	assert.ErrorIs(t, err, domain.ErrCartFull)

	c, err := f.svc.UpsertLine(ctx, "u1", pid, "SKU-10", 4)
	require.NoError(t, err)
	assert.Len(t, c.Items, domain.MaxItems)
	assert.Equal(t, 4, c.Items[10].Quantity)
}

func TestService_UpsertLine_ValidatesBeforeTouchingStorage(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpsertLine(context.Background(), "u1", uuid.NewString(), "A", 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.carts.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestService_RemoveLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pid := uuid.NewString()

	_, err := f.svc.RemoveLine(ctx, "u1", pid, "A")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	_, err = f.svc.UpsertLine(ctx, "u1", pid, "A", 1)
	require.NoError(t, err)

	c, err := f.svc.RemoveLine(ctx, "u1", pid, "B")
	require.NoError(t, err, "absent line is a no-op")
	assert.Len(t, c.Items, 1)

	c, err = f.svc.RemoveLine(ctx, "u1", pid, "A")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestService_Clear_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.Clear(ctx, "nobody"))

	_, err := f.svc.UpsertLine(ctx, "u1", uuid.NewString(), "A", 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.Clear(ctx, "u1"))
	require.NoError(t, f.svc.Clear(ctx, "u1"))

	items, err := f.svc.Items(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

// lostRace hides the cart from the first Get, as if a concurrent request
// created it between our read and our insert.
type lostRace struct {
	*memory.Repository
	hidden bool
}

func (r *lostRace) Get(ctx context.Context, userID string) (domain.Cart, error) {
	if !r.hidden {
		r.hidden = true
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return r.Repository.Get(ctx, userID)
}

func TestService_GetOrCreate_ConcurrentCreation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	winner := domain.New("u1")
	winner.Items = []domain.Line{{ProductID: uuid.NewString(), SKU: "A", Quantity: 3}}
	require.NoError(t, repo.Create(ctx, winner))

	svc := application.NewService(logging.Discard(), &lostRace{Repository: repo}, nil)

	c, err := svc.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1, "loser returns the winner's cart")
}

// staleOnce fails the first Save as if another request wrote in between.
type staleOnce struct {
	*memory.Repository
	failed bool
}

func (r *staleOnce) Save(ctx context.Context, c domain.Cart) (domain.Cart, error) {
	if !r.failed {
		r.failed = true
		return domain.Cart{}, domain.ErrStaleCart
	}
	return r.Repository.Save(ctx, c)
}

func TestService_UpsertLine_RetriesOnceOnConflict(t *testing.T) {
	ctx := context.Background()
	repo := &staleOnce{Repository: memory.NewRepository()}
	svc := application.NewService(logging.Discard(), repo, nil)

	c, err := svc.UpsertLine(ctx, "u1", uuid.NewString(), "A", 2)
	require.NoError(t, err)
	assert.True(t, repo.failed)
	assert.Len(t, c.Items, 1)
}

func TestService_View_Expand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	phone := f.product(t, "phone", invdomain.Variant{SKU: "PH-1", PriceCents: 50000, Stock: 3})
	cable := f.product(t, "cable", invdomain.Variant{SKU: "CB-1", PriceCents: 1500, Stock: 10})

	_, err := f.svc.UpsertLine(ctx, "u1", phone.ID, "PH-1", 2)
	require.NoError(t, err)
	_, err = f.svc.UpsertLine(ctx, "u1", phone.ID, "PH-GONE", 1)
	require.NoError(t, err)
	_, err = f.svc.UpsertLine(ctx, "u1", cable.ID, "CB-1", 1)
	require.NoError(t, err)
	f.products.Delete(cable.ID)

	raw, err := f.svc.View(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, raw.Items, 3)
	assert.Nil(t, raw.Items[0].Detail)

	v, err := f.svc.View(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, v.Items, 3)

	first := v.Items[0].Detail
	assert.True(t, first.IsValid)
	assert.Equal(t, "phone", first.Name)
	assert.Equal(t, "phone.png", first.Image)
	assert.Equal(t, int64(100000), first.LineTotalCents)
	assert.Equal(t, 3, first.AvailableStock)

	assert.False(t, v.Items[1].Detail.IsValid, "unknown sku")
	assert.False(t, v.Items[2].Detail.IsValid, "deleted product")
	assert.Equal(t, int64(100000), v.SubtotalCents)
}

func TestService_View_HiddenProductIsInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "lamp", invdomain.Variant{SKU: "L", PriceCents: 100, Stock: 1})
	_, err := f.svc.UpsertLine(ctx, "u1", p.ID, "L", 1)
	require.NoError(t, err)
	require.NoError(t, f.catalog.SetStatus(ctx, p.ID, invdomain.ProductHidden))

	v, err := f.svc.View(ctx, "u1", true)
	require.NoError(t, err)
	assert.False(t, v.Items[0].Detail.IsValid)
	assert.Zero(t, v.SubtotalCents)
}
