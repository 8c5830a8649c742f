package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/inventory/application"
	"github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/internal/inventory/infrastructure/memory"
)

func TestCatalog_FindVariant(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	p := seed(t, repo, 5)
	cat := application.NewCatalog(repo)

	v, err := cat.FindVariant(ctx, p.ID, "B")
	require.NoError(t, err)
	assert.Equal(t, "Phone", v.ProductName)
	assert.Equal(t, int64(2000), v.Variant.PriceCents)

	_, err = cat.FindVariant(ctx, p.ID, "Z")
	assert.ErrorIs(t, err, domain.ErrVariantNotFound)

	_, err = cat.FindVariant(ctx, "not-a-uuid", "A")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCatalog_CreateProduct_SlugTaken(t *testing.T) {
	repo := memory.NewRepository()
	seed(t, repo, 1)
	cat := application.NewCatalog(repo)

	_, err := cat.CreateProduct(context.Background(), application.NewProductInput{
		Name: "Other", Slug: "phone", Variants: []domain.Variant{{SKU: "X"}},
	})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestCatalog_SetStatus(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	p := seed(t, repo, 1)
	cat := application.NewCatalog(repo)

	require.NoError(t, cat.SetStatus(ctx, p.ID, domain.ProductHidden))
	got, err := cat.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductHidden, got.Status)

	assert.ErrorIs(t, cat.SetStatus(ctx, p.ID, "archived"), domain.ErrInvalidStatus)
}
