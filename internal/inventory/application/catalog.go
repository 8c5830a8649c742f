package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
)

// Catalog is the product read side plus the minimal admin writes needed to
// seed it. Stock is not writable here.
type Catalog struct {
	repo ProductRepository
}

func NewCatalog(repo ProductRepository) *Catalog {
	return &Catalog{repo: repo}
}

type NewProductInput struct {
	Name       string
	Slug       string
	CategoryID string
	BrandID    string
	Variants   []domain.Variant
	Images     []string
}

func (c *Catalog) CreateProduct(ctx context.Context, in NewProductInput) (domain.Product, error) {
	p, err := domain.NewProduct(uuid.NewString(), in.Name, in.Slug, in.CategoryID, in.BrandID, in.Variants, in.Images)
	if err != nil {
		return domain.Product{}, err
	}
	if err := c.repo.Create(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return c.repo.Get(ctx, id)
}

// FindVariant returns the live view of one SKU. Malformed ids read as missing.
func (c *Catalog) FindVariant(ctx context.Context, productID, sku string) (domain.VariantView, error) {
	p, err := c.GetProduct(ctx, productID)
	if err != nil {
		return domain.VariantView{}, err
	}
	return p.View(sku)
}

func (c *Catalog) SetStatus(ctx context.Context, id string, status domain.ProductStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrProductNotFound
	}
	return c.repo.SetStatus(ctx, id, status)
}
