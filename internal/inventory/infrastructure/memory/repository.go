// Package memory is an in-process product store with the same atomicity
// guarantees as the Postgres one. It backs STORE_DRIVER=memory and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
)

type Repository struct {
	mu       sync.Mutex
	products map[string]domain.Product
	slugs    map[string]string
}

func NewRepository() *Repository {
	return &Repository{
		products: make(map[string]domain.Product),
		slugs:    make(map[string]string),
	}
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.slugs[p.Slug]; taken {
		return domain.ErrSlugTaken
	}
	r.products[p.ID] = clone(p)
	r.slugs[p.Slug] = p.ID
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return clone(p), nil
}

func (r *Repository) SetStatus(ctx context.Context, id string, status domain.ProductStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

// Delete drops a product; used to simulate catalog removals.
func (r *Repository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		delete(r.slugs, p.Slug)
		delete(r.products, id)
	}
}

func (r *Repository) ConditionalDecrement(ctx context.Context, productID, sku string, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, i, ok := r.locate(productID, sku)
	if !ok || p.Variants[i].Stock < qty {
		return false, nil
	}
	p.Variants[i].Stock -= qty
	p.TotalStock -= qty
	r.products[productID] = p
	return true, nil
}

func (r *Repository) Increment(ctx context.Context, productID, sku string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, i, ok := r.locate(productID, sku)
	if !ok {
		return domain.ErrVariantNotFound
	}
	p.Variants[i].Stock += qty
	p.TotalStock += qty
	r.products[productID] = p
	return nil
}

func (r *Repository) locate(productID, sku string) (domain.Product, int, bool) {
	p, ok := r.products[productID]
	if !ok {
		return domain.Product{}, 0, false
	}
	for i, v := range p.Variants {
		if v.SKU == sku {
			return p, i, true
		}
	}
	return domain.Product{}, 0, false
}

func clone(p domain.Product) domain.Product {
	p.Variants = append([]domain.Variant(nil), p.Variants...)
	p.Images = append([]string(nil), p.Images...)
	return p
}
