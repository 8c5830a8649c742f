package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmehra2102/storefront/internal/cart/domain"
)

type Repository struct {
	mu    sync.Mutex
	carts map[string]domain.Cart

	// FailClear makes Clear fail, to exercise callers that tolerate it.
	FailClear error
}

func NewRepository() *Repository {
	return &Repository{carts: make(map[string]domain.Cart)}
}

func (r *Repository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[userID]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return clone(c), nil
}

func (r *Repository) Create(ctx context.Context, c domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.carts[c.UserID]; ok {
		return domain.ErrCartExists
	}
	r.carts[c.UserID] = clone(c)
	return nil
}

func (r *Repository) Save(ctx context.Context, c domain.Cart) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.carts[c.UserID]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	if cur.Version != c.Version {
		return domain.Cart{}, domain.ErrStaleCart
	}
	c.Version++
	r.carts[c.UserID] = clone(c)
	return clone(c), nil
}

func (r *Repository) Clear(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailClear != nil {
		return r.FailClear
	}
	c, ok := r.carts[userID]
	if !ok {
		return nil
	}
	c.Items = []domain.Line{}
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	r.carts[userID] = c
	return nil
}

func clone(c domain.Cart) domain.Cart {
	c.Items = append([]domain.Line{}, c.Items...)
	return c
}
