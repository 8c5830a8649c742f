package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dmehra2102/storefront/internal/category/application"
	"github.com/dmehra2102/storefront/internal/category/domain"
)

type Repository struct {
	mu   sync.Mutex
	byID map[string]domain.Category
}

func NewRepository() *Repository {
	return &Repository{byID: make(map[string]domain.Category)}
}

func (r *Repository) Create(ctx context.Context, c domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slugTaken(c.Slug, c.ID) {
		return domain.ErrSlugTaken
	}
	if p := c.Parent(); p != "" {
		if _, ok := r.byID[p]; !ok {
			return domain.ErrParentNotFound
		}
	}
	r.byID[c.ID] = c
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Category, 0, len(r.byID))
	for _, c := range r.byID {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Repository) Update(ctx context.Context, c domain.Category, setParent bool, guard application.Guard) (domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[c.ID]
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	if r.slugTaken(c.Slug, c.ID) {
		return domain.Category{}, domain.ErrSlugTaken
	}
	if guard != nil {
		if err := guard(ctx, r.lookupLocked); err != nil {
			return domain.Category{}, err
		}
	}

	cur.Name, cur.Slug, cur.IsActive, cur.UpdatedAt = c.Name, c.Slug, c.IsActive, c.UpdatedAt
	if setParent {
		if p := c.Parent(); p != "" {
			if _, ok := r.byID[p]; !ok {
				return domain.Category{}, domain.ErrParentNotFound
			}
		}
		cur.ParentID = c.ParentID
	}
	r.byID[c.ID] = cur
	return cur, nil
}

func (r *Repository) DeleteLeaf(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	for _, c := range r.byID {
		if c.Parent() == id {
			return domain.ErrHasChildren
		}
	}
	delete(r.byID, id)
	return nil
}

func (r *Repository) lookupLocked(ctx context.Context, id string) (string, bool, error) {
	c, ok := r.byID[id]
	if !ok {
		return "", false, nil
	}
	return c.Parent(), true, nil
}

func (r *Repository) slugTaken(slug, exceptID string) bool {
	for _, c := range r.byID {
		if c.Slug == slug && c.ID != exceptID {
			return true
		}
	}
	return false
}
