package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/category/domain"
)

// Guard runs inside Update with a parent lookup bound to the same critical
// section as the write, so two concurrent re-parents cannot both pass it.
type Guard func(ctx context.Context, lookup domain.ParentLookup) error

type Repository interface {
	Create(ctx context.Context, c domain.Category) error
	Get(ctx context.Context, id string) (domain.Category, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Category, error)
	// Update writes name, slug and the active flag from c. The parent is
	// written only when setParent is true, after guard passes inside the
	// tree lock. It returns the row as stored.
	Update(ctx context.Context, c domain.Category, setParent bool, guard Guard) (domain.Category, error)
	// DeleteLeaf removes id only if no category points at it.
	DeleteLeaf(ctx context.Context, id string) error
}
