package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
)

// StockStore is the storage primitive the ledger relies on. ConditionalDecrement
// must check stock >= qty and apply the decrement in one atomic operation.
type StockStore interface {
	ConditionalDecrement(ctx context.Context, productID, sku string, qty int) (bool, error)
	Increment(ctx context.Context, productID, sku string, qty int) error
}

type ProductRepository interface {
	StockStore
	Create(ctx context.Context, p domain.Product) error
	Get(ctx context.Context, id string) (domain.Product, error)
	SetStatus(ctx context.Context, id string, status domain.ProductStatus) error
}
