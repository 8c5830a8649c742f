package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	invdomain "github.com/dmehra2102/storefront/internal/inventory/domain"
)

type Repository interface {
	Get(ctx context.Context, userID string) (domain.Cart, error)
	// Create fails with domain.ErrCartExists if the user already has a cart.
	Create(ctx context.Context, c domain.Cart) error
	// Save writes c only if the stored version still equals c.Version and
	// returns the cart with its new version; otherwise domain.ErrStaleCart.
	Save(ctx context.Context, c domain.Cart) (domain.Cart, error)
	// Clear empties the cart unconditionally. A missing cart is not an error.
	Clear(ctx context.Context, userID string) error
}

// ProductReader is the live catalog used to enrich cart views.
type ProductReader interface {
	FindVariant(ctx context.Context, productID, sku string) (invdomain.VariantView, error)
}
