package application

import (
	"context"
	"errors"
	"time"

	cartdomain "github.com/dmehra2102/storefront/internal/cart/domain"
	invdomain "github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

// ErrPreconditionFailed is returned by Repository.Transition when the order
// exists but is no longer in the expected status.
var ErrPreconditionFailed = errors.New("order status precondition failed")

type Payment struct {
	Method   string
	Provider string
	Ref      string
}

// Transition is a guarded status change: it applies only while the stored
// status still equals From.
type Transition struct {
	OrderID string
	// UserID scopes the change to one owner; empty means any owner.
	UserID        string
	From          domain.Status
	To            domain.Status
	PaymentStatus domain.PaymentStatus // empty leaves it unchanged
	Payment       *Payment
	At            time.Time
	// Event builds the outbox record from the updated order. It is written
	// in the same transaction as the status change.
	Event func(domain.Order) (outbox.Event, error)
}

type Repository interface {
	// Insert stores the order, its lines and ev atomically. A repeated
	// (user, idempotency key) pair fails with domain.ErrDuplicateCheckout.
	Insert(ctx context.Context, o domain.Order, ev outbox.Event) error
	// HasIdempotencyKey reports whether userID already placed an order under
	// the normalized key.
	HasIdempotencyKey(ctx context.Context, userID, key string) (bool, error)
	// Transition returns the updated order. When the precondition does not
	// hold it returns the current order and ErrPreconditionFailed.
	Transition(ctx context.Context, t Transition) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, page domain.Page) ([]domain.Order, error)
	// List returns orders in any status when status is empty.
	List(ctx context.Context, status domain.Status, page domain.Page) ([]domain.Order, error)
}

type StockLedger interface {
	Deduct(ctx context.Context, productID, sku string, qty int) (bool, error)
	Restore(ctx context.Context, productID, sku string, qty int) error
}

type ProductReader interface {
	FindVariant(ctx context.Context, productID, sku string) (invdomain.VariantView, error)
}

type CartStore interface {
	Items(ctx context.Context, userID string) ([]cartdomain.Line, error)
	Clear(ctx context.Context, userID string) error
}
