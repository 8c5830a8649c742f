package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// IdempotencyPrefix namespaces checkout keys from any other keyed operation
// sharing the same unique index.
const IdempotencyPrefix = "checkout:"

var (
	ErrOrderNotFound          = apperr.NotFound("order not found")
	ErrCartEmpty              = apperr.Business("cart is empty")
	ErrNoLines                = apperr.Validation("order needs at least one line")
	ErrInvalidLine            = apperr.Validation("order line needs a product id, a sku and a quantity between 1 and 999")
	ErrDuplicateCheckout      = apperr.Conflict("an order was already placed with this idempotency key")
	ErrInvalidIdempotencyKey  = apperr.Validation("idempotency key must be 8-128 characters of [A-Za-z0-9._-]")
	ErrNotPending             = apperr.Business("only pending orders can be cancelled")
	ErrInvalidTransition      = apperr.Business("order status transition not allowed")
	ErrInvalidStatus          = apperr.Validation("unknown order status")
	ErrInvalidPaymentStatus   = apperr.Validation("unknown payment status")
	ErrCancelThroughCancel    = apperr.Validation("use the cancel endpoint to cancel an order")
	ErrEmptyStatusUpdate      = apperr.Validation("status or paymentStatus is required")
	ErrPaymentOrderNotPending = apperr.Business("payment result for an order that is no longer pending")
)

var idemKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,128}$`)

// NormalizeIdempotencyKey trims raw and returns the namespaced key, or nil
// when the caller sent none.
func NormalizeIdempotencyKey(raw string) (*string, error) {
	k := strings.TrimSpace(raw)
	if k == "" {
		return nil, nil
	}
	if !idemKeyPattern.MatchString(k) {
		return nil, ErrInvalidIdempotencyKey
	}
	k = IdempotencyPrefix + k
	return &k, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanTransitionTo reports whether s may move to next. pending is the only
// state with outgoing edges.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && (next == StatusPaid || next == StatusCancelled)
}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// Line is a purchase-time snapshot; it is never re-read from the catalog.
type Line struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
	ImageURL   string `json:"imageUrl"`
}

func (l Line) TotalCents() int64 {
	return l.PriceCents * int64(l.Quantity)
}

type Order struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	Items           []Line        `json:"items"`
	TotalCents      int64         `json:"totalCents"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	IdempotencyKey  *string       `json:"-"`
	PaymentMethod   string        `json:"paymentMethod,omitempty"`
	PaymentProvider string        `json:"paymentProvider,omitempty"`
	PaymentRef      string        `json:"paymentRef,omitempty"`
	PaidAt          *time.Time    `json:"paidAt,omitempty"`
	CancelledAt     *time.Time    `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

func NewOrder(id, userID string, items []Line, idempotencyKey *string) (Order, error) {
	if len(items) == 0 {
		return Order{}, ErrNoLines
	}
	var total int64
	for _, item := range items {
		if item.Quantity < 1 || item.PriceCents < 0 {
			return Order{}, ErrInvalidLine
		}
		total += item.TotalCents()
	}
	now := time.Now().UTC()
	return Order{
		ID:             id,
		UserID:         userID,
		Items:          items,
		TotalCents:     total,
		Status:         StatusPending,
		PaymentStatus:  PaymentUnpaid,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Page is a window over a created_at DESC listing.
type Page struct {
	Limit  int
	Offset int
}
