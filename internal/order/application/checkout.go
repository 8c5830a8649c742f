package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	cartdomain "github.com/dmehra2102/storefront/internal/cart/domain"
	invdomain "github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

type LineRequest struct {
	ProductID string `json:"productId" validate:"required"`
	SKU       string `json:"sku" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
}

// Checkout turns the user's cart into a pending order. Stock is deducted
// line by line in cart order; if any line cannot be fulfilled, or the order
// cannot be stored, every deduction made by this attempt is put back.
func (s *Service) Checkout(ctx context.Context, userID, idempotencyKey string) (domain.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Order{}, cartdomain.ErrInvalidUser
	}
	key, err := domain.NormalizeIdempotencyKey(idempotencyKey)
	if err != nil {
		return domain.Order{}, err
	}

	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		// A retry after a successful checkout finds the cart already
		// cleared; report it as the duplicate it is.
		if key != nil {
			dup, err := s.repo.HasIdempotencyKey(ctx, userID, *key)
			if err != nil {
				return domain.Order{}, fmt.Errorf("lookup idempotency key: %w", err)
			}
			if dup {
				s.log.Info("duplicate checkout rejected", "user_id", userID)
				return domain.Order{}, domain.ErrDuplicateCheckout
			}
		}
		return domain.Order{}, domain.ErrCartEmpty
	}
	reqs := make([]LineRequest, len(items))
	for i, it := range items {
		reqs[i] = LineRequest{ProductID: it.ProductID, SKU: it.SKU, Quantity: it.Quantity}
	}

	o, err := s.place(ctx, userID, reqs, key)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		s.log.Warn("cart clear after checkout failed", "user_id", userID, "order_id", o.ID, "err", err)
	}
	return o, nil
}

// CreateOrder places an order for explicit lines, bypassing the cart.
func (s *Service) CreateOrder(ctx context.Context, userID string, lines []LineRequest, idempotencyKey string) (domain.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Order{}, cartdomain.ErrInvalidUser
	}
	key, err := domain.NormalizeIdempotencyKey(idempotencyKey)
	if err != nil {
		return domain.Order{}, err
	}
	if len(lines) == 0 {
		return domain.Order{}, domain.ErrNoLines
	}
	for _, l := range lines {
		if cartdomain.ValidateLine(l.ProductID, l.SKU, l.Quantity) != nil {
			return domain.Order{}, domain.ErrInvalidLine
		}
	}
	return s.place(ctx, userID, lines, key)
}

type deduction struct {
	productID, sku string
	qty            int
}

func (s *Service) place(ctx context.Context, userID string, reqs []LineRequest, key *string) (domain.Order, error) {
	applied := make([]deduction, 0, len(reqs))
	lines := make([]domain.Line, 0, len(reqs))

	for _, r := range reqs {
		line, err := s.take(ctx, r)
		if err != nil {
			s.compensate(ctx, userID, applied)
			return domain.Order{}, err
		}
		applied = append(applied, deduction{productID: r.ProductID, sku: r.SKU, qty: r.Quantity})
		lines = append(lines, line)
	}

	o, err := domain.NewOrder(uuid.NewString(), userID, lines, key)
	if err != nil {
		s.compensate(ctx, userID, applied)
		return domain.Order{}, err
	}
	ev, err := outbox.NewEvent(domain.AggregateType, o.ID, domain.EventOrderCreated, domain.OrderCreated{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalCents: o.TotalCents,
		Items:      o.Items,
	}, tracing.Traceparent(ctx))
	if err != nil {
		s.compensate(ctx, userID, applied)
		return domain.Order{}, err
	}

	if err := s.repo.Insert(ctx, o, ev); err != nil {
		s.compensate(ctx, userID, applied)
		if errors.Is(err, domain.ErrDuplicateCheckout) {
			s.log.Info("duplicate checkout rejected", "user_id", userID)
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	s.log.Info("order placed", "order_id", o.ID, "user_id", userID, "lines", len(o.Items), "total_cents", o.TotalCents)
	return o, nil
}

// take reads the live variant for the snapshot and deducts its stock.
func (s *Service) take(ctx context.Context, r LineRequest) (domain.Line, error) {
	pv, err := s.catalog.FindVariant(ctx, r.ProductID, r.SKU)
	if err != nil {
		return domain.Line{}, err
	}
	if pv.ProductStatus != invdomain.ProductActive {
		return domain.Line{}, fmt.Errorf("%w: %s", invdomain.ErrProductHidden, pv.ProductName)
	}

	ok, err := s.ledger.Deduct(ctx, r.ProductID, r.SKU, r.Quantity)
	if err != nil {
		return domain.Line{}, fmt.Errorf("deduct %s: %w", r.SKU, err)
	}
	if !ok {
		return domain.Line{}, fmt.Errorf("%w: sku %s", invdomain.ErrInsufficientStock, r.SKU)
	}

	return domain.Line{
		ProductID:  pv.ProductID,
		Name:       pv.ProductName,
		SKU:        pv.Variant.SKU,
		PriceCents: pv.Variant.PriceCents,
		Quantity:   r.Quantity,
		ImageURL:   pv.ImageURL,
	}, nil
}

// compensate restores applied deductions in reverse order, ignoring caller
// cancellation.
func (s *Service) compensate(ctx context.Context, userID string, applied []deduction) {
	ctx = context.WithoutCancel(ctx)
	for i := len(applied) - 1; i >= 0; i-- {
		d := applied[i]
		if err := s.ledger.Restore(ctx, d.productID, d.sku, d.qty); err != nil {
			s.log.Error("checkout compensation failed",
				"user_id", userID, "product_id", d.productID, "sku", d.sku, "qty", d.qty, "err", err)
		}
	}
	if len(applied) > 0 {
		s.log.Info("checkout deductions restored", "user_id", userID, "lines", len(applied))
	}
}
