package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service struct {
	log     *slog.Logger
	repo    Repository
	ledger  StockLedger
	catalog ProductReader
	carts   CartStore
	now     func() time.Time
}

func NewService(log *slog.Logger, repo Repository, ledger StockLedger, catalog ProductReader, carts CartStore) *Service {
	return &Service{
		log:     log,
		repo:    repo,
		ledger:  ledger,
		catalog: catalog,
		carts:   carts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Cancel moves a pending order owned by userID to cancelled and puts its
// stock back. Only the request that wins the status change restores stock.
func (s *Service) Cancel(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return s.cancel(ctx, userID, orderID)
}

// CancelAsAdmin is Cancel without the ownership check.
func (s *Service) CancelAsAdmin(ctx context.Context, orderID string) (domain.Order, error) {
	return s.cancel(ctx, "", orderID)
}

func (s *Service) cancel(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if !validID(orderID) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	byAdmin := userID == ""
	o, err := s.repo.Transition(ctx, Transition{
		OrderID: orderID,
		UserID:  userID,
		From:    domain.StatusPending,
		To:      domain.StatusCancelled,
		At:      s.now(),
		Event: func(o domain.Order) (outbox.Event, error) {
			return outbox.NewEvent(domain.AggregateType, o.ID, domain.EventOrderCancelled, domain.OrderCancelled{
				OrderID:     o.ID,
				UserID:      o.UserID,
				CancelledAt: *o.CancelledAt,
				ByAdmin:     byAdmin,
			}, tracing.Traceparent(ctx))
		},
	})
	if errors.Is(err, ErrPreconditionFailed) {
		return domain.Order{}, domain.ErrNotPending
	}
	if err != nil {
		return domain.Order{}, err
	}

	rctx := context.WithoutCancel(ctx)
	for _, l := range o.Items {
		if err := s.ledger.Restore(rctx, l.ProductID, l.SKU, l.Quantity); err != nil {
			// The order is already cancelled; the missing units need reconciliation.
			s.log.Error("stock restore after cancel failed",
				"order_id", o.ID, "product_id", l.ProductID, "sku", l.SKU, "qty", l.Quantity, "err", err)
		}
	}
	s.log.Info("order cancelled", "order_id", o.ID, "user_id", o.UserID, "by_admin", byAdmin)
	return o, nil
}

// ApplyPayment records the payment collaborator's verdict on a pending order.
// A repeated success for an order that is already paid is ignored.
func (s *Service) ApplyPayment(ctx context.Context, res domain.PaymentResult) (domain.Order, error) {
	if !validID(res.OrderID) {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	t := Transition{
		OrderID:       res.OrderID,
		From:          domain.StatusPending,
		To:            domain.StatusPending,
		PaymentStatus: domain.PaymentFailed,
		Payment:       &Payment{Method: res.Method, Provider: res.Provider, Ref: res.Ref},
		At:            s.now(),
	}
	if res.Success {
		t.To = domain.StatusPaid
		t.PaymentStatus = domain.PaymentPaid
		t.Event = func(o domain.Order) (outbox.Event, error) {
			return outbox.NewEvent(domain.AggregateType, o.ID, domain.EventOrderPaid, domain.OrderPaid{
				OrderID:    o.ID,
				TotalCents: o.TotalCents,
				Provider:   o.PaymentProvider,
				Ref:        o.PaymentRef,
				PaidAt:     *o.PaidAt,
			}, tracing.Traceparent(ctx))
		}
	}

	o, err := s.repo.Transition(ctx, t)
	switch {
	case errors.Is(err, ErrPreconditionFailed) && o.Status == domain.StatusPaid:
		s.log.Info("payment result for paid order ignored", "order_id", o.ID, "success", res.Success, "ref", res.Ref)
		return o, nil
	case errors.Is(err, ErrPreconditionFailed):
		s.log.Warn("payment result for non-pending order", "order_id", o.ID, "status", o.Status, "success", res.Success)
		return o, domain.ErrPaymentOrderNotPending
	case err != nil:
		return domain.Order{}, err
	}
	s.log.Info("payment applied", "order_id", o.ID, "payment_status", o.PaymentStatus, "provider", res.Provider)
	return o, nil
}

// UpdateStatus is the administrative setter. Status changes go through the
// same state machine as everything else and never touch stock; cancelling
// has its own path because it must restore stock.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status *domain.Status, payment *domain.PaymentStatus) (domain.Order, error) {
	if status == nil && payment == nil {
		return domain.Order{}, domain.ErrEmptyStatusUpdate
	}
	if status != nil {
		if !status.Valid() {
			return domain.Order{}, domain.ErrInvalidStatus
		}
		if *status == domain.StatusCancelled {
			return domain.Order{}, domain.ErrCancelThroughCancel
		}
	}
	if payment != nil && !payment.Valid() {
		return domain.Order{}, domain.ErrInvalidPaymentStatus
	}
	if !validID(orderID) {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	cur, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if cur.Status.Terminal() {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	t := Transition{OrderID: cur.ID, From: cur.Status, To: cur.Status, At: s.now()}
	if payment != nil {
		t.PaymentStatus = *payment
	}
	if status != nil && *status != cur.Status {
		if !cur.Status.CanTransitionTo(*status) {
			return domain.Order{}, domain.ErrInvalidTransition
		}
		t.To = *status
	}
	if t.To == domain.StatusPaid {
		if t.PaymentStatus == "" {
			t.PaymentStatus = domain.PaymentPaid
		}
		t.Event = func(o domain.Order) (outbox.Event, error) {
			return outbox.NewEvent(domain.AggregateType, o.ID, domain.EventOrderPaid, domain.OrderPaid{
				OrderID: o.ID, TotalCents: o.TotalCents, Provider: "admin", PaidAt: *o.PaidAt,
			}, tracing.Traceparent(ctx))
		}
	}

	o, err := s.repo.Transition(ctx, t)
	if errors.Is(err, ErrPreconditionFailed) {
		return domain.Order{}, domain.ErrInvalidTransition
	}
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order status updated by admin", "order_id", o.ID, "status", o.Status, "payment_status", o.PaymentStatus)
	return o, nil
}

// GetByUser hides other users' orders behind not-found.
func (s *Service) GetByUser(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if !validID(orderID) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.UserID != userID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, page domain.Page) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID, clampPage(page))
}

func (s *Service) ListAll(ctx context.Context, status domain.Status, page domain.Page) ([]domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.List(ctx, status, clampPage(page))
}

func clampPage(p domain.Page) domain.Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
