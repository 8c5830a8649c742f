package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type idemKey struct{ userID, key string }

// Repository keeps orders in process. Insert and Transition hold one lock
// for the whole check-and-write, matching the single-statement guarantees of
// the Postgres repository.
type Repository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	keys   map[idemKey]string
	events []outbox.Event
}

func NewRepository() *Repository {
	return &Repository{
		orders: make(map[string]domain.Order),
		keys:   make(map[idemKey]string),
	}
}

func (r *Repository) HasIdempotencyKey(ctx context.Context, userID, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.keys[idemKey{userID, key}]
	return ok, nil
}

func (r *Repository) Insert(ctx context.Context, o domain.Order, ev outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.IdempotencyKey != nil {
		k := idemKey{o.UserID, *o.IdempotencyKey}
		if _, dup := r.keys[k]; dup {
			return domain.ErrDuplicateCheckout
		}
		r.keys[k] = o.ID
	}
	r.orders[o.ID] = clone(o)
	r.events = append(r.events, ev)
	return nil
}

func (r *Repository) Transition(ctx context.Context, t application.Transition) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[t.OrderID]
	if !ok || (t.UserID != "" && o.UserID != t.UserID) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if o.Status != t.From {
		return clone(o), application.ErrPreconditionFailed
	}

	at := t.At
	if t.To == domain.StatusPaid && o.Status != domain.StatusPaid {
		o.PaidAt = &at
	}
	if t.To == domain.StatusCancelled {
		o.CancelledAt = &at
	}
	o.Status = t.To
	if t.PaymentStatus != "" {
		o.PaymentStatus = t.PaymentStatus
	}
	if t.Payment != nil {
		o.PaymentMethod = t.Payment.Method
		o.PaymentProvider = t.Payment.Provider
		o.PaymentRef = t.Payment.Ref
	}
	o.UpdatedAt = at

	if t.Event != nil {
		ev, err := t.Event(o)
		if err != nil {
			return domain.Order{}, err
		}
		r.events = append(r.events, ev)
	}
	r.orders[o.ID] = o
	return clone(o), nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string, page domain.Page) ([]domain.Order, error) {
	return r.list(page, func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r *Repository) List(ctx context.Context, status domain.Status, page domain.Page) ([]domain.Order, error) {
	return r.list(page, func(o domain.Order) bool { return status == "" || o.Status == status }), nil
}

func (r *Repository) list(page domain.Page, keep func(domain.Order) bool) []domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Order
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if page.Offset >= len(out) {
		return []domain.Order{}
	}
	out = out[page.Offset:]
	if page.Limit > 0 && len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out
}

// Events returns the outbox records written so far.
func (r *Repository) Events() []outbox.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]outbox.Event(nil), r.events...)
}

func clone(o domain.Order) domain.Order {
	o.Items = append([]domain.Line(nil), o.Items...)
	return o
}
