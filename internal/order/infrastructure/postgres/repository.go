package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/postgres"
)

const idempotencyIndex = "orders_user_idempotency_key"

const orderColumns = `id, user_id, total_cents, status, payment_status, idempotency_key,
	payment_method, payment_provider, payment_ref, paid_at, cancelled_at, created_at, updated_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Insert relies on the partial unique index over (user_id, idempotency_key)
// to reject a replayed checkout; there is no read-before-write.
func (r *Repository) Insert(ctx context.Context, o domain.Order, ev outbox.Event) error {
	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			o.ID, o.UserID, o.TotalCents, o.Status, o.PaymentStatus, o.IdempotencyKey,
			o.PaymentMethod, o.PaymentProvider, o.PaymentRef, o.PaidAt, o.CancelledAt, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, item := range o.Items {
			batch.Queue(`INSERT INTO order_items (order_id, line_no, product_id, name, sku, price_cents, quantity, image_url)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				o.ID, i, item.ProductID, item.Name, item.SKU, item.PriceCents, item.Quantity, item.ImageURL)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
		return outbox.Insert(ctx, tx, ev)
	})
	if postgres.IsUniqueViolation(err, idempotencyIndex) {
		return domain.ErrDuplicateCheckout
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *Repository) HasIdempotencyKey(ctx context.Context, userID, key string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE user_id=$1 AND idempotency_key=$2)`, userID, key).Scan(&exists)
	return exists, err
}

// Transition is a compare-and-set on status: the WHERE clause carries the
// precondition, so two concurrent cancels cannot both match.
func (r *Repository) Transition(ctx context.Context, t application.Transition) (domain.Order, error) {
	var out domain.Order
	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var method, provider, ref string
		if t.Payment != nil {
			method, provider, ref = t.Payment.Method, t.Payment.Provider, t.Payment.Ref
		}
		row := tx.QueryRow(ctx, `UPDATE orders SET
				status = $3,
				payment_status = CASE WHEN $4 = '' THEN payment_status ELSE $4 END,
				payment_method = CASE WHEN $5::boolean THEN $6 ELSE payment_method END,
				payment_provider = CASE WHEN $5::boolean THEN $7 ELSE payment_provider END,
				payment_ref = CASE WHEN $5::boolean THEN $8 ELSE payment_ref END,
				paid_at = CASE WHEN $3 = 'paid' AND status <> 'paid' THEN $9 ELSE paid_at END,
				cancelled_at = CASE WHEN $3 = 'cancelled' THEN $9 ELSE cancelled_at END,
				updated_at = $9
			WHERE id = $1 AND status = $2 AND ($10 = '' OR user_id = $10)
			RETURNING `+orderColumns,
			t.OrderID, t.From, t.To, t.PaymentStatus, t.Payment != nil, method, provider, ref, t.At, t.UserID)
		o, err := scanOrder(row)
		if postgres.IsNoRows(err) {
			cur, err := r.scoped(ctx, tx, t.OrderID, t.UserID)
			if err != nil {
				return err
			}
			out = cur
			return application.ErrPreconditionFailed
		}
		if err != nil {
			return err
		}
		if err := r.loadItems(ctx, tx, []*domain.Order{&o}); err != nil {
			return err
		}
		if t.Event != nil {
			ev, err := t.Event(o)
			if err != nil {
				return err
			}
			if err := outbox.Insert(ctx, tx, ev); err != nil {
				return err
			}
		}
		out = o
		return nil
	})
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, application.ErrPreconditionFailed):
		return out, err
	case errors.Is(err, domain.ErrOrderNotFound):
		return domain.Order{}, err
	default:
		return domain.Order{}, fmt.Errorf("transition order %s: %w", t.OrderID, err)
	}
}

func (r *Repository) scoped(ctx context.Context, q querier, id, userID string) (domain.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if postgres.IsNoRows(err) || (err == nil && userID != "" && o.UserID != userID) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	if err := r.loadItems(ctx, q, []*domain.Order{&o}); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := r.scoped(ctx, r.pool, id, "")
	if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, err
}

func (r *Repository) ListByUser(ctx context.Context, userID string, page domain.Page) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, page.Limit, page.Offset)
}

func (r *Repository) List(ctx context.Context, status domain.Status, page domain.Page) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, string(status), page.Limit, page.Offset)
}

func (r *Repository) list(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	ptrs := make([]*domain.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := r.loadItems(ctx, r.pool, ptrs); err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return orders, nil
}

// loadItems fills the snapshot lines of every order with one query.
func (r *Repository) loadItems(ctx context.Context, q querier, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		o.Items = []domain.Line{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := q.Query(ctx, `SELECT order_id, product_id, name, sku, price_cents, quantity, image_url
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		var l domain.Line
		if err := rows.Scan(&orderID, &l.ProductID, &l.Name, &l.SKU, &l.PriceCents, &l.Quantity, &l.ImageURL); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, l)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.PaymentStatus, &o.IdempotencyKey,
		&o.PaymentMethod, &o.PaymentProvider, &o.PaymentRef, &o.PaidAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
