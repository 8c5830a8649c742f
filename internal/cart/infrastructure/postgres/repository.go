package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/pkg/postgres"
)

// Repository stores one row per user with the lines as a JSONB document.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	var c domain.Cart
	err := r.pool.QueryRow(ctx, `SELECT user_id, items, version, created_at, updated_at FROM carts WHERE user_id=$1`, userID).
		Scan(&c.UserID, &c.Items, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if postgres.IsNoRows(err) {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []domain.Line{}
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, c domain.Cart) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO carts (user_id, items, version, created_at, updated_at) VALUES ($1,$2,$3,$4,$5)`,
		c.UserID, c.Items, c.Version, c.CreatedAt, c.UpdatedAt)
	if postgres.IsUniqueViolation(err, "carts_pkey") {
		return domain.ErrCartExists
	}
	if err != nil {
		return fmt.Errorf("create cart: %w", err)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, c domain.Cart) (domain.Cart, error) {
	var version int64
	err := r.pool.QueryRow(ctx, `UPDATE carts SET items=$2, version=version+1, updated_at=$3
		WHERE user_id=$1 AND version=$4 RETURNING version`,
		c.UserID, c.Items, c.UpdatedAt, c.Version).Scan(&version)
	if postgres.IsNoRows(err) {
		return domain.Cart{}, domain.ErrStaleCart
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}
	c.Version = version
	return c, nil
}

func (r *Repository) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE carts SET items='[]'::jsonb, version=version+1, updated_at=now() WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
