package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/pkg/postgres"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{
		log:  log,
		pool: pool,
	}
}

// The variant update's WHERE clause is the precondition; Postgres re-checks it
// against the latest row version after waiting on a concurrent writer, so two
// checkouts cannot both pass it on the same units. The product total rides in
// the same statement.
const conditionalDecrement = `
	WITH v AS (
		UPDATE product_variants SET stock = stock - $3
		WHERE product_id = $1 AND sku = $2 AND stock >= $3
		RETURNING product_id
	)
	UPDATE products p SET total_stock = p.total_stock - $3, updated_at = now()
	FROM v WHERE p.id = v.product_id`

const increment = `
	WITH v AS (
		UPDATE product_variants SET stock = stock + $3
		WHERE product_id = $1 AND sku = $2
		RETURNING product_id
	)
	UPDATE products p SET total_stock = p.total_stock + $3, updated_at = now()
	FROM v WHERE p.id = v.product_id`

func (r *Repository) ConditionalDecrement(ctx context.Context, productID, sku string, qty int) (bool, error) {
	ct, err := r.pool.Exec(ctx, conditionalDecrement, productID, sku, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repository) Increment(ctx context.Context, productID, sku string, qty int) error {
	ct, err := r.pool.Exec(ctx, increment, productID, sku, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrVariantNotFound
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO products (id, name, slug, category_id, brand_id, total_stock, images, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			p.ID, p.Name, p.Slug, p.CategoryID, p.BrandID, p.TotalStock, images, p.Status, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, v := range p.Variants {
			attrs := v.Attributes
			if attrs == nil {
				attrs = map[string]string{}
			}
			batch.Queue(`INSERT INTO product_variants (product_id, sku, position, price_cents, stock, attributes)
				VALUES ($1,$2,$3,$4,$5,$6)`, p.ID, v.SKU, i, v.PriceCents, v.Stock, attrs)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if postgres.IsUniqueViolation(err, "products_slug_key") {
		return domain.ErrSlugTaken
	}
	if postgres.IsUniqueViolation(err, "product_variants_pkey") {
		return domain.ErrDuplicateSKU
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `SELECT id, name, slug, category_id, brand_id, total_stock, images, status, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Slug, &p.CategoryID, &p.BrandID, &p.TotalStock, &p.Images, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if postgres.IsNoRows(err) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT sku, price_cents, stock, attributes FROM product_variants
		WHERE product_id=$1 ORDER BY position`, id)
	if err != nil {
		return domain.Product{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.SKU, &v.PriceCents, &v.Stock, &v.Attributes); err != nil {
			return domain.Product{}, err
		}
		p.Variants = append(p.Variants, v)
	}
	return p, rows.Err()
}

func (r *Repository) SetStatus(ctx context.Context, id string, status domain.ProductStatus) error {
	ct, err := r.pool.Exec(ctx, `UPDATE products SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
