package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/category/application"
	"github.com/dmehra2102/storefront/internal/category/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/postgres"
)

// treeLockKey serialises re-parenting. Only parent changes take it; reads and
// plain renames do not, and plain renames never write parent_id.
const treeLockKey = 0x63617465676f7279

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const selectCategory = `SELECT id, name, slug, parent_id, is_active, created_at, updated_at FROM categories`

func scan(row pgx.Row) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) Create(ctx context.Context, c domain.Category) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO categories (id, name, slug, parent_id, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`, c.ID, c.Name, c.Slug, c.ParentID, c.IsActive, c.CreatedAt, c.UpdatedAt)
	return mapWriteErr(err, domain.ErrParentNotFound)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Category, error) {
	c, err := scan(r.pool.QueryRow(ctx, selectCategory+` WHERE id=$1`, id))
	if postgres.IsNoRows(err) {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, err
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, selectCategory+` WHERE ($1 = false OR is_active) ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Category{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, c domain.Category, setParent bool, guard application.Guard) (domain.Category, error) {
	var stored domain.Category
	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if guard != nil {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(treeLockKey)); err != nil {
				return err
			}
			lookup := func(ctx context.Context, id string) (string, bool, error) {
				var parent *string
				err := tx.QueryRow(ctx, `SELECT parent_id FROM categories WHERE id=$1`, id).Scan(&parent)
				if postgres.IsNoRows(err) {
					return "", false, nil
				}
				if err != nil {
					return "", false, err
				}
				if parent == nil {
					return "", true, nil
				}
				return *parent, true, nil
			}
			if err := guard(ctx, lookup); err != nil {
				return err
			}
		}

		var err error
		stored, err = scan(tx.QueryRow(ctx, `UPDATE categories
			SET name=$2, slug=$3, is_active=$5, updated_at=$6,
			    parent_id = CASE WHEN $7 THEN $4 ELSE parent_id END
			WHERE id=$1
			RETURNING id, name, slug, parent_id, is_active, created_at, updated_at`,
			c.ID, c.Name, c.Slug, c.ParentID, c.IsActive, c.UpdatedAt, setParent))
		if postgres.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return err
	})
	if err != nil {
		return domain.Category{}, mapWriteErr(err, domain.ErrParentNotFound)
	}
	return stored, nil
}

func (r *Repository) DeleteLeaf(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM categories c WHERE c.id=$1
		AND NOT EXISTS (SELECT 1 FROM categories ch WHERE ch.parent_id = c.id)`, id)
	if err != nil {
		// a child was inserted between the NOT EXISTS check and the delete
		return mapWriteErr(err, domain.ErrHasChildren)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrHasChildren
}

func mapWriteErr(err error, onForeignKey error) error {
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err, "categories_slug_key"):
		return domain.ErrSlugTaken
	case postgres.IsForeignKeyViolation(err):
		return onForeignKey
	case apperr.Classify(err) != apperr.ClassInternal:
		return err
	default:
		return fmt.Errorf("category write: %w", err)
	}
}
