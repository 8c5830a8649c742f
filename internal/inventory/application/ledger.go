package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
)

// Ledger is the only writer of variant stock.
type Ledger struct {
	log   *slog.Logger
	store StockStore
}

func NewLedger(log *slog.Logger, store StockStore) *Ledger {
	return &Ledger{log: log, store: store}
}

// Deduct removes qty units if, and only if, that many are in stock at the
// moment the storage layer applies the update. false means the race was lost
// or the variant is out of stock; it is not an error.
func (l *Ledger) Deduct(ctx context.Context, productID, sku string, qty int) (bool, error) {
	if err := validate(productID, sku, qty); err != nil {
		return false, err
	}
	ok, err := l.store.ConditionalDecrement(ctx, productID, sku, qty)
	if err != nil {
		return false, fmt.Errorf("deduct %s/%s: %w", productID, sku, err)
	}
	if !ok {
		l.log.Info("stock deduction rejected", "product_id", productID, "sku", sku, "qty", qty)
	}
	return ok, nil
}

// Restore puts qty units back. It is unconditional, so callers must make sure
// it runs once per released reservation.
func (l *Ledger) Restore(ctx context.Context, productID, sku string, qty int) error {
	if err := validate(productID, sku, qty); err != nil {
		return err
	}
	if err := l.store.Increment(ctx, productID, sku, qty); err != nil {
		return fmt.Errorf("restore %s/%s: %w", productID, sku, err)
	}
	return nil
}

func validate(productID, sku string, qty int) error {
	if strings.TrimSpace(productID) == "" || strings.TrimSpace(sku) == "" {
		return domain.ErrVariantNotFound
	}
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	return nil
}
