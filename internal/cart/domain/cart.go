package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

const (
	MaxItems      = 50
	MaxQtyPerItem = 999
)

var (
	ErrCartNotFound    = apperr.NotFound("cart not found")
	ErrCartFull        = apperr.Business("cart is full: at most 50 different items")
	ErrInvalidQuantity = apperr.Validation("quantity must be an integer between 1 and 999")
	ErrInvalidProduct  = apperr.Validation("invalid product id")
	ErrInvalidSKU      = apperr.Validation("sku is required")
	ErrInvalidUser     = apperr.Validation("user id is required")

	// ErrCartExists is returned by a repository when a concurrent request created the cart first.
	ErrCartExists = apperr.Conflict("cart already exists")
	// ErrStaleCart is returned when the cart changed between read and write.
	ErrStaleCart = apperr.Conflict("cart was modified concurrently, retry")
)

type Line struct {
	ProductID string `json:"productId"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
}

func (l Line) sameItem(productID, sku string) bool {
	return l.ProductID == productID && l.SKU == sku
}

// Cart holds at most one line per (product, sku). Version increases on every
// write and guards against lost updates.
type Cart struct {
	UserID    string    `json:"userId"`
	Items     []Line    `json:"items"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func New(userID string) Cart {
	now := time.Now().UTC()
	return Cart{UserID: userID, Items: []Line{}, CreatedAt: now, UpdatedAt: now}
}

func ValidateLine(productID, sku string, qty int) error {
	if _, err := uuid.Parse(productID); err != nil {
		return ErrInvalidProduct
	}
	if strings.TrimSpace(sku) == "" {
		return ErrInvalidSKU
	}
	if qty < 1 || qty > MaxQtyPerItem {
		return ErrInvalidQuantity
	}
	return nil
}

// SetLine sets the quantity of (productID, sku), adding the line if needed.
func (c *Cart) SetLine(productID, sku string, qty int) error {
	if err := ValidateLine(productID, sku, qty); err != nil {
		return err
	}

	pos := -1
	kept := c.Items[:0:0]
	for _, l := range c.Items {
		if l.sameItem(productID, sku) {
			if pos < 0 {
				pos = len(kept)
				kept = append(kept, Line{ProductID: productID, SKU: sku, Quantity: qty})
			}
			continue
		}
		kept = append(kept, l)
	}
	if pos < 0 {
		if len(Merge(kept)) >= MaxItems {
			return ErrCartFull
		}
		kept = append(kept, Line{ProductID: productID, SKU: sku, Quantity: qty})
	}
	c.Items = Merge(kept)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveLine drops (productID, sku) and reports whether it was present.
func (c *Cart) RemoveLine(productID, sku string) bool {
	kept := c.Items[:0:0]
	for _, l := range c.Items {
		if !l.sameItem(productID, sku) {
			kept = append(kept, l)
		}
	}
	removed := len(kept) != len(c.Items)
	c.Items = kept
	if removed {
		c.UpdatedAt = time.Now().UTC()
	}
	return removed
}

func (c *Cart) Clear() {
	c.Items = []Line{}
	c.UpdatedAt = time.Now().UTC()
}

func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Merge folds lines sharing (product, sku) into the first occurrence, summing
// quantities up to MaxQtyPerItem. Order of first occurrence is preserved.
func Merge(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	index := make(map[[2]string]int, len(lines))
	for _, l := range lines {
		k := [2]string{l.ProductID, l.SKU}
		if i, ok := index[k]; ok {
			out[i].Quantity = min(out[i].Quantity+l.Quantity, MaxQtyPerItem)
			continue
		}
		index[k] = len(out)
		out = append(out, l)
	}
	return out
}
