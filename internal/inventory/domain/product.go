package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

type ProductStatus string

const (
	ProductActive ProductStatus = "active"
	ProductHidden ProductStatus = "hidden"
)

var (
	ErrProductNotFound   = apperr.NotFound("product not found")
	ErrVariantNotFound   = apperr.NotFound("variant not found")
	ErrInsufficientStock = apperr.Business("insufficient stock")
	ErrProductHidden     = apperr.Business("product is not available")
	ErrSlugTaken         = apperr.Conflict("product slug already exists")
	ErrDuplicateSKU      = apperr.Validation("duplicate sku in variant list")
	ErrNoVariants        = apperr.Validation("product needs at least one variant")
	ErrInvalidQuantity   = apperr.Validation("quantity must be a positive integer")
	ErrInvalidStatus     = apperr.Validation("unknown product status")
)

// Variant is one priced, stocked configuration of a product. Stock is only
// ever changed through the ledger's conditional update.
type Variant struct {
	SKU        string            `json:"sku"`
	PriceCents int64             `json:"priceCents"`
	Stock      int               `json:"stock"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type Product struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Slug       string        `json:"slug"`
	CategoryID string        `json:"categoryId"`
	BrandID    string        `json:"brandId"`
	Variants   []Variant     `json:"variants"`
	TotalStock int           `json:"totalStock"`
	Images     []string      `json:"images"`
	Status     ProductStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// NewProduct validates the variant list and derives TotalStock.
func NewProduct(id, name, slug, categoryID, brandID string, variants []Variant, images []string) (Product, error) {
	if strings.TrimSpace(name) == "" {
		return Product{}, apperr.Validation("product name is required")
	}
	if strings.TrimSpace(slug) == "" {
		return Product{}, apperr.Validation("product slug is required")
	}
	if len(variants) == 0 {
		return Product{}, ErrNoVariants
	}

	seen := make(map[string]struct{}, len(variants))
	total := 0
	for _, v := range variants {
		if strings.TrimSpace(v.SKU) == "" {
			return Product{}, apperr.Validation("variant sku is required")
		}
		if _, dup := seen[v.SKU]; dup {
			return Product{}, ErrDuplicateSKU
		}
		seen[v.SKU] = struct{}{}
		if v.PriceCents < 0 {
			return Product{}, apperr.Validationf("variant %s: price must not be negative", v.SKU)
		}
		if v.Stock < 0 {
			return Product{}, apperr.Validationf("variant %s: stock must not be negative", v.SKU)
		}
		total += v.Stock
	}

	now := time.Now().UTC()
	return Product{
		ID:         id,
		Name:       name,
		Slug:       slug,
		CategoryID: categoryID,
		BrandID:    brandID,
		Variants:   variants,
		TotalStock: total,
		Images:     images,
		Status:     ProductActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (p Product) Variant(sku string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.SKU == sku {
			return v, true
		}
	}
	return Variant{}, false
}

func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

func (s ProductStatus) Valid() bool {
	return s == ProductActive || s == ProductHidden
}

// VariantView is the read model checkout and cart enrichment consume: one
// variant plus the product fields copied into order snapshots.
type VariantView struct {
	ProductID     string        `json:"productId"`
	ProductName   string        `json:"productName"`
	ProductStatus ProductStatus `json:"productStatus"`
	ImageURL      string        `json:"imageUrl"`
	Variant       Variant       `json:"variant"`
}

func (p Product) View(sku string) (VariantView, error) {
	v, ok := p.Variant(sku)
	if !ok {
		return VariantView{}, ErrVariantNotFound
	}
	return VariantView{
		ProductID:     p.ID,
		ProductName:   p.Name,
		ProductStatus: p.Status,
		ImageURL:      p.PrimaryImage(),
		Variant:       v,
	}, nil
}
