package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

func TestNewProduct_TotalStock(t *testing.T) {
	p, err := NewProduct("p1", "Phone", "phone", "c1", "b1", []Variant{
		{SKU: "PH-128-BLK", PriceCents: 69900, Stock: 3},
		{SKU: "PH-256-BLK", PriceCents: 79900, Stock: 4},
	}, []string{"a.png", "b.png"})

	require.NoError(t, err)
	assert.Equal(t, 7, p.TotalStock)
	assert.Equal(t, ProductActive, p.Status)
	assert.Equal(t, "a.png", p.PrimaryImage())
}

func TestNewProduct_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		variants []Variant
		want     error
	}{
		{"no variants", nil, ErrNoVariants},
		{"duplicate sku", []Variant{{SKU: "A", Stock: 1}, {SKU: "A", Stock: 2}}, ErrDuplicateSKU},
		{"negative stock", []Variant{{SKU: "A", Stock: -1}}, nil},
		{"negative price", []Variant{{SKU: "A", PriceCents: -5}}, nil},
		{"blank sku", []Variant{{SKU: " "}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProduct("p1", "Phone", "phone", "", "", tt.variants, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestProduct_View(t *testing.T) {
	p, err := NewProduct("p1", "Phone", "phone", "", "", []Variant{{SKU: "A", PriceCents: 100, Stock: 1}}, nil)
	require.NoError(t, err)

	v, err := p.View("A")
	require.NoError(t, err)
	assert.Equal(t, "Phone", v.ProductName)
	assert.Equal(t, int64(100), v.Variant.PriceCents)
	assert.Empty(t, v.ImageURL)

	_, err = p.View("B")
	assert.ErrorIs(t, err, ErrVariantNotFound)
}
