package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/dmehra2102/storefront/internal/cart/application"
	cartmemory "github.com/dmehra2102/storefront/internal/cart/infrastructure/memory"
	invapp "github.com/dmehra2102/storefront/internal/inventory/application"
	invdomain "github.com/dmehra2102/storefront/internal/inventory/domain"
	invmemory "github.com/dmehra2102/storefront/internal/inventory/infrastructure/memory"
	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/internal/order/infrastructure/memory"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/logging"
)

func newRouter(t *testing.T) (http.Handler, invdomain.Product) {
	t.Helper()
	log := logging.Discard()
	products := invmemory.NewRepository()
	catalog := invapp.NewCatalog(products)
	p, err := catalog.CreateProduct(context.Background(), invapp.NewProductInput{
		Name: "kettle", Slug: "kettle", Variants: []invdomain.Variant{{SKU: "K-1", PriceCents: 3500, Stock: 4}},
	})
	require.NoError(t, err)

	carts := cartapp.NewService(log, cartmemory.NewRepository(), catalog)
	svc := application.NewService(log, memory.NewRepository(), invapp.NewLedger(log, products), catalog, carts)
	h := NewHandler(log, svc)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireUser)
		r.Mount("/orders", h.Routes())
	})
	r.Mount("/admin/orders", h.AdminRoutes())
	return r, p
}

func call(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(httpx.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_OrderLifecycle(t *testing.T) {
	h, p := newRouter(t)

	rec := call(t, h, http.MethodPost, "/orders", "u1", `{"items":[{"productId":"`+p.ID+`","sku":"K-1","quantity":2}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var o domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&o))
	assert.Equal(t, int64(7000), o.TotalCents)
	assert.NotContains(t, rec.Body.String(), "idempotency")

	rec = call(t, h, http.MethodGet, "/orders", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&mine))
	assert.Len(t, mine, 1)

	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodGet, "/orders/"+o.ID, "u2", "").Code)
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/orders/"+o.ID, "u1", "").Code)

	assert.Equal(t, http.StatusOK, call(t, h, http.MethodPost, "/orders/"+o.ID+"/cancel", "u1", "").Code)
	rec = call(t, h, http.MethodPost, "/orders/"+o.ID+"/cancel", "u1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "only pending orders")
}

func TestHandler_CreateOrderRejections(t *testing.T) {
	h, p := newRouter(t)

	rec := call(t, h, http.MethodPost, "/orders", "u1", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h, http.MethodPost, "/orders", "u1", `{"items":[{"productId":"`+p.ID+`","sku":"K-1","quantity":5}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[{"productId":"`+p.ID+`","sku":"K-1","quantity":1}]}`))
	req.Header.Set(httpx.UserHeader, "u1")
	req.Header.Set(idempotencyHeader, "bad key")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Admin(t *testing.T) {
	h, p := newRouter(t)
	rec := call(t, h, http.MethodPost, "/orders", "u1", `{"items":[{"productId":"`+p.ID+`","sku":"K-1","quantity":1}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var o domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&o))

	rec = call(t, h, http.MethodPatch, "/admin/orders/"+o.ID+"/status", "", `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h, http.MethodGet, "/admin/orders?status=pending", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), o.ID)

	rec = call(t, h, http.MethodPatch, "/admin/orders/"+o.ID+"/status", "", `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"paid"`)

	rec = call(t, h, http.MethodPost, "/admin/orders/"+o.ID+"/cancel", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = call(t, h, http.MethodGet, "/admin/orders?status=bogus", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
