package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/cart/application"
	orderdomain "github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

// IdempotencyHeader carries the client's checkout retry token.
const IdempotencyHeader = "Idempotency-Key"

type Checkouter interface {
	Checkout(ctx context.Context, userID, idempotencyKey string) (orderdomain.Order, error)
}

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	checkout Checkouter
	limit    func(http.Handler) http.Handler
	tracer   trace.Tracer
}

// NewHandler wires the cart routes. limit wraps the checkout route only; nil
// means unlimited.
func NewHandler(log *slog.Logger, service *application.Service, checkout Checkouter, limit func(http.Handler) http.Handler) *Handler {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		log:      log,
		service:  service,
		checkout: checkout,
		limit:    limit,
		tracer:   otel.Tracer("cart-http"),
	}
}

type upsertLineReq struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	SKU       string `json:"sku" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
}

// Routes expects httpx.RequireUser to run first.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.view)
	r.Delete("/", h.clear)
	r.Put("/items", h.upsertLine)
	r.Delete("/items/{productID}/{sku}", h.removeLine)
	r.With(h.limit).Post("/checkout", h.placeOrder)
	return r
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ViewCart")
	defer span.End()

	expand := r.URL.Query().Get("expand") == "true"
	span.SetAttributes(attribute.Bool("cart.expand", expand))
	v, err := h.service.View(ctx, httpx.UserID(ctx), expand)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) upsertLine(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpsertCartLine")
	defer span.End()

	var req upsertLineReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	c, err := h.service.UpsertLine(ctx, httpx.UserID(ctx), req.ProductID, req.SKU, req.Quantity)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveCartLine")
	defer span.End()

	c, err := h.service.RemoveLine(ctx, httpx.UserID(ctx), chi.URLParam(r, "productID"), chi.URLParam(r, "sku"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClearCart")
	defer span.End()

	if err := h.service.Clear(ctx, httpx.UserID(ctx)); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	o, err := h.checkout.Checkout(ctx, httpx.UserID(ctx), r.Header.Get(IdempotencyHeader))
	if err != nil {
		span.RecordError(err)
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	httpx.WriteJSON(w, http.StatusCreated, o)
}
