package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

const idempotencyHeader = "Idempotency-Key"

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

type createOrderReq struct {
	Items []application.LineRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

type updateStatusReq struct {
	Status        *domain.Status        `json:"status"`
	PaymentStatus *domain.PaymentStatus `json:"paymentStatus"`
}

// Routes serves the caller's own orders; httpx.RequireUser must run first.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.createOrder)
	r.Get("/", h.listMine)
	r.Get("/{id}", h.getOrder)
	r.Post("/{id}/cancel", h.cancel)
	return r
}

func (h *Handler) AdminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listAll)
	r.Patch("/{id}/status", h.updateStatus)
	r.Post("/{id}/cancel", h.cancelAsAdmin)
	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	o, err := h.service.CreateOrder(ctx, httpx.UserID(ctx), req.Items, r.Header.Get(idempotencyHeader))
	if err != nil {
		span.RecordError(err)
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListMyOrders")
	defer span.End()

	limit, offset := httpx.Page(r)
	orders, err := h.service.ListByUser(ctx, httpx.UserID(ctx), domain.Page{Limit: limit, Offset: offset})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.GetByUser(ctx, httpx.UserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	o, err := h.service.Cancel(ctx, httpx.UserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AdminListOrders")
	defer span.End()

	limit, offset := httpx.Page(r)
	status := domain.Status(r.URL.Query().Get("status"))
	orders, err := h.service.ListAll(ctx, status, domain.Page{Limit: limit, Offset: offset})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AdminUpdateOrderStatus")
	defer span.End()

	var req updateStatusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	o, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status, req.PaymentStatus)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) cancelAsAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AdminCancelOrder")
	defer span.End()

	o, err := h.service.CancelAsAdmin(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}
