package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/inventory/application"
	"github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	catalog *application.Catalog
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, catalog *application.Catalog) *Handler {
	return &Handler{
		log:     log,
		catalog: catalog,
		tracer:  otel.Tracer("product-http"),
	}
}

type variantReq struct {
	SKU        string            `json:"sku" validate:"required,max=64"`
	PriceCents int64             `json:"priceCents" validate:"min=0"`
	Stock      int               `json:"stock" validate:"min=0"`
	Attributes map[string]string `json:"attributes"`
}

type createProductReq struct {
	Name       string       `json:"name" validate:"required,max=200"`
	Slug       string       `json:"slug" validate:"required,max=200"`
	CategoryID string       `json:"categoryId"`
	BrandID    string       `json:"brandId"`
	Variants   []variantReq `json:"variants" validate:"required,min=1,dive"`
	Images     []string     `json:"images" validate:"omitempty,dive,url"`
}

type setStatusReq struct {
	Status domain.ProductStatus `json:"status" validate:"required,oneof=active hidden"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/{id}", h.get)
	return r
}

func (h *Handler) AdminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Patch("/{id}/status", h.setStatus)
	return r
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	p, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var req createProductReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	variants := make([]domain.Variant, len(req.Variants))
	for i, v := range req.Variants {
		variants[i] = domain.Variant{SKU: v.SKU, PriceCents: v.PriceCents, Stock: v.Stock, Attributes: v.Attributes}
	}
	p, err := h.catalog.CreateProduct(ctx, application.NewProductInput{
		Name:       req.Name,
		Slug:       req.Slug,
		CategoryID: req.CategoryID,
		BrandID:    req.BrandID,
		Variants:   variants,
		Images:     req.Images,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	h.log.Info("product created", "product_id", p.ID, "slug", p.Slug, "variants", len(p.Variants))
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SetProductStatus")
	defer span.End()

	var req setStatusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.catalog.SetStatus(ctx, id, req.Status); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}
