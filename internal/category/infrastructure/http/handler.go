package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/category/application"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("category-http"),
	}
}

type createReq struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Slug     string  `json:"slug" validate:"required,max=200"`
	ParentID *string `json:"parentId"`
	IsActive *bool   `json:"isActive"`
}

type updateReq struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Slug        *string `json:"slug" validate:"omitempty,max=200"`
	ParentID    *string `json:"parentId"`
	ClearParent bool    `json:"clearParent"`
	IsActive    *bool   `json:"isActive"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListCategories")
	defer span.End()

	cats, err := h.service.List(ctx, r.URL.Query().Get("active") == "true")
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cats)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCategory")
	defer span.End()

	c, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCategory")
	defer span.End()

	var req createReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	c, err := h.service.Create(ctx, application.CreateInput{
		Name: req.Name, Slug: req.Slug, ParentID: req.ParentID, IsActive: req.IsActive,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCategory")
	defer span.End()

	var req updateReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	c, err := h.service.Update(ctx, chi.URLParam(r, "id"), application.UpdateInput{
		Name: req.Name, Slug: req.Slug, ParentID: req.ParentID, ClearParent: req.ClearParent, IsActive: req.IsActive,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveCategory")
	defer span.End()

	if err := h.service.Remove(ctx, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
