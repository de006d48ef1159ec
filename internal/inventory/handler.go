package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sariverse/sariverse/internal/platform/httpx"
	"github.com/sariverse/sariverse/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory", h.list)
	r.Post("/inventory", h.create)
	r.Get("/inventory/{id}", h.show)
	r.Patch("/inventory/{id}", h.update)
	r.Delete("/inventory/{id}", h.remove)
	r.Post("/inventory/{id}/adjustments", h.adjust)
	r.Get("/inventory/{id}/adjustments", h.listAdjustments)
}

type createItemRequest struct {
	ProductID *string `json:"product_id" validate:"omitempty,uuid4"`
	Name      string  `json:"name" validate:"required,max=200"`
	SKU       string  `json:"sku" validate:"required,max=64"`
	Stock     int     `json:"stock" validate:"gte=0"`
	SRP       float64 `json:"srp" validate:"gte=0"`
	Supplier  *string `json:"supplier" validate:"omitempty,max=200"`
}

type updateItemRequest struct {
	Name     *string  `json:"name" validate:"omitempty,max=200"`
	SKU      *string  `json:"sku" validate:"omitempty,max=64"`
	SRP      *float64 `json:"srp" validate:"omitempty,gte=0"`
	Supplier *string  `json:"supplier" validate:"omitempty,max=200"`
}

type adjustStockRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListItemsRequest{
		ProfileID: shared.ProfileIDFromContext(r.Context()),
		Status:    StockStatus(r.URL.Query().Get("status")),
		Search:    r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		req.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		req.Offset, _ = strconv.Atoi(v)
	}

	items, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list inventory failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	item, err := h.service.Create(r.Context(), CreateItemInput{
		ProfileID: shared.ProfileIDFromContext(r.Context()),
		ProductID: req.ProductID,
		Name:      req.Name,
		SKU:       req.SKU,
		Stock:     req.Stock,
		SRP:       req.SRP,
		Supplier:  req.Supplier,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), shared.ProfileIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	item, err := h.service.Update(r.Context(), shared.ProfileIDFromContext(r.Context()), chi.URLParam(r, "id"), UpdateItemInput{
		Name:     req.Name,
		SKU:      req.SKU,
		SRP:      req.SRP,
		Supplier: req.Supplier,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	item, err := h.service.Adjust(r.Context(), shared.ProfileIDFromContext(r.Context()), chi.URLParam(r, "id"), req.Delta, req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) listAdjustments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	adjustments, err := h.service.Adjustments(r.Context(), shared.ProfileIDFromContext(r.Context()), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"adjustments": adjustments})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), shared.ProfileIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrSKUTaken):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidDelta):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("inventory request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
