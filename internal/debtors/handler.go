package debtors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sariverse/sariverse/internal/observability"
	"github.com/sariverse/sariverse/internal/platform/httpx"
	"github.com/sariverse/sariverse/internal/shared"
)

// Handler manages debtor ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	cache     *Cache
	audit     *shared.AuditLogger
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler builds a Handler instance. cache, audit and metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, cache *Cache, audit *shared.AuditLogger, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers debtor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/debtors", h.list)
	r.Post("/debtors", h.create)
	r.Get("/debtors/{id}", h.show)
	r.Patch("/debtors/{id}", h.update)
	r.Delete("/debtors/{id}", h.archive)

	r.Get("/debtors/{id}/charges", h.listCharges)
	r.Post("/debtors/{id}/charges", h.charge)
	r.Patch("/debtors/{id}/charges/{chargeID}", h.updateCharge)
	r.Delete("/debtors/{id}/charges/{chargeID}", h.removeCharge)

	r.Get("/debtors/{id}/transactions", h.listTransactions)
	r.Post("/debtors/{id}/settlements", h.settle)

	r.Get("/transactions", h.listAllTransactions)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())
	req := parseListRequest(r)

	var out []Debtor
	key, err := h.cache.BuildKey(r.Context(), keyDebtorList(profileID, req))
	if err == nil {
		err = h.cache.FetchJSON(r.Context(), key, &out, func(ctx0 context.Context) (any, error) {
			return h.service.ListDebtors(ctx0, profileID, req)
		})
	}
	if err != nil {
		h.logger.Error("list debtors", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"debtors": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var d Debtor
	key, err := h.cache.BuildKey(r.Context(), keyDebtorDetail(profileID, id))
	if err == nil {
		err = h.cache.FetchJSON(r.Context(), key, &d, func(ctx0 context.Context) (any, error) {
			return h.service.GetDebtor(ctx0, profileID, id)
		})
	}
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())

	var req createDebtorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateDebtorInput{
		ProfileID:   profileID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Avatar:      req.Avatar,
		CreditLimit: req.CreditLimit,
	}
	if req.DueDate != nil {
		input.DueDate = *req.DueDate
	}

	d, err := h.service.CreateDebtor(r.Context(), input)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.recordAudit(r, "debtor.create", d.ID, nil)
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req updateDebtorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	d, err := h.service.UpdateDebtor(r.Context(), profileID, id, UpdateDebtorInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Avatar:      req.Avatar,
		DueDate:     req.DueDate,
		CreditLimit: req.CreditLimit,
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.recordAudit(r, "debtor.update", id, nil)
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.ArchiveDebtor(r.Context(), profileID, id); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.recordAudit(r, "debtor.archive", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) charge(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req chargeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.ChargeDebtor(r.Context(), ChargeDebtorInput{
		DebtorID:           id,
		ProfileID:          profileID,
		ProductID:          req.ProductID,
		Quantity:           req.Quantity,
		UnitPrice:          req.UnitPrice,
		TotalPrice:         req.TotalPrice,
		EnforceCreditLimit: req.EnforceCreditLimit,
		AllowOverLimit:     req.AllowOverLimit,
		IdempotencyKey:     r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ChargeApplied(result.Charge.TotalPrice)
	}
	h.recordAudit(r, "debtor.charge", id, map[string]any{
		"charge_id":   result.Charge.ID,
		"total_price": result.Charge.TotalPrice,
	})
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req settlementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.SettleDebtorPayment(r.Context(), SettlementInput{
		DebtorID:       id,
		ProfileID:      profileID,
		Amount:         req.Amount,
		Method:         PaymentMethod(req.PaymentMethod),
		CustomerName:   req.CustomerName,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Metadata:       req.Metadata,
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SettlementApplied(result.Total, result.IsSettled)
	}
	h.recordAudit(r, "debtor.settle", id, map[string]any{
		"transaction_id":    result.TransactionID,
		"amount":            result.Total,
		"remaining_balance": result.RemainingBalance,
	})

	receipt := BuildReceipt(&Transaction{
		ID:               result.TransactionID,
		DebtorID:         id,
		Amount:           result.Total,
		Method:           PaymentMethod(req.PaymentMethod),
		CustomerName:     req.CustomerName,
		RemainingBalance: result.RemainingBalance,
		IsSettled:        result.IsSettled,
		CreatedAt:        time.Now(),
	})
	httpx.JSON(w, http.StatusCreated, settlementResponse{SettlementResult: *result, Receipt: receipt})
}

func (h *Handler) listCharges(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	charges, err := h.service.ListCharges(r.Context(), profileID, id)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"charges": charges})
}

func (h *Handler) updateCharge(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())
	chargeID, err := strconv.ParseInt(chi.URLParam(r, "chargeID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid charge id")
		return
	}

	var req updateChargeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	charge, err := h.service.UpdateCharge(r.Context(), profileID, chargeID, req.Quantity, req.TotalPrice)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.recordAudit(r, "debtor.charge_update", charge.DebtorID, map[string]any{"charge_id": chargeID})
	httpx.JSON(w, http.StatusOK, charge)
}

func (h *Handler) removeCharge(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())
	chargeID, err := strconv.ParseInt(chi.URLParam(r, "chargeID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid charge id")
		return
	}

	if err := h.service.RemoveCharge(r.Context(), profileID, chargeID); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.recordAudit(r, "debtor.charge_remove", chi.URLParam(r, "id"), map[string]any{"charge_id": chargeID})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var txns []Transaction
	key, err := h.cache.BuildKey(r.Context(), keyTransactions(profileID, id))
	if err == nil {
		err = h.cache.FetchJSON(r.Context(), key, &txns, func(ctx0 context.Context) (any, error) {
			return h.service.ListTransactions(ctx0, profileID, id)
		})
	}
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (h *Handler) listAllTransactions(w http.ResponseWriter, r *http.Request) {
	profileID := shared.ProfileIDFromContext(r.Context())

	txns, err := h.service.ListAllTransactions(r.Context(), profileID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

// respondDomainError maps ledger errors onto problem responses. The partial
// failure case is logged loudly and kept distinct from retryable conflicts.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrDebtorNotFound), errors.Is(err, ErrChargeNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidPaymentMethod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAmountExceedsBalance):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Amount Exceeds Balance", err.Error())
	case errors.Is(err, ErrCreditLimitExceeded):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Credit Limit Exceeded", err.Error())
	case errors.Is(err, ErrDebtorHasBalance):
		httpx.Problem(w, http.StatusConflict, "Outstanding Balance", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Already Processed", err.Error())
	case errors.Is(err, ErrLedgerRecordFailed):
		h.logger.Error("ledger record failure",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		if h.metrics != nil {
			h.metrics.LedgerDriftDetected()
		}
		httpx.Problem(w, http.StatusInternalServerError, "Ledger Record Failed",
			"payment could not be recorded, flagged for reconciliation")
	default:
		h.logger.Error("debtors request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) recordAudit(r *http.Request, action, entityID string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	err := h.audit.Record(r.Context(), shared.AuditLog{
		ProfileID: shared.ProfileIDFromContext(r.Context()),
		Action:    action,
		Entity:    "debtor",
		EntityID:  entityID,
		Meta:      meta,
	})
	if err != nil {
		h.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func parseListRequest(r *http.Request) ListDebtorsRequest {
	q := r.URL.Query()
	req := ListDebtorsRequest{
		Search:   q.Get("search"),
		Archived: q.Get("archived") == "true",
		Limit:    50,
	}
	if v := q.Get("settled"); v != "" {
		settled := v == "true"
		req.Settled = &settled
	}
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}
	return req
}
