// Package monthendhttp exposes the month-end status workflow to operator
// tooling as a JSON API.
package monthendhttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/masonempey/KyanHub-sub001/internal/monthend"
	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

type statusService interface {
	GetStatus(ctx context.Context, propertyID int64, year, month int) (monthend.Record, error)
	SetStatus(ctx context.Context, propertyID int64, year, month int, target monthend.Status, changedBy string) (monthend.Record, error)
	BatchSetStatus(ctx context.Context, propertyIDs []int64, year, month int, target monthend.Status, changedBy string) []monthend.BatchItemResult
	SetFlag(ctx context.Context, propertyID int64, year, month int, flag monthend.Flag, value bool) (monthend.Record, error)
	Audit(ctx context.Context, propertyID int64, year, month int) ([]monthend.AuditEntry, error)
}

// Handler wires HTTP endpoints for month-end status management.
type Handler struct {
	logger   *slog.Logger
	service  statusService
	validate *validator.Validate
}

// NewHandler constructs a month-end HTTP handler.
func NewHandler(logger *slog.Logger, service statusService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/properties/{propertyID}/months/{year}/{month}", func(r chi.Router) {
		r.Get("/status", h.getStatus)
		r.Put("/status", h.putStatus)
		r.Put("/flags", h.putFlag)
		r.Get("/audit", h.listAudit)
	})
	r.Patch("/months/{year}/{month}/status", h.batchStatus)
}

type statusUpdateRequest struct {
	Status    string `json:"status" validate:"required,oneof=draft ready complete"`
	ChangedBy string `json:"changedBy" validate:"required"`
}

type batchStatusRequest struct {
	PropertyIDs []int64 `json:"propertyIds" validate:"required,min=1,dive,gt=0"`
	Status      string  `json:"status" validate:"required,oneof=draft ready complete"`
	ChangedBy   string  `json:"changedBy" validate:"required"`
}

type flagUpdateRequest struct {
	Flag  string `json:"flag" validate:"required,oneof=inventory_invoice_generated revenue_updated owner_email_sent"`
	Value *bool  `json:"value" validate:"required"`
}

type statusResponse struct {
	PropertyID  int64           `json:"propertyId"`
	Year        int             `json:"year"`
	MonthNumber int             `json:"monthNumber"`
	Status      monthend.Status `json:"status"`

	InventoryInvoiceGenerated   bool       `json:"inventoryInvoiceGenerated"`
	InventoryInvoiceGeneratedAt *time.Time `json:"inventoryInvoiceGeneratedAt,omitempty"`
	RevenueUpdated              bool       `json:"revenueUpdated"`
	RevenueUpdatedAt            *time.Time `json:"revenueUpdatedAt,omitempty"`
	OwnerEmailSent              bool       `json:"ownerEmailSent"`
	OwnerEmailSentAt            *time.Time `json:"ownerEmailSentAt,omitempty"`

	RevenueAmount      string `json:"revenueAmount"`
	CleaningFeesAmount string `json:"cleaningFeesAmount"`
	ExpensesAmount     string `json:"expensesAmount"`
	NetAmount          string `json:"netAmount"`
	BookingsCount      int    `json:"bookingsCount"`
	OwnerProfit        string `json:"ownerProfit"`
	OwnerPercentage    string `json:"ownerPercentage"`
}

type auditEntryResponse struct {
	PreviousStatus monthend.Status `json:"previousStatus"`
	NewStatus      monthend.Status `json:"newStatus"`
	ChangedBy      string          `json:"changedBy"`
	Timestamp      time.Time       `json:"timestamp"`
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	propertyID, year, month, err := httpx.MonthPathParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.GetStatus(r.Context(), propertyID, year, month)
	if err != nil {
		h.logger.Error("get month-end status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toStatusResponse(rec))
}

func (h *Handler) putStatus(w http.ResponseWriter, r *http.Request) {
	propertyID, year, month, err := httpx.MonthPathParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req statusUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.SetStatus(r.Context(), propertyID, year, month, monthend.Status(req.Status), req.ChangedBy)
	if err != nil {
		h.logger.Warn("set month-end status", slog.Int64("property", propertyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toStatusResponse(rec))
}

func (h *Handler) batchStatus(w http.ResponseWriter, r *http.Request) {
	year, month, err := httpx.YearMonthParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req batchStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	results := h.service.BatchSetStatus(r.Context(), req.PropertyIDs, year, month, monthend.Status(req.Status), req.ChangedBy)
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) putFlag(w http.ResponseWriter, r *http.Request) {
	propertyID, year, month, err := httpx.MonthPathParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req flagUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.SetFlag(r.Context(), propertyID, year, month, monthend.Flag(req.Flag), *req.Value)
	if err != nil {
		h.logger.Warn("set month-end flag", slog.Int64("property", propertyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toStatusResponse(rec))
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	propertyID, year, month, err := httpx.MonthPathParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, err := h.service.Audit(r.Context(), propertyID, year, month)
	if err != nil {
		h.logger.Error("list month-end audit", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			ChangedBy:      e.ChangedBy,
			Timestamp:      e.Timestamp,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
}

func toStatusResponse(rec monthend.Record) statusResponse {
	return statusResponse{
		PropertyID:                  rec.PropertyID,
		Year:                        rec.Year,
		MonthNumber:                 rec.MonthNumber,
		Status:                      rec.Status,
		InventoryInvoiceGenerated:   rec.InventoryInvoiceGenerated,
		InventoryInvoiceGeneratedAt: rec.InventoryInvoiceGeneratedAt,
		RevenueUpdated:              rec.RevenueUpdated,
		RevenueUpdatedAt:            rec.RevenueUpdatedAt,
		OwnerEmailSent:              rec.OwnerEmailSent,
		OwnerEmailSentAt:            rec.OwnerEmailSentAt,
		RevenueAmount:               rec.RevenueAmount.StringFixed(2),
		CleaningFeesAmount:          rec.CleaningFeesAmount.StringFixed(2),
		ExpensesAmount:              rec.ExpensesAmount.StringFixed(2),
		NetAmount:                   rec.NetAmount.StringFixed(2),
		BookingsCount:               rec.BookingsCount,
		OwnerProfit:                 rec.OwnerProfit.StringFixed(2),
		OwnerPercentage:             rec.OwnerPercentage.StringFixed(2),
	}
}
