// Package ledgerhttp exposes the ledger sync run as an operator endpoint.
package ledgerhttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/masonempey/KyanHub-sub001/internal/ledger"
	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

type syncRunner interface {
	Run(ctx context.Context, propertyID int64, year, month int, changedBy string) (ledger.Result, error)
}

// Handler triggers ledger sync runs over HTTP.
type Handler struct {
	logger   *slog.Logger
	syncer   syncRunner
	validate *validator.Validate
}

// NewHandler constructs a ledger HTTP handler.
func NewHandler(logger *slog.Logger, syncer syncRunner) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		syncer:   syncer,
		validate: validator.New(),
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/properties/{propertyID}/months/{year}/{month}/sync", h.runSync)
}

type syncRequest struct {
	ChangedBy string `json:"changedBy" validate:"required"`
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request) {
	propertyID, year, month, err := httpx.MonthPathParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req syncRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.syncer.Run(r.Context(), propertyID, year, month, req.ChangedBy)
	if err != nil {
		h.logger.Error("ledger sync failed",
			slog.Int64("property", propertyID),
			slog.Int("year", year),
			slog.Int("month", month),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
