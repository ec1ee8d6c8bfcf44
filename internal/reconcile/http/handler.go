// Package reconcilehttp serves the feed-versus-store discrepancy report.
package reconcilehttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/masonempey/KyanHub-sub001/internal/booking"
	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
	"github.com/masonempey/KyanHub-sub001/internal/property"
	"github.com/masonempey/KyanHub-sub001/internal/reconcile"
	"github.com/masonempey/KyanHub-sub001/internal/reservation"
)

type bookingLister interface {
	ListForRange(ctx context.Context, propertyID int64, from, to time.Time) ([]booking.Booking, error)
}

type feedLister interface {
	ListBookings(ctx context.Context, propertyExternalID string, from, to time.Time) ([]reservation.FeedBooking, error)
}

type propertyGetter interface {
	Get(ctx context.Context, id int64) (property.Property, error)
}

// Handler serves reconciliation reports.
type Handler struct {
	logger     *slog.Logger
	bookings   bookingLister
	feed       feedLister
	properties propertyGetter
}

// NewHandler constructs a reconciliation HTTP handler.
func NewHandler(logger *slog.Logger, bookings bookingLister, feed feedLister, properties propertyGetter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		bookings:   bookings,
		feed:       feed,
		properties: properties,
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/properties/{propertyID}/reconciliation", h.report)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.ParseInt(chi.URLParam(r, "propertyID"), 10, 64)
	if err != nil || propertyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "property id invalid")
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	prop, err := h.properties.Get(r.Context(), propertyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	// Both sides are independent reads; fetch them concurrently.
	var (
		external []reservation.FeedBooking
		internal []booking.Booking
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		external, err = h.feed.ListBookings(ctx, prop.ExternalID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		internal, err = h.bookings.ListForRange(ctx, propertyID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("reconciliation fetch failed",
			slog.Int64("property", propertyID),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, reconcile.Compare(external, internal))
}

func dateRange(r *http.Request) (from, to time.Time, err error) {
	from, err = time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from date invalid: %w", httpx.ErrValidation)
	}
	to, err = time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to date invalid: %w", httpx.ErrValidation)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("date range empty: %w", httpx.ErrValidation)
	}
	return from, to, nil
}
