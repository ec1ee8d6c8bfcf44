// Package bookinghttp exposes booking ingestion and the operator booking
// flows as a JSON API.
package bookinghttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/masonempey/KyanHub-sub001/internal/allocation"
	"github.com/masonempey/KyanHub-sub001/internal/booking"
	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

type bookingService interface {
	Ingest(ctx context.Context, in booking.IngestInput) (booking.IngestResult, error)
	CreateManual(ctx context.Context, in booking.CreateInput) (booking.Booking, error)
	Edit(ctx context.Context, id int64, in booking.UpdateInput) (booking.Booking, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (booking.Booking, error)
	ListForMonth(ctx context.Context, propertyID int64, key allocation.MonthKey) ([]booking.Booking, error)
}

// Handler wires the booking HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  bookingService
	validate *validator.Validate
}

// NewHandler constructs a booking HTTP handler.
func NewHandler(logger *slog.Logger, service bookingService) *Handler {
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
	r.Route("/properties/{propertyID}/bookings", func(r chi.Router) {
		r.Get("/", h.listForMonth)
		r.Post("/", h.createManual)
		r.Post("/ingest", h.ingest)
	})
	r.Route("/bookings/{bookingID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.edit)
		r.Delete("/", h.delete)
	})
}

type ingestRequest struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

type bookingRequest struct {
	GuestName   string `json:"guestName" validate:"required"`
	Platform    string `json:"platform" validate:"required"`
	CheckIn     string `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut    string `json:"checkOut" validate:"required,datetime=2006-01-02"`
	TotalAmount string `json:"totalAmount" validate:"required"`
	CleaningFee string `json:"cleaningFee"`
}

type bookingResponse struct {
	ID               int64             `json:"id"`
	Code             string            `json:"code"`
	PropertyID       int64             `json:"propertyId"`
	GuestName        string            `json:"guestName"`
	Platform         string            `json:"platform"`
	CheckIn          string            `json:"checkIn"`
	CheckOut         string            `json:"checkOut"`
	TotalAmount      string            `json:"totalAmount"`
	CleaningFee      string            `json:"cleaningFee"`
	TotalNights      int               `json:"totalNights"`
	NightlyRate      string            `json:"nightlyRate"`
	NightsByMonth    map[string]int    `json:"nightsByMonth"`
	RevenueByMonth   map[string]string `json:"revenueByMonth"`
	CleaningFeeMonth string            `json:"cleaningFeeMonth"`
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	propertyID, err := propertyParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ingestRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	from, _ := time.Parse("2006-01-02", req.From)
	to, _ := time.Parse("2006-01-02", req.To)

	result, err := h.service.Ingest(r.Context(), booking.IngestInput{PropertyID: propertyID, From: from, To: to})
	if err != nil {
		h.logger.Error("booking ingest failed", slog.Int64("property", propertyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) createManual(w http.ResponseWriter, r *http.Request) {
	propertyID, err := propertyParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := h.decodeBooking(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.PropertyID = propertyID

	b, err := h.service.CreateManual(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toBookingResponse(b))
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	id, err := bookingParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := h.decodeBooking(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Edit(r.Context(), id, booking.UpdateInput{
		GuestName:   in.GuestName,
		Platform:    in.Platform,
		CheckIn:     in.CheckIn,
		CheckOut:    in.CheckOut,
		TotalAmount: in.TotalAmount,
		CleaningFee: in.CleaningFee,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := bookingParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := bookingParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) listForMonth(w http.ResponseWriter, r *http.Request) {
	propertyID, err := propertyParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year query parameter invalid")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "month query parameter invalid")
		return
	}

	bookings, err := h.service.ListForMonth(r.Context(), propertyID, allocation.NewMonthKey(year, time.Month(month)))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bookings": out})
}

// decodeBooking parses and validates a booking payload into a CreateInput.
func (h *Handler) decodeBooking(r *http.Request) (booking.CreateInput, error) {
	var req bookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return booking.CreateInput{}, fmt.Errorf("%v: %w", err, httpx.ErrValidation)
	}
	if err := h.validate.Struct(req); err != nil {
		return booking.CreateInput{}, fmt.Errorf("%v: %w", err, httpx.ErrValidation)
	}
	checkIn, _ := time.Parse("2006-01-02", req.CheckIn)
	checkOut, _ := time.Parse("2006-01-02", req.CheckOut)
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		return booking.CreateInput{}, fmt.Errorf("total amount invalid: %w", httpx.ErrValidation)
	}
	fee := decimal.Zero
	if req.CleaningFee != "" {
		if fee, err = decimal.NewFromString(req.CleaningFee); err != nil {
			return booking.CreateInput{}, fmt.Errorf("cleaning fee invalid: %w", httpx.ErrValidation)
		}
	}
	return booking.CreateInput{
		GuestName:   req.GuestName,
		Platform:    req.Platform,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		TotalAmount: total,
		CleaningFee: fee,
	}, nil
}

func propertyParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "propertyID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("property id invalid: %w", httpx.ErrValidation)
	}
	return id, nil
}

func bookingParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("booking id invalid: %w", httpx.ErrValidation)
	}
	return id, nil
}

func toBookingResponse(b booking.Booking) bookingResponse {
	nights := make(map[string]int, len(b.NightsByMonth))
	for k, v := range b.NightsByMonth {
		nights[k.String()] = v
	}
	revenue := make(map[string]string, len(b.RevenueByMonth))
	for k, v := range b.RevenueByMonth {
		revenue[k.String()] = v.StringFixed(2)
	}
	return bookingResponse{
		ID:               b.ID,
		Code:             b.Code,
		PropertyID:       b.PropertyID,
		GuestName:        b.GuestName,
		Platform:         b.Platform,
		CheckIn:          b.CheckIn.Format("2006-01-02"),
		CheckOut:         b.CheckOut.Format("2006-01-02"),
		TotalAmount:      b.TotalAmount.StringFixed(2),
		CleaningFee:      b.CleaningFee.StringFixed(2),
		TotalNights:      b.TotalNights,
		NightlyRate:      b.NightlyRate.StringFixed(2),
		NightsByMonth:    nights,
		RevenueByMonth:   revenue,
		CleaningFeeMonth: b.CleaningFeeMonth.String(),
	}
}
