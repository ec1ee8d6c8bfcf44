package bookinghttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masonempey/KyanHub-sub001/internal/allocation"
	"github.com/masonempey/KyanHub-sub001/internal/booking"
)

type stubService struct {
	ingestFn       func(ctx context.Context, in booking.IngestInput) (booking.IngestResult, error)
	createManualFn func(ctx context.Context, in booking.CreateInput) (booking.Booking, error)
	editFn         func(ctx context.Context, id int64, in booking.UpdateInput) (booking.Booking, error)
	deleteFn       func(ctx context.Context, id int64) error
	getFn          func(ctx context.Context, id int64) (booking.Booking, error)
	listForMonthFn func(ctx context.Context, propertyID int64, key allocation.MonthKey) ([]booking.Booking, error)
}

func (s *stubService) Ingest(ctx context.Context, in booking.IngestInput) (booking.IngestResult, error) {
	return s.ingestFn(ctx, in)
}

func (s *stubService) CreateManual(ctx context.Context, in booking.CreateInput) (booking.Booking, error) {
	return s.createManualFn(ctx, in)
}

func (s *stubService) Edit(ctx context.Context, id int64, in booking.UpdateInput) (booking.Booking, error) {
	return s.editFn(ctx, id, in)
}

func (s *stubService) Delete(ctx context.Context, id int64) error {
	return s.deleteFn(ctx, id)
}

func (s *stubService) Get(ctx context.Context, id int64) (booking.Booking, error) {
	return s.getFn(ctx, id)
}

func (s *stubService) ListForMonth(ctx context.Context, propertyID int64, key allocation.MonthKey) ([]booking.Booking, error) {
	return s.listForMonthFn(ctx, propertyID, key)
}

func newTestRouter(svc bookingService) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)
	return r
}

func TestIngestEndpoint(t *testing.T) {
	svc := &stubService{
		ingestFn: func(_ context.Context, in booking.IngestInput) (booking.IngestResult, error) {
			assert.Equal(t, int64(7), in.PropertyID)
			assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), in.From)
			return booking.IngestResult{Fetched: 3, Created: 2, Skipped: 1}, nil
		},
	}
	router := newTestRouter(svc)

	body := bytes.NewBufferString(`{"from":"2025-03-01","to":"2025-04-01"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/properties/7/bookings/ingest", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var result booking.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
}

func TestIngestEndpointRejectsBadDates(t *testing.T) {
	router := newTestRouter(&stubService{})

	body := bytes.NewBufferString(`{"from":"March 1","to":"2025-04-01"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/properties/7/bookings/ingest", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateManualEndpoint(t *testing.T) {
	svc := &stubService{
		createManualFn: func(_ context.Context, in booking.CreateInput) (booking.Booking, error) {
			assert.Equal(t, int64(7), in.PropertyID)
			assert.True(t, in.TotalAmount.Equal(decimal.NewFromInt(500)))
			return booking.Booking{
				ID:          1,
				Code:        "MAN-TEST01",
				PropertyID:  in.PropertyID,
				GuestName:   in.GuestName,
				Platform:    in.Platform,
				CheckIn:     in.CheckIn,
				CheckOut:    in.CheckOut,
				TotalAmount: in.TotalAmount,
				CleaningFee: in.CleaningFee,
				TotalNights: 5,
				NightlyRate: decimal.NewFromInt(80),
				NightsByMonth: map[allocation.MonthKey]int{
					"2025-03": 5,
				},
				RevenueByMonth: map[allocation.MonthKey]decimal.Decimal{
					"2025-03": decimal.NewFromInt(500),
				},
				CleaningFeeMonth: "2025-03",
			}, nil
		},
	}
	router := newTestRouter(svc)

	body := bytes.NewBufferString(`{
		"guestName": "Alice Ng",
		"platform": "manual",
		"checkIn": "2025-03-10",
		"checkOut": "2025-03-15",
		"totalAmount": "500",
		"cleaningFee": "100"
	}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/properties/7/bookings/", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "MAN-TEST01", resp.Code)
	assert.Equal(t, "500.00", resp.RevenueByMonth["2025-03"])
}

func TestDeleteEndpointMissingBooking(t *testing.T) {
	svc := &stubService{
		deleteFn: func(_ context.Context, id int64) error {
			assert.Equal(t, int64(42), id)
			return booking.ErrNotFound
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/bookings/42/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListForMonthEndpoint(t *testing.T) {
	svc := &stubService{
		listForMonthFn: func(_ context.Context, propertyID int64, key allocation.MonthKey) ([]booking.Booking, error) {
			assert.Equal(t, allocation.MonthKey("2025-03"), key)
			return []booking.Booking{{ID: 1, Code: "BK-1", PropertyID: propertyID}}, nil
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties/7/bookings/?year=2025&month=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Bookings []bookingResponse `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, "BK-1", resp.Bookings[0].Code)
}
