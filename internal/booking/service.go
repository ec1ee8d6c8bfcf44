package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/masonempey/KyanHub-sub001/internal/allocation"
	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
	"github.com/masonempey/KyanHub-sub001/internal/property"
	"github.com/masonempey/KyanHub-sub001/internal/reservation"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (Booking, error)
	GetByCode(ctx context.Context, code string) (Booking, error)
	ListForMonth(ctx context.Context, propertyID int64, key allocation.MonthKey) ([]Booking, error)
	ListForRange(ctx context.Context, propertyID int64, from, to time.Time) ([]Booking, error)
}

// PropertyDirectory resolves portfolio properties.
type PropertyDirectory interface {
	Get(ctx context.Context, id int64) (property.Property, error)
}

// FeedClient lists bookings from the reservation platform.
type FeedClient interface {
	ListBookings(ctx context.Context, propertyExternalID string, from, to time.Time) ([]reservation.FeedBooking, error)
}

// Service orchestrates booking ingestion and the allocation lifecycle.
type Service struct {
	store      Store
	properties PropertyDirectory
	feed       FeedClient
	logger     *slog.Logger
	newCode    func() string
}

// NewService constructs a Service instance.
func NewService(store Store, properties PropertyDirectory, feed FeedClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		properties: properties,
		feed:       feed,
		logger:     logger,
		newCode:    manualCode,
	}
}

// WithCodeGenerator overrides manual code generation for deterministic tests.
func (s *Service) WithCodeGenerator(fn func() string) {
	if fn != nil {
		s.newCode = fn
	}
}

// IngestInput selects the feed window to pull.
type IngestInput struct {
	PropertyID int64
	From       time.Time
	To         time.Time
}

// Ingest pulls the reservation feed for the window and persists each booking
// idempotently: codes seen before are skipped, never overwritten. Feed records
// with incoherent fields are rejected individually; the rest of the run
// continues.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (IngestResult, error) {
	if in.PropertyID == 0 {
		return IngestResult{}, fmt.Errorf("booking: property id required: %w", httpx.ErrValidation)
	}
	if in.From.IsZero() || in.To.IsZero() || !in.From.Before(in.To) {
		return IngestResult{}, fmt.Errorf("booking: ingest window invalid: %w", httpx.ErrValidation)
	}
	prop, err := s.properties.Get(ctx, in.PropertyID)
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			return IngestResult{}, fmt.Errorf("booking: property %d: %w", in.PropertyID, httpx.ErrNotFound)
		}
		return IngestResult{}, err
	}

	feedBookings, err := s.feed.ListBookings(ctx, prop.ExternalID, in.From, in.To)
	if err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{Fetched: len(feedBookings)}
	for _, fb := range feedBookings {
		input := CreateInput{
			PropertyID:  in.PropertyID,
			Code:        fb.Code,
			GuestName:   fb.GuestName,
			Platform:    fb.Platform,
			CheckIn:     fb.CheckIn,
			CheckOut:    fb.CheckOut,
			TotalAmount: fb.TotalAmount(),
			CleaningFee: fb.CleaningFee,
		}
		_, err := s.create(ctx, input)
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, ErrDuplicateCode):
			result.Skipped++
		case errors.Is(err, httpx.ErrValidation):
			s.logger.Warn("reject feed booking", slog.String("code", fb.Code), slog.Any("error", err))
			result.Rejected = append(result.Rejected, RejectedRecord{Code: fb.Code, Reason: err.Error()})
		default:
			return IngestResult{}, err
		}
	}
	return result, nil
}

// CreateManual records an operator-entered booking with a generated code.
func (s *Service) CreateManual(ctx context.Context, in CreateInput) (Booking, error) {
	if strings.TrimSpace(in.Code) == "" {
		in.Code = s.newCode()
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in CreateInput) (Booking, error) {
	if err := in.Validate(); err != nil {
		return Booking{}, err
	}
	breakdown, err := allocation.Compute(in.CheckIn, in.CheckOut, in.TotalAmount, in.CleaningFee)
	if err != nil {
		return Booking{}, fmt.Errorf("%w: %w", err, httpx.ErrValidation)
	}
	b := Booking{
		Code:             in.Code,
		PropertyID:       in.PropertyID,
		GuestName:        strings.TrimSpace(in.GuestName),
		Platform:         in.Platform,
		CheckIn:          in.CheckIn,
		CheckOut:         in.CheckOut,
		TotalAmount:      in.TotalAmount,
		CleaningFee:      in.CleaningFee,
		TotalNights:      breakdown.TotalNights,
		NightlyRate:      breakdown.NightlyRate,
		NightsByMonth:    breakdown.NightsByMonth,
		RevenueByMonth:   breakdown.RevenueByMonth,
		CleaningFeeMonth: breakdown.CleaningFeeMonth,
	}
	if err := s.store.Create(ctx, &b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

// Edit applies an explicit operator edit and recomputes the full allocation
// from scratch. The booking code never changes.
func (s *Service) Edit(ctx context.Context, id int64, in UpdateInput) (Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	check := CreateInput{
		PropertyID:  b.PropertyID,
		Code:        b.Code,
		GuestName:   in.GuestName,
		Platform:    in.Platform,
		CheckIn:     in.CheckIn,
		CheckOut:    in.CheckOut,
		TotalAmount: in.TotalAmount,
		CleaningFee: in.CleaningFee,
	}
	if err := check.Validate(); err != nil {
		return Booking{}, err
	}
	b.GuestName = strings.TrimSpace(in.GuestName)
	b.Platform = in.Platform
	b.CheckIn = in.CheckIn
	b.CheckOut = in.CheckOut
	b.TotalAmount = in.TotalAmount
	b.CleaningFee = in.CleaningFee
	breakdown, err := allocation.Compute(b.CheckIn, b.CheckOut, b.TotalAmount, b.CleaningFee)
	if err != nil {
		return Booking{}, fmt.Errorf("%w: %w", err, httpx.ErrValidation)
	}
	b.TotalNights = breakdown.TotalNights
	b.NightlyRate = breakdown.NightlyRate
	b.NightsByMonth = breakdown.NightsByMonth
	b.RevenueByMonth = breakdown.RevenueByMonth
	b.CleaningFeeMonth = breakdown.CleaningFeeMonth

	if err := s.store.Update(ctx, &b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

// Delete removes a booking and its breakdown rows.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// Get fetches a booking by id.
func (s *Service) Get(ctx context.Context, id int64) (Booking, error) {
	return s.store.GetByID(ctx, id)
}

// ListForMonth returns the property's bookings allocated to the month.
func (s *Service) ListForMonth(ctx context.Context, propertyID int64, key allocation.MonthKey) ([]Booking, error) {
	return s.store.ListForMonth(ctx, propertyID, key)
}

// ListForRange returns the property's bookings overlapping [from, to).
func (s *Service) ListForRange(ctx context.Context, propertyID int64, from, to time.Time) ([]Booking, error) {
	return s.store.ListForRange(ctx, propertyID, from, to)
}

func manualCode() string {
	return "MAN-" + strings.ToUpper(uuid.NewString()[:8])
}
