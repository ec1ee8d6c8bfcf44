// Package booking persists reservations together with their derived
// per-month allocation. A booking and its breakdown rows are always written
// in one transaction, and a booking code is ingested at most once.
package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/masonempey/KyanHub-sub001/internal/allocation"
	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

// Sentinel errors for the booking store.
var (
	// ErrDuplicateCode is returned when a booking code was already ingested.
	// Callers ingesting from the feed treat this as a successful no-op.
	ErrDuplicateCode = fmt.Errorf("booking: code already ingested: %w", httpx.ErrDuplicate)
	// ErrNotFound indicates the booking does not exist.
	ErrNotFound = fmt.Errorf("booking: %w", httpx.ErrNotFound)
)

// Booking is a reservation with its computed month allocation. The allocation
// fields are derived once at creation and only recomputed by an explicit edit.
type Booking struct {
	ID          int64
	Code        string
	PropertyID  int64
	GuestName   string
	Platform    string
	CheckIn     time.Time
	CheckOut    time.Time
	TotalAmount decimal.Decimal
	CleaningFee decimal.Decimal

	TotalNights      int
	NightlyRate      decimal.Decimal
	NightsByMonth    map[allocation.MonthKey]int
	RevenueByMonth   map[allocation.MonthKey]decimal.Decimal
	CleaningFeeMonth allocation.MonthKey

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput carries the fields needed to record a booking. Code is empty
// for manual entries; the service generates one.
type CreateInput struct {
	PropertyID  int64
	Code        string
	GuestName   string
	Platform    string
	CheckIn     time.Time
	CheckOut    time.Time
	TotalAmount decimal.Decimal
	CleaningFee decimal.Decimal
}

// Validate rejects incoherent input before anything is written.
func (in CreateInput) Validate() error {
	if in.PropertyID == 0 {
		return fmt.Errorf("booking: property id required: %w", httpx.ErrValidation)
	}
	if strings.TrimSpace(in.GuestName) == "" {
		return fmt.Errorf("booking: guest name required: %w", httpx.ErrValidation)
	}
	if in.CheckIn.IsZero() || in.CheckOut.IsZero() {
		return fmt.Errorf("booking: check-in and check-out required: %w", httpx.ErrValidation)
	}
	if in.TotalAmount.IsNegative() || in.CleaningFee.IsNegative() {
		return fmt.Errorf("booking: amounts cannot be negative: %w", httpx.ErrValidation)
	}
	if in.CleaningFee.GreaterThan(in.TotalAmount) {
		return fmt.Errorf("booking: cleaning fee exceeds total amount: %w", httpx.ErrValidation)
	}
	return nil
}

// UpdateInput carries an explicit edit. The full allocation is recomputed
// from scratch; the booking code itself is immutable.
type UpdateInput struct {
	GuestName   string
	Platform    string
	CheckIn     time.Time
	CheckOut    time.Time
	TotalAmount decimal.Decimal
	CleaningFee decimal.Decimal
}

// IngestResult summarises one feed ingestion run.
type IngestResult struct {
	Fetched  int              `json:"fetched"`
	Created  int              `json:"created"`
	Skipped  int              `json:"skipped"`
	Rejected []RejectedRecord `json:"rejected,omitempty"`
}

// RejectedRecord reports a feed booking that failed validation.
type RejectedRecord struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}
