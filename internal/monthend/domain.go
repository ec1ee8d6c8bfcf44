// Package monthend tracks the close workflow per property and month: a
// guarded draft/ready/complete status, workflow flags, snapshot amounts, and
// an append-only audit trail of every transition.
package monthend

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

// Status enumerates the month-end workflow stages.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusReady    Status = "ready"
	StatusComplete Status = "complete"
)

// Valid reports whether the value is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusReady, StatusComplete:
		return true
	}
	return false
}

// TransitionError is returned for an illegal status change. It echoes the
// current status back to the caller.
type TransitionError struct {
	Current   Status
	Requested Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("monthend: cannot move from %s to %s", e.Current, e.Requested)
}

// Unwrap lets handlers map the error to a precondition response.
func (e *TransitionError) Unwrap() error {
	return httpx.ErrPrecondition
}

// RevenueLockedError is returned when a revenue or ledger write is attempted
// while the month is not ready or complete.
type RevenueLockedError struct {
	Current Status
}

func (e *RevenueLockedError) Error() string {
	return fmt.Sprintf("monthend: revenue writes require ready or complete status, month is %s", e.Current)
}

func (e *RevenueLockedError) Unwrap() error {
	return httpx.ErrPrecondition
}

// ValidateTransition enforces the draft↔ready↔complete ladder: adjacent moves
// in either direction only, no skips.
func ValidateTransition(current, target Status) error {
	if current == target {
		return nil
	}
	switch current {
	case StatusDraft:
		if target == StatusReady {
			return nil
		}
	case StatusReady:
		if target == StatusDraft || target == StatusComplete {
			return nil
		}
	case StatusComplete:
		if target == StatusReady {
			return nil
		}
	}
	return &TransitionError{Current: current, Requested: target}
}

// Record is the close state of one property/month.
type Record struct {
	PropertyID  int64
	Year        int
	MonthNumber int
	Status      Status

	InventoryInvoiceGenerated   bool
	InventoryInvoiceGeneratedAt *time.Time
	RevenueUpdated              bool
	RevenueUpdatedAt            *time.Time
	OwnerEmailSent              bool
	OwnerEmailSentAt            *time.Time

	RevenueAmount      decimal.Decimal
	CleaningFeesAmount decimal.Decimal
	ExpensesAmount     decimal.Decimal
	NetAmount          decimal.Decimal
	BookingsCount      int
	OwnerProfit        decimal.Decimal
	OwnerPercentage    decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot carries the aggregate amounts persisted by a successful ledger
// sync run.
type Snapshot struct {
	RevenueAmount      decimal.Decimal
	CleaningFeesAmount decimal.Decimal
	ExpensesAmount     decimal.Decimal
	NetAmount          decimal.Decimal
	BookingsCount      int
	OwnerProfit        decimal.Decimal
	OwnerPercentage    decimal.Decimal
}

// AuditEntry is one immutable transition record. Exactly one is written per
// transition, reverts included.
type AuditEntry struct {
	ID             int64
	PropertyID     int64
	Year           int
	MonthNumber    int
	PreviousStatus Status
	NewStatus      Status
	ChangedBy      string
	Timestamp      time.Time
}

// Flag names the independent workflow step markers.
type Flag string

const (
	FlagInventoryInvoice Flag = "inventory_invoice_generated"
	FlagRevenueUpdated   Flag = "revenue_updated"
	FlagOwnerEmail       Flag = "owner_email_sent"
)

// Valid reports whether the value is a known flag.
func (f Flag) Valid() bool {
	switch f {
	case FlagInventoryInvoice, FlagRevenueUpdated, FlagOwnerEmail:
		return true
	}
	return false
}

// BatchItemResult reports the outcome of one property in a batch update.
type BatchItemResult struct {
	PropertyID int64  `json:"propertyId"`
	Status     Status `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}
