package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/masonempey/KyanHub-sub001/internal/allocation"
	"github.com/masonempey/KyanHub-sub001/internal/booking"
	"github.com/masonempey/KyanHub-sub001/internal/monthend"
	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
	"github.com/masonempey/KyanHub-sub001/internal/property"
)

// BookingSource lists the bookings allocated to a property/month.
type BookingSource interface {
	ListForMonth(ctx context.Context, propertyID int64, key allocation.MonthKey) ([]booking.Booking, error)
}

// PropertyDirectory resolves property records and their ledger coordinates.
type PropertyDirectory interface {
	Get(ctx context.Context, id int64) (property.Property, error)
}

// ExpensesSource supplies the external monthly expense total.
type ExpensesSource interface {
	MonthlyTotal(ctx context.Context, propertyExternalID string, year, month int) (decimal.Decimal, error)
}

// StatusKeeper gates the run on the close status and records its outcome.
type StatusKeeper interface {
	RequireRevenueUnlocked(ctx context.Context, propertyID int64, year, month int) error
	ApplySyncResult(ctx context.Context, propertyID int64, year, month int, snap monthend.Snapshot, changedBy string) (monthend.Record, error)
}

// Locker grants the single-writer lease for a property/month.
type Locker interface {
	Acquire(ctx context.Context, propertyID int64, year, month int) (func(), error)
}

// Result summarises one sync run.
type Result struct {
	PropertyID   int64           `json:"propertyId"`
	Year         int             `json:"year"`
	MonthNumber  int             `json:"monthNumber"`
	Revenue      string          `json:"revenue"`
	CleaningFees string          `json:"cleaningFees"`
	Expenses     string          `json:"expenses"`
	Net          string          `json:"net"`
	Bookings     int             `json:"bookings"`
	RowsAppended int             `json:"rowsAppended"`
	RowsSkipped  int             `json:"rowsSkipped"`
	Status       monthend.Status `json:"status"`
}

// Syncer pushes one property/month of allocated revenue into the ledger.
type Syncer struct {
	logger     *slog.Logger
	client     Client
	bookings   BookingSource
	properties PropertyDirectory
	expenses   ExpensesSource
	status     StatusKeeper
	lock       Locker
	layouts    *Registry
}

// NewSyncer constructs a Syncer.
func NewSyncer(logger *slog.Logger, client Client, bookings BookingSource, properties PropertyDirectory, expenses ExpensesSource, status StatusKeeper, lock Locker, layouts *Registry) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if layouts == nil {
		layouts = NewRegistry()
	}
	return &Syncer{
		logger:     logger,
		client:     client,
		bookings:   bookings,
		properties: properties,
		expenses:   expenses,
		status:     status,
		lock:       lock,
		layouts:    layouts,
	}
}

// Run executes the sync for one property/month: locate the month row, write
// the aggregate cells, append the detail rows not already present, then
// persist the snapshot and advance ready months to complete.
//
// A missing year or month row aborts the whole run before any write. An
// individual detail append failure is logged and skipped; everything else is
// fatal and the caller re-runs the operation in full.
func (s *Syncer) Run(ctx context.Context, propertyID int64, year, month int, changedBy string) (Result, error) {
	if month < 1 || month > 12 {
		return Result{}, fmt.Errorf("ledger: month %d out of range: %w", month, httpx.ErrValidation)
	}
	if year < 2000 || year > 2200 {
		return Result{}, fmt.Errorf("ledger: year %d out of range: %w", year, httpx.ErrValidation)
	}

	release, err := s.lock.Acquire(ctx, propertyID, year, month)
	if err != nil {
		return Result{}, err
	}
	defer release()

	prop, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return Result{}, err
	}
	if err := s.status.RequireRevenueUnlocked(ctx, propertyID, year, month); err != nil {
		return Result{}, err
	}

	key := allocation.NewMonthKey(year, time.Month(month))
	bookings, err := s.bookings.ListForMonth(ctx, propertyID, key)
	if err != nil {
		return Result{}, err
	}

	revenue, cleaning := aggregate(bookings, key)
	expenses := s.expensesTotal(ctx, prop, year, month)
	net := revenue.Sub(cleaning).Sub(expenses)

	layout := s.layouts.For(prop.Name)
	row, err := s.findMonthRow(ctx, prop, layout, year, time.Month(month))
	if err != nil {
		return Result{}, err
	}

	cells := []struct {
		column string
		value  decimal.Decimal
	}{
		{layout.RevenueColumn, revenue},
		{layout.CleaningColumn, cleaning},
		{layout.ExpensesColumn, expenses},
	}
	for _, c := range cells {
		if err := s.client.WriteCell(ctx, prop.LedgerDocumentID, prop.LedgerSheet, Cell(c.column, row), currencyOrBlank(c.value)); err != nil {
			return Result{}, err
		}
	}

	appended, skipped, err := s.appendDetails(ctx, prop, layout, bookings, key, time.Month(month))
	if err != nil {
		return Result{}, err
	}

	snap := monthend.Snapshot{
		RevenueAmount:      revenue,
		CleaningFeesAmount: cleaning,
		ExpensesAmount:     expenses,
		NetAmount:          net,
		BookingsCount:      len(bookings),
		OwnerProfit:        net.Mul(prop.OwnerPercentage).Div(decimal.NewFromInt(100)).Round(2),
		OwnerPercentage:    prop.OwnerPercentage,
	}
	rec, err := s.status.ApplySyncResult(ctx, propertyID, year, month, snap, changedBy)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("ledger sync complete",
		slog.Int64("property", propertyID),
		slog.String("month", key.String()),
		slog.Int("bookings", len(bookings)),
		slog.Int("appended", appended),
		slog.Int("skipped", skipped),
	)

	return Result{
		PropertyID:   propertyID,
		Year:         year,
		MonthNumber:  month,
		Revenue:      revenue.StringFixed(2),
		CleaningFees: cleaning.StringFixed(2),
		Expenses:     expenses.StringFixed(2),
		Net:          net.StringFixed(2),
		Bookings:     len(bookings),
		RowsAppended: appended,
		RowsSkipped:  skipped,
		Status:       rec.Status,
	}, nil
}

// aggregate sums the month's allocated revenue and the cleaning fees of
// bookings whose last night falls in the month.
func aggregate(bookings []booking.Booking, key allocation.MonthKey) (revenue, cleaning decimal.Decimal) {
	for _, b := range bookings {
		revenue = revenue.Add(b.RevenueByMonth[key])
		if b.CleaningFeeMonth == key {
			cleaning = cleaning.Add(b.CleaningFee)
		}
	}
	return revenue, cleaning
}

// expensesTotal is best-effort: a failing or absent expenses source degrades
// to zero and the sync continues.
func (s *Syncer) expensesTotal(ctx context.Context, prop property.Property, year, month int) decimal.Decimal {
	if s.expenses == nil {
		return decimal.Zero
	}
	total, err := s.expenses.MonthlyTotal(ctx, prop.ExternalID, year, month)
	if err != nil {
		s.logger.Warn("expenses lookup failed, using zero",
			slog.Int64("property", prop.ID),
			slog.Any("error", err),
		)
		return decimal.Zero
	}
	return total
}

// findMonthRow scans the label column for the year header, then forward from
// it for the month name. Either miss aborts the run with no partial writes.
func (s *Syncer) findMonthRow(ctx context.Context, prop property.Property, layout Layout, year int, month time.Month) (int, error) {
	rows, err := s.client.ReadRange(ctx, prop.LedgerDocumentID, prop.LedgerSheet, layout.LabelRange())
	if err != nil {
		return 0, err
	}

	yearRow := -1
	yearLabel := strconv.Itoa(year)
	for i, row := range rows {
		if len(row) > 0 && strings.TrimSpace(row[0]) == yearLabel {
			yearRow = i
			break
		}
	}
	if yearRow < 0 {
		return 0, fmt.Errorf("ledger: year row %d not found in sheet %s: %w", year, prop.LedgerSheet, httpx.ErrNotFound)
	}

	for i := yearRow + 1; i < len(rows); i++ {
		if len(rows[i]) > 0 && strings.EqualFold(strings.TrimSpace(rows[i][0]), month.String()) {
			// A1 rows are 1-based.
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("ledger: month row %s %d not found in sheet %s: %w", month, year, prop.LedgerSheet, httpx.ErrNotFound)
}

// appendDetails writes one detail row per booking not already present in the
// block. A row matches an existing one by (month, guest name) ignoring case,
// or by exact booking code.
func (s *Syncer) appendDetails(ctx context.Context, prop property.Property, layout Layout, bookings []booking.Booking, key allocation.MonthKey, month time.Month) (appended, skipped int, err error) {
	existing, err := s.client.ReadRange(ctx, prop.LedgerDocumentID, prop.LedgerSheet, layout.DetailRange())
	if err != nil {
		return 0, 0, err
	}

	guestSeen := make(map[string]bool)
	codeSeen := make(map[string]bool)
	for _, row := range existing {
		if len(row) > 1 {
			guestSeen[strings.ToLower(strings.TrimSpace(row[0]))+"|"+strings.ToLower(strings.TrimSpace(row[1]))] = true
		}
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			codeSeen[strings.TrimSpace(row[2])] = true
		}
	}

	sorted := make([]booking.Booking, len(bookings))
	copy(sorted, bookings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	monthLabel := month.String()
	for _, b := range sorted {
		guestKey := strings.ToLower(monthLabel) + "|" + strings.ToLower(strings.TrimSpace(b.GuestName))
		if guestSeen[guestKey] || codeSeen[b.Code] {
			continue
		}
		row := detailRow(b, key, monthLabel)
		if err := s.client.AppendRow(ctx, prop.LedgerDocumentID, prop.LedgerSheet, layout.DetailRange(), row); err != nil {
			s.logger.Error("detail row append failed, skipping",
				slog.String("code", b.Code),
				slog.Any("error", err),
			)
			skipped++
			continue
		}
		guestSeen[guestKey] = true
		codeSeen[b.Code] = true
		appended++
	}
	return appended, skipped, nil
}

func detailRow(b booking.Booking, key allocation.MonthKey, monthLabel string) []string {
	return []string{
		monthLabel,
		b.GuestName,
		b.Code,
		b.Platform,
		b.CheckIn.Format("2006-01-02"),
		b.CheckOut.Format("2006-01-02"),
		strconv.Itoa(b.NightsByMonth[key]),
		currency(b.RevenueByMonth[key]),
	}
}
