package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masonempey/KyanHub-sub001/internal/allocation"
	"github.com/masonempey/KyanHub-sub001/internal/booking"
	"github.com/masonempey/KyanHub-sub001/internal/monthend"
	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
	"github.com/masonempey/KyanHub-sub001/internal/property"
)

// fakeSheet is an in-memory ledger document serving the default layout.
type fakeSheet struct {
	labels    [][]string
	details   [][]string
	cells     map[string]string
	failCodes map[string]bool
	appends   int
}

func newFakeSheet(labels [][]string) *fakeSheet {
	return &fakeSheet{
		labels:    labels,
		cells:     make(map[string]string),
		failCodes: make(map[string]bool),
	}
}

func (f *fakeSheet) ReadRange(_ context.Context, _, _, rng string) ([][]string, error) {
	layout := DefaultLayout()
	switch rng {
	case layout.LabelRange():
		return f.labels, nil
	case layout.DetailRange():
		return f.details, nil
	}
	return nil, fmt.Errorf("unexpected range %s", rng)
}

func (f *fakeSheet) WriteCell(_ context.Context, _, _, addr, value string) error {
	f.cells[addr] = value
	return nil
}

func (f *fakeSheet) AppendRow(_ context.Context, _, _, _ string, values []string) error {
	if len(values) > 2 && f.failCodes[values[2]] {
		return fmt.Errorf("append rejected: %w", httpx.ErrUpstream)
	}
	f.details = append(f.details, values)
	f.appends++
	return nil
}

type stubBookings struct {
	list []booking.Booking
	err  error
}

func (s *stubBookings) ListForMonth(context.Context, int64, allocation.MonthKey) ([]booking.Booking, error) {
	return s.list, s.err
}

type stubProperties struct {
	prop property.Property
	err  error
}

func (s *stubProperties) Get(context.Context, int64) (property.Property, error) {
	return s.prop, s.err
}

type stubExpenses struct {
	total decimal.Decimal
	err   error
}

func (s *stubExpenses) MonthlyTotal(context.Context, string, int, int) (decimal.Decimal, error) {
	return s.total, s.err
}

type stubStatus struct {
	lockedErr error
	applied   []monthend.Snapshot
}

func (s *stubStatus) RequireRevenueUnlocked(context.Context, int64, int, int) error {
	return s.lockedErr
}

func (s *stubStatus) ApplySyncResult(_ context.Context, propertyID int64, year, month int, snap monthend.Snapshot, _ string) (monthend.Record, error) {
	s.applied = append(s.applied, snap)
	return monthend.Record{PropertyID: propertyID, Year: year, MonthNumber: month, Status: monthend.StatusComplete}, nil
}

type stubLock struct {
	err error
}

func (s *stubLock) Acquire(context.Context, int64, int, int) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	return func() {}, nil
}

func marchLabels() [][]string {
	return [][]string{
		{"2024"}, {"January"}, {"2025"}, {"January"}, {"February"}, {"March"}, {"April"},
	}
}

func testProperty() property.Property {
	return property.Property{
		ID:               7,
		Name:             "Cedar House",
		ExternalID:       "ext-7",
		LedgerDocumentID: "doc-1",
		LedgerSheet:      "2025",
		OwnerPercentage:  decimal.NewFromInt(80),
		Active:           true,
	}
}

func marchBooking(code, guest string, revenue, fee float64) booking.Booking {
	key := allocation.MonthKey("2025-03")
	return booking.Booking{
		Code:             code,
		PropertyID:       7,
		GuestName:        guest,
		Platform:         "airbnb",
		CheckIn:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:         time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		TotalAmount:      decimal.NewFromFloat(revenue),
		CleaningFee:      decimal.NewFromFloat(fee),
		TotalNights:      5,
		NightsByMonth:    map[allocation.MonthKey]int{key: 5},
		RevenueByMonth:   map[allocation.MonthKey]decimal.Decimal{key: decimal.NewFromFloat(revenue)},
		CleaningFeeMonth: key,
	}
}

func newTestSyncer(sheet *fakeSheet, bookings *stubBookings, expenses *stubExpenses, status *stubStatus) *Syncer {
	return NewSyncer(nil, sheet, bookings, &stubProperties{prop: testProperty()}, expenses, status, &stubLock{}, nil)
}

func TestRunWritesAggregatesAndDetails(t *testing.T) {
	sheet := newFakeSheet(marchLabels())
	status := &stubStatus{}
	bookings := &stubBookings{list: []booking.Booking{
		marchBooking("BK-1", "Alice Ng", 500, 100),
		marchBooking("BK-2", "Bob Reyes", 300, 50),
	}}
	syncer := newTestSyncer(sheet, bookings, &stubExpenses{total: decimal.NewFromInt(120)}, status)

	result, err := syncer.Run(context.Background(), 7, 2025, 3, "ops@kyanhub.com")
	require.NoError(t, err)

	// March sits at row 6 of the label column.
	assert.Equal(t, "$800.00", sheet.cells["B6"])
	assert.Equal(t, "$150.00", sheet.cells["C6"])
	assert.Equal(t, "$120.00", sheet.cells["D6"])

	assert.Equal(t, 2, result.RowsAppended)
	assert.Equal(t, 0, result.RowsSkipped)
	assert.Equal(t, "530.00", result.Net)
	assert.Equal(t, monthend.StatusComplete, result.Status)

	require.Len(t, status.applied, 1)
	snap := status.applied[0]
	assert.True(t, snap.NetAmount.Equal(decimal.NewFromInt(530)))
	assert.True(t, snap.OwnerProfit.Equal(decimal.NewFromInt(424)))
	assert.Equal(t, 2, snap.BookingsCount)
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	sheet := newFakeSheet(marchLabels())
	bookings := &stubBookings{list: []booking.Booking{
		marchBooking("BK-1", "Alice Ng", 500, 100),
		marchBooking("BK-2", "Bob Reyes", 300, 50),
	}}
	syncer := newTestSyncer(sheet, bookings, &stubExpenses{}, &stubStatus{})

	first, err := syncer.Run(context.Background(), 7, 2025, 3, "ops@kyanhub.com")
	require.NoError(t, err)
	require.Equal(t, 2, first.RowsAppended)
	revenueAfterFirst := sheet.cells["B6"]

	second, err := syncer.Run(context.Background(), 7, 2025, 3, "ops@kyanhub.com")
	require.NoError(t, err)

	assert.Equal(t, 0, second.RowsAppended)
	assert.Equal(t, 2, sheet.appends)
	assert.Equal(t, revenueAfterFirst, sheet.cells["B6"])
}

func TestRunDedupsByGuestNameCaseInsensitive(t *testing.T) {
	sheet := newFakeSheet(marchLabels())
	sheet.details = [][]string{
		// Row recorded by hand with a different code but the same guest.
		{"march", "ALICE NG", "MAN-OLD1", "manual", "2025-03-10", "2025-03-15", "5", "$500.00"},
	}
	bookings := &stubBookings{list: []booking.Booking{marchBooking("BK-1", "Alice Ng", 500, 100)}}
	syncer := newTestSyncer(sheet, bookings, &stubExpenses{}, &stubStatus{})

	result, err := syncer.Run(context.Background(), 7, 2025, 3, "ops@kyanhub.com")
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowsAppended)
}

func TestRunMissingMonthRowAbortsBeforeWrites(t *testing.T) {
	sheet := newFakeSheet([][]string{{"2025"}, {"January"}, {"February"}})
	bookings := &stubBookings{list: []booking.Booking{marchBooking("BK-1", "Alice Ng", 500, 100)}}
	syncer := newTestSyncer(sheet, bookings, &stubExpenses{}, &stubStatus{})

	_, err := syncer.Run(context.Background(), 7, 2025, 3, "ops@kyanhub.com")
	require.ErrorIs(t, err, httpx.ErrNotFound)
	assert.Empty(t, sheet.cells)
	assert.Zero(t, sheet.appends)
}

func TestRunMissingYearRowAborts(t *testing.T) {
	sheet := newFakeSheet([][]string{{"2024"}, {"March"}})
	syncer := newTestSyncer(sheet, &stubBookings{}, &stubExpenses{}, &stubStatus{})

	_, err := syncer.Run(context.Background(), 7, 2025, 3, "ops@kyanhub.com")
	require.ErrorIs(t, err, httpx.ErrNotFound)
	assert.Empty(t, sheet.cells)
}

func TestRunExpensesFailureDegradesToZero(t *testing.T) {
	sheet := newFakeSheet(marchLabels())
	status := &stubStatus{}
	bookings := &stubBookings{list: []booking.Booking{marchBooking("BK-1", "Alice Ng", 500, 100)}}
	syncer := newTestSyncer(sheet, bookings, &stubExpenses{err: errors.New("expenses source down")}, status)

	result, err := syncer.Run(context.Background(), 7, 2025, 3, "ops@kyanhub.com")
	require.NoError(t, err)

	// Zero aggregates stay blank in the sheet.
	assert.Equal(t, "", sheet.cells["D6"])
	assert.Equal(t, "0.00", result.Expenses)
	require.Len(t, status.applied, 1)
	assert.True(t, status.applied[0].ExpensesAmount.IsZero())
}

func TestRunAppendFailureSkipsRowAndContinues(t *testing.T) {
	sheet := newFakeSheet(marchLabels())
	sheet.failCodes["BK-1"] = true
	status := &stubStatus{}
	bookings := &stubBookings{list: []booking.Booking{
		marchBooking("BK-1", "Alice Ng", 500, 100),
		marchBooking("BK-2", "Bob Reyes", 300, 50),
	}}
	syncer := newTestSyncer(sheet, bookings, &stubExpenses{}, status)

	result, err := syncer.Run(context.Background(), 7, 2025, 3, "ops@kyanhub.com")
	require.NoError(t, err)

	assert.Equal(t, 1, result.RowsAppended)
	assert.Equal(t, 1, result.RowsSkipped)
	// The run still completes and records its snapshot.
	require.Len(t, status.applied, 1)
}

func TestRunRejectedWhileMonthLocked(t *testing.T) {
	sheet := newFakeSheet(marchLabels())
	status := &stubStatus{lockedErr: &monthend.RevenueLockedError{Current: monthend.StatusDraft}}
	syncer := newTestSyncer(sheet, &stubBookings{}, &stubExpenses{}, status)

	_, err := syncer.Run(context.Background(), 7, 2025, 3, "ops@kyanhub.com")
	require.ErrorIs(t, err, httpx.ErrPrecondition)
	assert.Empty(t, sheet.cells)
}

func TestRunLeaseConflict(t *testing.T) {
	syncer := NewSyncer(nil, newFakeSheet(marchLabels()), &stubBookings{}, &stubProperties{prop: testProperty()},
		&stubExpenses{}, &stubStatus{},
		&stubLock{err: fmt.Errorf("held: %w", httpx.ErrPrecondition)}, nil)

	_, err := syncer.Run(context.Background(), 7, 2025, 3, "ops@kyanhub.com")
	require.ErrorIs(t, err, httpx.ErrPrecondition)
}

func TestRunValidatesMonth(t *testing.T) {
	syncer := newTestSyncer(newFakeSheet(nil), &stubBookings{}, &stubExpenses{}, &stubStatus{})

	_, err := syncer.Run(context.Background(), 7, 2025, 13, "ops@kyanhub.com")
	require.ErrorIs(t, err, httpx.ErrValidation)
}
