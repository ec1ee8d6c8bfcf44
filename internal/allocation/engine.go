// Package allocation splits a booking's stay and price across the calendar
// months it touches. It is pure computation: every entry path (platform
// ingestion, manual entry, edits) must go through Compute so the per-month
// breakdown is derived in exactly one place.
package allocation

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissingDates indicates check-in or check-out was not provided.
var ErrMissingDates = errors.New("allocation: check-in and check-out dates required")

// ErrNonPositiveStay indicates checkout does not fall after check-in.
var ErrNonPositiveStay = errors.New("allocation: stay must cover at least one night")

// Breakdown is the per-month partition of a booking. The maps cover the stay
// exactly: nights sum to TotalNights and revenue sums to the all-in amount.
type Breakdown struct {
	TotalNights      int
	NightlyRate      decimal.Decimal
	NightsByMonth    map[MonthKey]int
	RevenueByMonth   map[MonthKey]decimal.Decimal
	CleaningFeeMonth MonthKey
}

// Compute derives the allocation for a stay. checkOut is exclusive: the last
// occupied night is checkOut minus one day, and the cleaning fee lands whole
// in that night's month. totalAmount is the all-in price including the
// cleaning fee; the nightly rate is computed on totalAmount - cleaningFee.
func Compute(checkIn, checkOut time.Time, totalAmount, cleaningFee decimal.Decimal) (Breakdown, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return Breakdown{}, ErrMissingDates
	}
	in := truncateToDay(checkIn)
	out := truncateToDay(checkOut)

	totalNights := int(out.Sub(in).Hours() / 24)
	if totalNights < 1 {
		return Breakdown{}, ErrNonPositiveStay
	}

	baseTotal := totalAmount.Sub(cleaningFee)
	nightlyRate := baseTotal.Div(decimal.NewFromInt(int64(totalNights)))

	nights := make(map[MonthKey]int)
	var order []MonthKey
	for night := in; night.Before(out); night = night.AddDate(0, 0, 1) {
		key := MonthKeyFor(night)
		if _, seen := nights[key]; !seen {
			order = append(order, key)
		}
		nights[key]++
	}

	lastNight := out.AddDate(0, 0, -1)
	feeMonth := MonthKeyFor(lastNight)

	// Each month gets nights * rate rounded to cents; the final stay month
	// absorbs the rounding remainder so the partition is exact.
	revenue := make(map[MonthKey]decimal.Decimal, len(nights))
	allocated := decimal.Zero
	for _, key := range order[:len(order)-1] {
		amount := nightlyRate.Mul(decimal.NewFromInt(int64(nights[key]))).Round(2)
		revenue[key] = amount
		allocated = allocated.Add(amount)
	}
	last := order[len(order)-1]
	revenue[last] = baseTotal.Sub(allocated)

	revenue[feeMonth] = revenue[feeMonth].Add(cleaningFee)

	return Breakdown{
		TotalNights:      totalNights,
		NightlyRate:      nightlyRate,
		NightsByMonth:    nights,
		RevenueByMonth:   revenue,
		CleaningFeeMonth: feeMonth,
	}, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
