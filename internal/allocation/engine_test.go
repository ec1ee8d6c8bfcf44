package allocation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeSingleMonthStay(t *testing.T) {
	b, err := Compute(date(2025, 3, 10), date(2025, 3, 15), decimal.NewFromInt(500), decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.Equal(t, 5, b.TotalNights)
	assert.True(t, b.NightlyRate.Equal(decimal.NewFromInt(80)), "nightly rate %s", b.NightlyRate)
	assert.Equal(t, map[MonthKey]int{"2025-03": 5}, b.NightsByMonth)
	assert.Equal(t, MonthKey("2025-03"), b.CleaningFeeMonth)
	require.Len(t, b.RevenueByMonth, 1)
	assert.True(t, b.RevenueByMonth["2025-03"].Equal(decimal.NewFromInt(500)))
}

func TestComputeCrossMonthStay(t *testing.T) {
	b, err := Compute(date(2025, 3, 29), date(2025, 4, 2), decimal.NewFromInt(400), decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, 4, b.TotalNights)
	assert.Equal(t, map[MonthKey]int{"2025-03": 3, "2025-04": 1}, b.NightsByMonth)
	assert.True(t, b.RevenueByMonth["2025-03"].Equal(decimal.NewFromInt(300)))
	assert.True(t, b.RevenueByMonth["2025-04"].Equal(decimal.NewFromInt(100)))
	assert.Equal(t, MonthKey("2025-04"), b.CleaningFeeMonth)
}

func TestComputePartitionsStayExactly(t *testing.T) {
	cases := []struct {
		name        string
		in, out     time.Time
		total, fee  string
	}{
		{"uneven rate", date(2025, 1, 30), date(2025, 2, 2), "100.00", "0"},
		{"fee crossing year", date(2024, 12, 28), date(2025, 1, 3), "913.37", "120.50"},
		{"long stay", date(2025, 5, 15), date(2025, 8, 20), "4501.11", "250.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			total := decimal.RequireFromString(tc.total)
			fee := decimal.RequireFromString(tc.fee)
			b, err := Compute(tc.in, tc.out, total, fee)
			require.NoError(t, err)

			nightSum := 0
			for _, n := range b.NightsByMonth {
				nightSum += n
			}
			assert.Equal(t, b.TotalNights, nightSum)

			revenueSum := decimal.Zero
			for _, amount := range b.RevenueByMonth {
				revenueSum = revenueSum.Add(amount)
			}
			assert.True(t, revenueSum.Equal(total), "revenue %s != total %s", revenueSum, total)

			lastNight := tc.out.AddDate(0, 0, -1)
			assert.Equal(t, MonthKeyFor(lastNight), b.CleaningFeeMonth)
		})
	}
}

func TestComputeFeeNeverSplitsAcrossMonths(t *testing.T) {
	// Stay covers March and April; the fee must land entirely in April.
	b, err := Compute(date(2025, 3, 30), date(2025, 4, 5), decimal.NewFromInt(700), decimal.NewFromInt(150))
	require.NoError(t, err)

	base := decimal.NewFromInt(550)
	rate := base.Div(decimal.NewFromInt(6))
	march := rate.Mul(decimal.NewFromInt(2)).Round(2)
	assert.True(t, b.RevenueByMonth["2025-03"].Equal(march))
	assert.True(t, b.RevenueByMonth["2025-04"].Equal(base.Sub(march).Add(decimal.NewFromInt(150))))
}

func TestComputeRejectsInvalidStays(t *testing.T) {
	_, err := Compute(time.Time{}, date(2025, 3, 15), decimal.NewFromInt(100), decimal.Zero)
	assert.ErrorIs(t, err, ErrMissingDates)

	_, err = Compute(date(2025, 3, 15), date(2025, 3, 15), decimal.NewFromInt(100), decimal.Zero)
	assert.ErrorIs(t, err, ErrNonPositiveStay)

	_, err = Compute(date(2025, 3, 16), date(2025, 3, 15), decimal.NewFromInt(100), decimal.Zero)
	assert.ErrorIs(t, err, ErrNonPositiveStay)
}
