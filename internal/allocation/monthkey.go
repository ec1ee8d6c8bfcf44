package allocation

import (
	"fmt"
	"regexp"
	"time"
)

// MonthKey is the canonical year-month bucket identifier, always formatted
// with a zero-padded month ("2025-03"). Every lookup that buckets nights or
// revenue goes through this type; ad-hoc formatting elsewhere is a bug.
type MonthKey string

var monthKeyRegex = regexp.MustCompile(`^\d{4}-\d{2}$`)

// NewMonthKey builds a key from a year and calendar month.
func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// MonthKeyFor returns the key of the calendar month containing t.
func MonthKeyFor(t time.Time) MonthKey {
	return NewMonthKey(t.Year(), t.Month())
}

// ParseMonthKey validates and normalises a raw key string.
func ParseMonthKey(raw string) (MonthKey, error) {
	if !monthKeyRegex.MatchString(raw) {
		return "", fmt.Errorf("allocation: month key %q must be formatted YYYY-MM", raw)
	}
	var year, month int
	if _, err := fmt.Sscanf(raw, "%d-%d", &year, &month); err != nil {
		return "", fmt.Errorf("allocation: month key %q: %w", raw, err)
	}
	if month < 1 || month > 12 {
		return "", fmt.Errorf("allocation: month key %q has month out of range", raw)
	}
	return NewMonthKey(year, time.Month(month)), nil
}

// Year returns the calendar year encoded in the key.
func (k MonthKey) Year() int {
	var year, month int
	fmt.Sscanf(string(k), "%d-%d", &year, &month)
	return year
}

// Month returns the calendar month encoded in the key.
func (k MonthKey) Month() time.Month {
	var year, month int
	fmt.Sscanf(string(k), "%d-%d", &year, &month)
	return time.Month(month)
}

func (k MonthKey) String() string {
	return string(k)
}
