// Package reconcile diffs the upstream reservation feed against the internal
// booking store so an operator can review discrepancies before trusting a
// ledger sync. The comparison is pure and mutates nothing.
package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/masonempey/KyanHub-sub001/internal/booking"
	"github.com/masonempey/KyanHub-sub001/internal/reservation"
)

// Change describes one matched booking whose fields disagree between the feed
// and the store.
type Change struct {
	Code   string  `json:"code"`
	Fields []Field `json:"fields"`
}

// Field is a single disagreeing attribute with both sides' values.
type Field struct {
	Name     string `json:"name"`
	External string `json:"external"`
	Internal string `json:"internal"`
}

// Report is the outcome of a comparison. All slices are sorted by booking
// code so repeated runs over the same data render identically.
type Report struct {
	Matched      []string `json:"matched"`
	ExternalOnly []string `json:"externalOnly"`
	InternalOnly []string `json:"internalOnly"`
	Changed      []Change `json:"changed"`
}

// Compare diffs feed bookings against stored bookings keyed by booking code.
// ExternalOnly codes usually mean sync lag; InternalOnly codes are typically
// manual entries the platform never saw.
func Compare(external []reservation.FeedBooking, internal []booking.Booking) Report {
	feedByCode := make(map[string]reservation.FeedBooking, len(external))
	for _, fb := range external {
		feedByCode[fb.Code] = fb
	}
	storeByCode := make(map[string]booking.Booking, len(internal))
	for _, b := range internal {
		storeByCode[b.Code] = b
	}

	var report Report
	for code, fb := range feedByCode {
		stored, ok := storeByCode[code]
		if !ok {
			report.ExternalOnly = append(report.ExternalOnly, code)
			continue
		}
		report.Matched = append(report.Matched, code)
		if fields := diffFields(fb, stored); len(fields) > 0 {
			report.Changed = append(report.Changed, Change{Code: code, Fields: fields})
		}
	}
	for code := range storeByCode {
		if _, ok := feedByCode[code]; !ok {
			report.InternalOnly = append(report.InternalOnly, code)
		}
	}

	sort.Strings(report.Matched)
	sort.Strings(report.ExternalOnly)
	sort.Strings(report.InternalOnly)
	sort.Slice(report.Changed, func(i, j int) bool { return report.Changed[i].Code < report.Changed[j].Code })
	return report
}

func diffFields(fb reservation.FeedBooking, stored booking.Booking) []Field {
	var fields []Field
	if !strings.EqualFold(strings.TrimSpace(fb.GuestName), strings.TrimSpace(stored.GuestName)) {
		fields = append(fields, Field{Name: "guestName", External: fb.GuestName, Internal: stored.GuestName})
	}
	if !sameDay(fb.CheckIn, stored.CheckIn) {
		fields = append(fields, Field{Name: "checkIn", External: day(fb.CheckIn), Internal: day(stored.CheckIn)})
	}
	if !sameDay(fb.CheckOut, stored.CheckOut) {
		fields = append(fields, Field{Name: "checkOut", External: day(fb.CheckOut), Internal: day(stored.CheckOut)})
	}
	if !fb.TotalAmount().Equal(stored.TotalAmount) {
		fields = append(fields, Field{Name: "totalAmount", External: fb.TotalAmount().StringFixed(2), Internal: stored.TotalAmount.StringFixed(2)})
	}
	if !strings.EqualFold(fb.Platform, stored.Platform) {
		fields = append(fields, Field{Name: "platform", External: fb.Platform, Internal: stored.Platform})
	}
	return fields
}

func sameDay(a, b time.Time) bool {
	return day(a) == day(b)
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}
