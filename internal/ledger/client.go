// Package ledger writes the monthly close into the external per-property
// ledger document: aggregate totals for the month row plus an append-only
// block of per-booking detail rows, deduplicated across runs.
package ledger

import "context"

// Client is the tabular document API the sync runs against. Documents are
// addressed by an opaque id plus a named sheet and A1-style ranges.
type Client interface {
	ReadRange(ctx context.Context, documentID, sheet, rng string) ([][]string, error)
	WriteCell(ctx context.Context, documentID, sheet, addr, value string) error
	AppendRow(ctx context.Context, documentID, sheet, rng string, values []string) error
}
