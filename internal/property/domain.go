// Package property holds the portfolio registry: each managed property with
// its reservation-platform identifier and the ledger document it closes into.
package property

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the property is not part of the portfolio.
var ErrNotFound = errors.New("property: not found")

// Property describes one managed rental.
type Property struct {
	ID               int64
	Name             string
	ExternalID       string
	LedgerDocumentID string
	LedgerSheet      string
	OwnerPercentage  decimal.Decimal
	Active           bool
}
