package ledger

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// currency renders an amount as the ledger cell string, e.g. "$1,234.50".
func currency(d decimal.Decimal) string {
	f, _ := d.Float64()
	return printer.Sprintf("$%.2f", f)
}

// currencyOrBlank renders an aggregate cell. Zero totals stay blank so the
// sheet reads as "nothing this month" rather than "$0.00".
func currencyOrBlank(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return currency(d)
}
