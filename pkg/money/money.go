// Package money formats decimal amounts for human-facing text.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Format renders an amount with thousands separators and a leading dollar
// sign: 500000 becomes "$500,000" and 1234.5 becomes "$1,234.50".
// Fractional digits are kept only when the amount is not whole.
func Format(amount decimal.Decimal) string {
	if amount.Equal(amount.Truncate(0)) {
		return printer.Sprintf("$%d", amount.IntPart())
	}
	f, _ := amount.Round(2).Float64()
	return printer.Sprintf("$%.2f", f)
}
