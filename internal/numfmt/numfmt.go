// Package numfmt handles the Bosnian number format used by ProCredit
// statements and zekat.ba ("1.234,56": dot thousands, comma decimals),
// and report-facing amount formatting.
package numfmt

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ParseBosnian parses a number in Bosnian notation, e.g. "24.624,00".
func ParseBosnian(s string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse bosnian number %q: %w", s, err)
	}
	return d, nil
}

// Amount renders a monetary value for reports: grouped thousands, two
// decimals, e.g. "24,624.00".
func Amount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return humanize.FormatFloat("#,###.##", f)
}

// AmountWithCurrency renders "24,624.00 BAM".
func AmountWithCurrency(d decimal.Decimal, currency string) string {
	return Amount(d) + " " + currency
}
