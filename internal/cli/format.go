package cli

import (
	"time"

	"github.com/shopspring/decimal"
)

// FormatAmount renders an amount with exactly two decimal places, rounding
// half away from zero. e.g., 3.5 -> "3.50", -5 -> "-5.00"
func FormatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// SumAmounts adds amounts in fixed point so long lists do not drift.
func SumAmounts(amounts []float64) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total
}

// FormatTime renders a timestamp as UTC minutes.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}
