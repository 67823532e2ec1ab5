package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// WholeDaysBetween returns the number of complete days from one instant to
// another. Partial days truncate toward zero.
func WholeDaysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// CeilDiv divides n by d rounding up. d must be positive.
func CeilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// RoundCurrency rounds a monetary amount to the nearest whole currency unit,
// half away from zero.
func RoundCurrency(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(0)
}

// ParseTimestamp parses a raw timestamp string as stored by the backing
// store. Returns the zero time when the value is empty or unparseable.
func ParseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
