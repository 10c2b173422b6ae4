package utils

import (
	"fmt"
	"math"
	"strconv"
)

// Money amounts are carried as int64 minor units (ngwee). The conversion
// from provider decimals rounds half away from zero so 500.00 ZMW always
// lands on exactly 50000 ngwee.

// ToMinorUnits converts a decimal major-unit amount to minor units.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts minor units back to a decimal major-unit amount.
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

// FormatAmount renders a minor-unit amount as "ZMW 1,234.50" style text
// without the thousands separator, matching provider statements.
func FormatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, amount/100, amount%100)
}

// ToMinorUnitsString parses a provider decimal amount string ("500.00")
// into minor units.
func ToMinorUnitsString(s string) (int64, error) {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return ToMinorUnits(value), nil
}

// ApplyBps computes a basis-point share of a minor-unit amount.
func ApplyBps(amount int64, bps int64) int64 {
	return amount * bps / 10000
}
