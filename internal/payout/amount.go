package payout

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// Exponent bounds for parsed amounts. Rescaling a decimal costs 10^|exp|, so
// inputs like "1e100000000" are refused before any arithmetic.
const (
	minAmountExponent = -20
	maxAmountExponent = 20
)

// parseAmount parses a major-unit decimal string. Surrounding whitespace is
// ignored.
func parseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	if exp := d.Exponent(); exp < minAmountExponent || exp > maxAmountExponent {
		return decimal.Zero, false
	}
	if d.Shift(2).Abs().GreaterThan(maxMinorUnits) {
		return decimal.Zero, false
	}
	return d, true
}

// ToMinorUnits converts a major-unit amount (pounds, euros) to minor units,
// rounding half away from zero. Invalid or non-positive input yields 0.
func ToMinorUnits(amount string) int64 {
	d, ok := parseAmount(amount)
	if !ok || !d.IsPositive() {
		return 0
	}
	return d.Shift(2).Round(0).IntPart()
}

// ToMajorUnits renders minor units as a plain decimal string ("400.00").
func ToMajorUnits(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
