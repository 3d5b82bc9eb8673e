package forecast

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// roundHalfUp rounds half-way values toward positive infinity, the dashboard's
// rounding rule (so -2.5 rounds to -2).
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// FormatNum renders x with two decimals, dropping a ".00" suffix: 3 -> "3",
// 2.5 -> "2.50", 1.239 -> "1.24". Non-finite values render as "0".
func FormatNum(x float64) string {
	if !finite(x) {
		return "0"
	}
	cents := roundHalfUp(x * 100)
	s := decimal.NewFromFloat(cents).Shift(-2).StringFixed(2)
	if s == "-0.00" {
		s = "0.00"
	}
	return strings.TrimSuffix(s, ".00")
}

// FormatInt renders x rounded to an integer. Non-finite values render as "0".
func FormatInt(x float64) string {
	if !finite(x) {
		return "0"
	}
	return decimal.NewFromFloat(roundHalfUp(x)).String()
}

// FormatPct renders a percentage with one decimal, e.g. "12.5%".
func FormatPct(x float64) string {
	if !finite(x) {
		return "0.0%"
	}
	tenths := roundHalfUp(x * 10)
	return decimal.NewFromFloat(tenths).Shift(-1).StringFixed(1) + "%"
}

// RatioPer100 is the bucket's share of orders rounded to a whole number.
func RatioPer100(share float64) float64 {
	if !finite(share) {
		return 0
	}
	return roundHalfUp(share)
}
