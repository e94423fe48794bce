package numeric

import (
	"math"

	"github.com/shopspring/decimal"
)

// SafeDivide returns a/b, or 0 when b is zero or the result is not finite
func SafeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// SafeDivideDecimal returns a/b, or zero when b is zero
func SafeDivideDecimal(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Round rounds half to even at the given number of decimal places.
// NaN and infinities are returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).RoundBank(places).Float64()
	return f
}

// RoundDecimal rounds a decimal amount half to even
func RoundDecimal(d decimal.Decimal, places int32) decimal.Decimal {
	return d.RoundBank(places)
}

// ToFloat converts a decimal to float64
func ToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Finite replaces NaN and infinities with 0
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
