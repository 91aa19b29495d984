// Package money holds the rounding primitives used for every derived amount.
package money

import "github.com/shopspring/decimal"

// Round2 rounds x to two decimal places, half away from zero. The input is
// taken at its shortest decimal form, so 1.005 rounds to 1.01 where scaling
// the float by 100 first would give 1.00.
func Round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// Sum adds the values in decimal space and rounds the result to two places.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// Mul returns round2(a*b).
func Mul(a, b float64) float64 {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// TaxOn returns round2((total-discount)*rate/100). The taxable base is never
// rounded on its own, so a sub-cent discount cannot shift the tax by a cent.
func TaxOn(total, discount, rate float64) float64 {
	return decimal.NewFromFloat(total).
		Sub(decimal.NewFromFloat(discount)).
		Mul(decimal.NewFromFloat(rate)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}
