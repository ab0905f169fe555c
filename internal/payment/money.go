package payment

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a decimal currency amount into the smallest currency
// unit (cents). Rounding is half away from zero and is applied exactly once,
// here and nowhere else: 19.99 -> 1999, 10.005 -> 1001.
func MinorUnits(total decimal.Decimal) int64 {
	return total.Mul(hundred).Round(0).IntPart()
}
