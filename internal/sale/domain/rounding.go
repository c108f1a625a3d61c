package domain

import "github.com/shopspring/decimal"

// roundHalfEven multiplies an amount by a rate in exact decimal
// arithmetic and rounds half-to-even to a whole currency unit. This is
// the only place the engine rounds; both the discount and the tax step
// go through it, so 12.5 rounds to 12 and 37.5 to 38 in either.
func roundHalfEven(amount int64, rate float64) int64 {
	product := decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(rate))
	return product.RoundBank(0).IntPart()
}
