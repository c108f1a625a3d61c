package domain

// DiscountTier is the pair of rates one membership code earns, selected
// by whether the sale subtotal reaches the policy threshold.
type DiscountTier struct {
	BelowThreshold     float64
	AtOrAboveThreshold float64
}

// DiscountPolicy maps a customer's membership onto a sale discount rate.
// Anonymous sales and unknown codes earn no discount.
type DiscountPolicy struct {
	Threshold int64
	Tiers     map[int]DiscountTier
}

func (p DiscountPolicy) RateFor(code *int, subtotal int64) float64 {
	if code == nil {
		return 0
	}
	tier, ok := p.Tiers[*code]
	if !ok {
		return 0
	}
	if subtotal < p.Threshold {
		return tier.BelowThreshold
	}
	return tier.AtOrAboveThreshold
}
