package domain

import "time"

// FindWindow scans the whole set for the window containing at. Zero
// matches means the schedule has a hole (ErrNoApplicableTaxRate); more
// than one means windows overlap and the reference data itself is
// corrupt (ErrAmbiguousTaxRate). Storage cannot enforce the
// partition-of-time assumption, so it is checked here on every call.
func FindWindow(periods []TaxRate, at time.Time) (TaxRate, error) {
	var found TaxRate
	matches := 0
	for _, period := range periods {
		if period.Contains(at) {
			matches++
			found = period
		}
	}
	switch matches {
	case 0:
		return TaxRate{}, ErrNoApplicableTaxRate
	case 1:
		return found, nil
	default:
		return TaxRate{}, ErrAmbiguousTaxRate
	}
}

// ResolveRate returns the rate of the single window containing at.
func ResolveRate(periods []TaxRate, at time.Time) (float64, error) {
	window, err := FindWindow(periods, at)
	if err != nil {
		return 0, err
	}
	return window.Rate, nil
}
