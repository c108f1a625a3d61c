package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/regi/internal/taxrate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func taxPeriods() []taxdomain.TaxRate {
	return []taxdomain.TaxRate{
		{BeginAt: taxdomain.MinBegin, EndAt: date(2014, time.April, 1), Rate: 0.05},
		{BeginAt: date(2014, time.April, 1), EndAt: date(2019, time.October, 1), Rate: 0.08},
		{BeginAt: date(2019, time.October, 1), EndAt: taxdomain.MaxEnd, Rate: 0.10},
	}
}

// flatPeriods covers all time with a single rate, for tests that pin
// the tax step to a known multiplier.
func flatPeriods(rate float64) []taxdomain.TaxRate {
	return []taxdomain.TaxRate{
		{BeginAt: taxdomain.MinBegin, EndAt: taxdomain.MaxEnd, Rate: rate},
	}
}

func line(item int64, unitPrice, quantity int64) SaleLine {
	return SaleLine{ItemID: snowflake.ID(item), UnitPrice: unitPrice, Quantity: quantity}
}

func TestComputeTotalsSingleLine(t *testing.T) {
	totals, err := ComputeTotals(
		[]SaleLine{line(1, 1000, 3)},
		0.10,
		date(2026, time.March, 3),
		taxPeriods(),
	)
	require.NoError(t, err)

	assert.Equal(t, int64(3000), totals.Subtotal)
	assert.Equal(t, 0.10, totals.DiscountRate)
	assert.Equal(t, int64(300), totals.DiscountAmount)
	assert.Equal(t, int64(2700), totals.TaxableAmount)
	assert.Equal(t, 0.10, totals.ConsumptionTaxRate)
	assert.Equal(t, int64(270), totals.ConsumptionTaxAmount)
	assert.Equal(t, int64(2970), totals.Total)
	require.Len(t, totals.Lines, 1)
	assert.Equal(t, int64(3000), totals.Lines[0].Amount)
}

func TestComputeTotalsMultipleLines(t *testing.T) {
	totals, err := ComputeTotals(
		[]SaleLine{
			line(1, 120, 2),
			line(2, 75, 4),
			line(3, 980, 1),
		},
		0,
		date(2016, time.June, 1),
		taxPeriods(),
	)
	require.NoError(t, err)

	// 240 + 300 + 980
	assert.Equal(t, int64(1520), totals.Subtotal)
	assert.Equal(t, int64(0), totals.DiscountAmount)
	assert.Equal(t, int64(1520), totals.TaxableAmount)
	assert.Equal(t, 0.08, totals.ConsumptionTaxRate)
	assert.Equal(t, int64(122), totals.ConsumptionTaxAmount) // 121.6 rounds to 122
	assert.Equal(t, int64(1642), totals.Total)
}

func TestComputeTotalsEmptySale(t *testing.T) {
	_, err := ComputeTotals(nil, 0, date(2026, time.March, 3), taxPeriods())
	assert.ErrorIs(t, err, ErrEmptySale)
}

func TestComputeTotalsNegativeQuantity(t *testing.T) {
	_, err := ComputeTotals(
		[]SaleLine{line(1, 1000, -1)},
		0,
		date(2026, time.March, 3),
		taxPeriods(),
	)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestComputeTotalsAtWindowBegin(t *testing.T) {
	// the begin instant belongs to the window that opens there
	totals, err := ComputeTotals(
		[]SaleLine{line(1, 1000, 1)},
		0,
		date(2019, time.October, 1),
		taxPeriods(),
	)
	require.NoError(t, err)
	assert.Equal(t, 0.10, totals.ConsumptionTaxRate)
}

func TestComputeTotalsOverlappingWindows(t *testing.T) {
	overlapping := []taxdomain.TaxRate{
		{BeginAt: taxdomain.MinBegin, EndAt: date(2030, time.January, 1), Rate: 0.08},
		{BeginAt: date(2019, time.October, 1), EndAt: taxdomain.MaxEnd, Rate: 0.10},
	}
	_, err := ComputeTotals(
		[]SaleLine{line(1, 1000, 1)},
		0,
		date(2026, time.March, 3),
		overlapping,
	)
	assert.ErrorIs(t, err, taxdomain.ErrAmbiguousTaxRate)
}

func TestComputeTotalsNoApplicableWindow(t *testing.T) {
	gapped := []taxdomain.TaxRate{
		{BeginAt: taxdomain.MinBegin, EndAt: date(2014, time.April, 1), Rate: 0.05},
		{BeginAt: date(2019, time.October, 1), EndAt: taxdomain.MaxEnd, Rate: 0.10},
	}
	_, err := ComputeTotals(
		[]SaleLine{line(1, 1000, 1)},
		0,
		date(2016, time.June, 1),
		gapped,
	)
	assert.ErrorIs(t, err, taxdomain.ErrNoApplicableTaxRate)
}

func TestComputeTotalsInvalidDiscountRate(t *testing.T) {
	for _, rate := range []float64{-0.1, 1, 1.5} {
		_, err := ComputeTotals(
			[]SaleLine{line(1, 1000, 1)},
			rate,
			date(2026, time.March, 3),
			taxPeriods(),
		)
		assert.ErrorIs(t, err, ErrInvalidDiscountRate, "rate %v", rate)
	}
}

func TestDiscountRoundsHalfToEven(t *testing.T) {
	cases := []struct {
		name     string
		subtotal int64
		rate     float64
		want     int64
	}{
		{"tie rounds down to even", 100, 0.125, 12},  // 12.5
		{"tie rounds up to even", 300, 0.125, 38},    // 37.5
		{"plain nearest rounds up", 2999, 0.05, 150}, // 149.95
		{"exact product", 3000, 0.10, 300},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals, err := ComputeTotals(
				[]SaleLine{line(1, tc.subtotal, 1)},
				tc.rate,
				date(2026, time.March, 3),
				flatPeriods(0),
			)
			require.NoError(t, err)
			assert.Equal(t, tc.want, totals.DiscountAmount)
		})
	}
}

func TestTaxRoundsHalfToEven(t *testing.T) {
	cases := []struct {
		name    string
		taxable int64
		rate    float64
		want    int64
	}{
		{"tie rounds down to even", 100, 0.125, 12},
		{"tie rounds up to even", 300, 0.125, 38},
		{"plain nearest", 1520, 0.08, 122},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals, err := ComputeTotals(
				[]SaleLine{line(1, tc.taxable, 1)},
				0,
				date(2026, time.March, 3),
				flatPeriods(tc.rate),
			)
			require.NoError(t, err)
			assert.Equal(t, tc.want, totals.ConsumptionTaxAmount)
			assert.Equal(t, tc.taxable+tc.want, totals.Total)
		})
	}
}

func TestDiscountNeverExceedsSubtotal(t *testing.T) {
	rates := []float64{0, 0.05, 0.10, 0.125, 0.20, 0.5, 0.99}
	for subtotal := int64(1); subtotal <= 200; subtotal++ {
		for _, rate := range rates {
			totals, err := ComputeTotals(
				[]SaleLine{line(1, subtotal, 1)},
				rate,
				date(2026, time.March, 3),
				taxPeriods(),
			)
			require.NoError(t, err, "subtotal %d rate %v", subtotal, rate)
			assert.LessOrEqual(t, totals.DiscountAmount, totals.Subtotal)
			assert.GreaterOrEqual(t, totals.TaxableAmount, int64(0))
		}
	}
}

func TestComputeTotalsDeterministic(t *testing.T) {
	lines := []SaleLine{line(1, 1000, 3), line(2, 75, 4)}
	at := date(2026, time.March, 3)

	first, err := ComputeTotals(lines, 0.10, at, taxPeriods())
	require.NoError(t, err)
	second, err := ComputeTotals(lines, 0.10, at, taxPeriods())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeLineAmount(t *testing.T) {
	amount, err := ComputeLineAmount(1000, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), amount)

	_, err = ComputeLineAmount(1000, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = ComputeLineAmount(0, 5)
	assert.ErrorIs(t, err, ErrZeroLineAmount)

	_, err = ComputeLineAmount(100, 0)
	assert.ErrorIs(t, err, ErrZeroLineAmount)

	_, err = ComputeLineAmount(-100, 2)
	var violation *InvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "amount", violation.Field)
}

func TestConsolidateLinesMergesQuantities(t *testing.T) {
	merged, err := ConsolidateLines([]SaleLine{
		line(1, 1000, 2),
		line(2, 75, 1),
		line(1, 1000, 3),
	}, false)
	require.NoError(t, err)

	require.Len(t, merged, 2)
	assert.Equal(t, snowflake.ID(1), merged[0].ItemID)
	assert.Equal(t, int64(5), merged[0].Quantity)
	assert.Equal(t, snowflake.ID(2), merged[1].ItemID)
	assert.Equal(t, int64(1), merged[1].Quantity)
}

func TestConsolidateLinesNetsQuantities(t *testing.T) {
	// consolidation runs before quantity validation, so a correction
	// line nets against the original instead of failing outright
	merged, err := ConsolidateLines([]SaleLine{
		line(1, 1000, 2),
		line(1, 1000, -1),
	}, false)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, int64(1), merged[0].Quantity)

	totals, err := ComputeTotals(merged, 0, date(2026, time.March, 3), taxPeriods())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), totals.Subtotal)
}

func TestConsolidateLinesRejectsDuplicatesWhenAsked(t *testing.T) {
	_, err := ConsolidateLines([]SaleLine{
		line(1, 1000, 2),
		line(1, 1000, 3),
	}, true)
	assert.ErrorIs(t, err, ErrDuplicateLineItem)
}

func TestLineAmountsSubtotal(t *testing.T) {
	computed, subtotal, err := LineAmounts([]SaleLine{
		line(1, 1000, 3),
		line(2, 75, 4),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3300), subtotal)
	require.Len(t, computed, 2)
	assert.Equal(t, int64(3000), computed[0].Amount)
	assert.Equal(t, int64(300), computed[1].Amount)

	_, _, err = LineAmounts(nil)
	assert.True(t, errors.Is(err, ErrEmptySale))
}
