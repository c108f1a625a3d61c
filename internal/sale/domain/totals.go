package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/regi/internal/taxrate/domain"
)

// ConsolidateLines merges lines that reference the same item by
// summing their quantities, preserving first-appearance order. With
// rejectDuplicates set a repeated item fails with ErrDuplicateLineItem
// instead of being merged.
func ConsolidateLines(lines []SaleLine, rejectDuplicates bool) ([]SaleLine, error) {
	out := make([]SaleLine, 0, len(lines))
	index := make(map[snowflake.ID]int, len(lines))
	for _, line := range lines {
		if at, seen := index[line.ItemID]; seen {
			if rejectDuplicates {
				return nil, ErrDuplicateLineItem
			}
			out[at].Quantity += line.Quantity
			continue
		}
		index[line.ItemID] = len(out)
		out = append(out, line)
	}
	return out, nil
}

// ComputeLineAmount prices one line: unit price times quantity. The
// quantity must be non-negative and the product strictly positive.
func ComputeLineAmount(unitPrice, quantity int64) (int64, error) {
	if quantity < 0 {
		return 0, ErrInvalidQuantity
	}
	amount := unitPrice * quantity
	if amount == 0 {
		return 0, ErrZeroLineAmount
	}
	if amount < 0 {
		return 0, &InvariantViolation{Field: "amount", Value: amount}
	}
	return amount, nil
}

// LineAmounts prices every line and returns the computed lines with
// their subtotal. Callers that choose a discount rate from the
// subtotal run this first, then hand the same input to ComputeTotals.
func LineAmounts(lines []SaleLine) ([]ComputedLine, int64, error) {
	if len(lines) == 0 {
		return nil, 0, ErrEmptySale
	}
	computed := make([]ComputedLine, 0, len(lines))
	var subtotal int64
	for _, line := range lines {
		amount, err := ComputeLineAmount(line.UnitPrice, line.Quantity)
		if err != nil {
			return nil, 0, err
		}
		computed = append(computed, ComputedLine{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Amount:   amount,
		})
		subtotal += amount
	}
	return computed, subtotal, nil
}

// ComputeTotals derives the full monetary record of a sale from its
// lines, the discount rate, the sale instant and the consumption tax
// windows in force. Pure: the same input always yields bit-identical
// totals and nothing outside the arguments is read.
//
// The steps run in a fixed order: line amounts, subtotal, discount
// (rounded half-even), taxable amount, tax window resolution, tax
// (rounded half-even), total.
func ComputeTotals(lines []SaleLine, discountRate float64, soldAt time.Time, periods []taxdomain.TaxRate) (SaleTotals, error) {
	if discountRate < 0 || discountRate >= 1 {
		return SaleTotals{}, ErrInvalidDiscountRate
	}

	computed, subtotal, err := LineAmounts(lines)
	if err != nil {
		return SaleTotals{}, err
	}

	discountAmount := roundHalfEven(subtotal, discountRate)
	taxableAmount := subtotal - discountAmount
	if taxableAmount < 0 {
		return SaleTotals{}, ErrNegativeTaxableAmount
	}

	taxRate, err := taxdomain.ResolveRate(periods, soldAt)
	if err != nil {
		return SaleTotals{}, err
	}

	taxAmount := roundHalfEven(taxableAmount, taxRate)
	return SaleTotals{
		Lines:                computed,
		Subtotal:             subtotal,
		DiscountRate:         discountRate,
		DiscountAmount:       discountAmount,
		TaxableAmount:        taxableAmount,
		ConsumptionTaxRate:   taxRate,
		ConsumptionTaxAmount: taxAmount,
		Total:                taxableAmount + taxAmount,
	}, nil
}
