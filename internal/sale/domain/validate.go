package domain

import "github.com/bwmarrin/snowflake"

// ValidateSaleRecord re-checks every stored constraint on a computed
// sale before it is persisted. The engine's arithmetic already
// guarantees these hold, but the record crosses a trust boundary on
// its way to the database, so the gate verifies rather than assumes.
func ValidateSaleRecord(sale *Sale, details []SaleDetail) error {
	if sale.ReceiptNumber == "" {
		return &InvariantViolation{Field: "receipt_number", Value: sale.ReceiptNumber}
	}
	if sale.SoldAt.IsZero() {
		return &InvariantViolation{Field: "sold_at", Value: sale.SoldAt}
	}
	if len(details) == 0 {
		return &InvariantViolation{Field: "sale_details", Value: len(details)}
	}

	seen := make(map[snowflake.ID]struct{}, len(details))
	var lineSum int64
	for _, detail := range details {
		if _, dup := seen[detail.ItemID]; dup {
			return &InvariantViolation{Field: "item_id", Value: detail.ItemID}
		}
		seen[detail.ItemID] = struct{}{}
		if detail.Quantity < 0 {
			return &InvariantViolation{Field: "quantity", Value: detail.Quantity}
		}
		if detail.Amount <= 0 {
			return &InvariantViolation{Field: "amount", Value: detail.Amount}
		}
		lineSum += detail.Amount
	}

	if sale.Subtotal < 0 {
		return &InvariantViolation{Field: "subtotal", Value: sale.Subtotal}
	}
	if sale.Subtotal != lineSum {
		return &InvariantViolation{Field: "subtotal", Value: sale.Subtotal}
	}
	if sale.DiscountRate < 0 || sale.DiscountRate >= 1 {
		return &InvariantViolation{Field: "discount_rate", Value: sale.DiscountRate}
	}
	if sale.DiscountAmount < 0 {
		return &InvariantViolation{Field: "discount_amount", Value: sale.DiscountAmount}
	}
	if sale.TaxableAmount < 0 {
		return &InvariantViolation{Field: "taxable_amount", Value: sale.TaxableAmount}
	}
	if sale.TaxableAmount != sale.Subtotal-sale.DiscountAmount {
		return &InvariantViolation{Field: "taxable_amount", Value: sale.TaxableAmount}
	}
	if sale.ConsumptionTaxRate < 0 || sale.ConsumptionTaxRate >= 1 {
		return &InvariantViolation{Field: "consumption_tax_rate", Value: sale.ConsumptionTaxRate}
	}
	if sale.ConsumptionTaxAmount < 0 {
		return &InvariantViolation{Field: "consumption_tax_amount", Value: sale.ConsumptionTaxAmount}
	}
	if sale.Total < 0 {
		return &InvariantViolation{Field: "total", Value: sale.Total}
	}
	if sale.Total != sale.TaxableAmount+sale.ConsumptionTaxAmount {
		return &InvariantViolation{Field: "total", Value: sale.Total}
	}
	return nil
}
