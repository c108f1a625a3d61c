package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity       = errors.New("invalid_quantity")
	ErrZeroLineAmount        = errors.New("zero_line_amount")
	ErrEmptySale             = errors.New("empty_sale")
	ErrNegativeTaxableAmount = errors.New("negative_taxable_amount")
	ErrInvalidDiscountRate   = errors.New("invalid_discount_rate")
	ErrDuplicateLineItem     = errors.New("duplicate_line_item")
	ErrInvalidID             = errors.New("invalid_id")
	ErrNotFound              = errors.New("sale_not_found")
)

// InvariantViolation reports a computed sale record that failed the
// consistency re-check before persistence. The engine's arithmetic
// should make this unreachable, so a violation is an internal fault,
// not an input fault.
type InvariantViolation struct {
	Field string
	Value any
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("sale invariant violated: %s=%v", e.Field, e.Value)
}
