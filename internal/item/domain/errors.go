package domain

import "errors"

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidUnitPrice = errors.New("invalid_unit_price")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("item_not_found")
	ErrItemReferenced   = errors.New("item_referenced")
	ErrItemDiscontinued = errors.New("item_discontinued")
)
