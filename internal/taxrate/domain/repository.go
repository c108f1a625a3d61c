package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ListOrdered(ctx context.Context, db *gorm.DB) ([]TaxRate, error)
	// ReplaceAll swaps the stored schedule for windows. Callers run it
	// inside a transaction.
	ReplaceAll(ctx context.Context, db *gorm.DB, windows []TaxRate) error
}
