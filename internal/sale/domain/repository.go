package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regi/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert writes the sale header and all its lines. Callers run it
	// inside a transaction.
	Insert(ctx context.Context, db *gorm.DB, sale *Sale, details []SaleDetail) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Sale, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*Sale, error)
	FindDetails(ctx context.Context, db *gorm.DB, saleID snowflake.ID) ([]SaleDetail, error)
	List(ctx context.Context, db *gorm.DB, filter ListSaleFilter, page pagination.Pagination) ([]*Sale, error)
	// Delete removes the sale and its lines.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
