package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regi/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
	// CascadeDelete removes the customer's sale lines, sales, then the
	// customer row. Returns the number of sales removed. Callers run it
	// inside a transaction.
	CascadeDelete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
