package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regi/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, item *Item) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Item, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Item, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Item, error)
	List(ctx context.Context, db *gorm.DB, filter ListItemFilter, page pagination.Pagination) ([]*Item, error)
	UpdatePrice(ctx context.Context, db *gorm.DB, id snowflake.ID, unitPrice int64, updatedAt time.Time) error
	MarkDiscontinued(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	CountSaleReferences(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
