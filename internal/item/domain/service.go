package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regi/pkg/db/pagination"
)

type CreateItemRequest struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
}

type ListItemRequest struct {
	PageToken           string
	PageSize            int
	Name                string
	IncludeDiscontinued bool
}

type ListItemFilter struct {
	Name                string
	IncludeDiscontinued bool
}

type ListItemResponse struct {
	pagination.PageInfo
	Items []Item `json:"items"`
}

type RepriceItemRequest struct {
	ID        string
	UnitPrice int64
}

type Service interface {
	Create(context.Context, CreateItemRequest) (Item, error)
	GetByID(ctx context.Context, id string) (Item, error)
	GetByCode(ctx context.Context, code string) (Item, error)
	// GetByIDs loads a batch in one query. Missing IDs are simply
	// absent from the result; callers decide whether that is an error.
	GetByIDs(ctx context.Context, ids []snowflake.ID) ([]Item, error)
	List(context.Context, ListItemRequest) (ListItemResponse, error)
	Reprice(context.Context, RepriceItemRequest) (Item, error)
	Discontinue(ctx context.Context, id string) (Item, error)
	Delete(ctx context.Context, id string) error
}
