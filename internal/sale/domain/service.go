package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regi/pkg/db/pagination"
)

// SaleLineRequest is one requested line: which item and how many.
type SaleLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// RecordSaleRequest records one sale. CustomerID empty means an
// anonymous sale; DiscountRate nil means the membership policy rate
// applies. The idempotency key comes from the transport, not the body.
type RecordSaleRequest struct {
	CustomerID       string            `json:"customer_id"`
	SoldAt           *time.Time        `json:"sold_at"`
	Lines            []SaleLineRequest `json:"lines"`
	DiscountRate     *float64          `json:"discount_rate"`
	RejectDuplicates bool              `json:"reject_duplicates"`
	Metadata         map[string]any    `json:"metadata"`
	IdempotencyKey   string            `json:"-"`
}

type ListSaleRequest struct {
	PageToken  string
	PageSize   int
	CustomerID string
	SoldFrom   *time.Time
	SoldTo     *time.Time
}

type ListSaleFilter struct {
	CustomerID *snowflake.ID
	SoldFrom   *time.Time
	SoldTo     *time.Time
}

type ListSaleResponse struct {
	pagination.PageInfo
	Sales []Sale `json:"sales"`
}

type Service interface {
	// Record runs the full pipeline: resolve references, consolidate
	// lines, compute totals, validate, persist. A replayed idempotency
	// key returns the already-stored sale without writing again.
	Record(context.Context, RecordSaleRequest) (SaleRecord, error)
	GetByID(ctx context.Context, id string) (SaleRecord, error)
	List(context.Context, ListSaleRequest) (ListSaleResponse, error)
	Delete(ctx context.Context, id string) error
	// Receipt renders the printable receipt for a stored sale.
	Receipt(ctx context.Context, id string) ([]byte, error)
}
