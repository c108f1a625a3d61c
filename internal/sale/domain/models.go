// Package domain holds the sale records and the totals engine that
// derives them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Sale is the persisted monetary record of one completed sale. Every
// derived field is computed once by the engine and stored; nothing is
// recomputed on read.
type Sale struct {
	ID                   snowflake.ID      `gorm:"primaryKey" json:"id"`
	CustomerID           *snowflake.ID     `gorm:"index" json:"customer_id,omitempty"`
	ReceiptNumber        string            `gorm:"not null;uniqueIndex" json:"receipt_number"`
	IdempotencyKey       *string           `gorm:"uniqueIndex" json:"-"`
	SoldAt               time.Time         `gorm:"not null" json:"sold_at"`
	Subtotal             int64             `gorm:"not null;check:subtotal >= 0" json:"subtotal"`
	DiscountRate         float64           `gorm:"not null;check:discount_rate >= 0 AND discount_rate < 1" json:"discount_rate"`
	DiscountAmount       int64             `gorm:"not null;check:discount_amount >= 0" json:"discount_amount"`
	TaxableAmount        int64             `gorm:"not null;check:taxable_amount >= 0" json:"taxable_amount"`
	ConsumptionTaxRate   float64           `gorm:"not null;check:consumption_tax_rate >= 0 AND consumption_tax_rate < 1" json:"consumption_tax_rate"`
	ConsumptionTaxAmount int64             `gorm:"not null;check:consumption_tax_amount >= 0" json:"consumption_tax_amount"`
	Total                int64             `gorm:"not null;check:total >= 0" json:"total"`
	Metadata             datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Sale) TableName() string { return "sales" }

// SaleDetail is one line of a sale. The composite key keeps an item
// from appearing twice on the same sale; Amount snapshots the price at
// sale time.
type SaleDetail struct {
	SaleID   snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"sale_id"`
	ItemID   snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"item_id"`
	Quantity int64        `gorm:"not null;check:quantity >= 0" json:"quantity"`
	Amount   int64        `gorm:"not null;check:amount > 0" json:"amount"`
}

// TableName sets the database table name.
func (SaleDetail) TableName() string { return "sale_details" }

// SaleRecord is a sale together with its lines.
type SaleRecord struct {
	Sale
	Details []SaleDetail `json:"details"`
}

// SaleLine is one priced input line before totals are computed: the
// item's identity, its unit price snapshot and the quantity sold.
type SaleLine struct {
	ItemID    snowflake.ID
	UnitPrice int64
	Quantity  int64
}

// ComputedLine is a priced line after the engine ran.
type ComputedLine struct {
	ItemID   snowflake.ID
	Quantity int64
	Amount   int64
}

// SaleTotals is the engine output: every monetary field of a sale in
// the order it was derived.
type SaleTotals struct {
	Lines                []ComputedLine
	Subtotal             int64
	DiscountRate         float64
	DiscountAmount       int64
	TaxableAmount        int64
	ConsumptionTaxRate   float64
	ConsumptionTaxAmount int64
	Total                int64
}
