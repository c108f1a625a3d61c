package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Item is a catalog entry. UnitPrice is in the smallest currency unit.
// Sold lines snapshot the price, so repricing never rewrites history.
type Item struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Code           string       `gorm:"not null;uniqueIndex" json:"code"`
	Name           string       `gorm:"not null" json:"name"`
	UnitPrice      int64        `gorm:"not null;check:unit_price >= 0" json:"unit_price"`
	DiscontinuedAt *time.Time   `json:"discontinued_at,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Discontinued reports whether the item is closed to new sales.
func (i Item) Discontinued() bool {
	return i.DiscontinuedAt != nil
}
