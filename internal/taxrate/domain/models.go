package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Sentinel bounds stored on the first and last window so the schedule
// covers all of time and the [begin, end) scan needs no special cases.
var (
	MinBegin = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxEnd   = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// TaxRate is one consumption tax window. Begin is inclusive, End is
// exclusive. Rate is a fraction in [0,1).
type TaxRate struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	BeginAt   time.Time    `gorm:"column:begin_dt;not null;uniqueIndex" json:"begin_dt"`
	EndAt     time.Time    `gorm:"column:end_dt;not null;uniqueIndex" json:"end_dt"`
	Rate      float64      `gorm:"not null;check:rate >= 0 AND rate < 1" json:"rate"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (TaxRate) TableName() string { return "consumption_taxes" }

// Contains reports whether at falls inside the window.
func (t TaxRate) Contains(at time.Time) bool {
	return !at.Before(t.BeginAt) && at.Before(t.EndAt)
}

func (t *TaxRate) Validate() error {
	if !t.BeginAt.Before(t.EndAt) {
		return ErrInvalidWindow
	}
	if t.Rate < 0 || t.Rate >= 1 {
		return ErrInvalidTaxRate
	}
	return nil
}
