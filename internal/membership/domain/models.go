package domain

import "time"

// Membership codes seeded at install time. Stable identifiers; sale
// history and the pricing config both key on them.
const (
	CodeGeneral = 1
	CodeSpecial = 2
)

type MembershipType struct {
	Code      int       `gorm:"primaryKey;autoIncrement:false" json:"code"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
