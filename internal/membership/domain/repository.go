package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	List(ctx context.Context, db *gorm.DB, filter ListMembershipTypeRequest) ([]MembershipType, error)
	FindByCode(ctx context.Context, db *gorm.DB, code int) (*MembershipType, error)
}
