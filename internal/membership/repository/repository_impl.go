package repository

import (
	"context"

	"github.com/smallbiznis/regi/internal/membership/domain"
	"github.com/smallbiznis/regi/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListMembershipTypeRequest) ([]domain.MembershipType, error) {
	var types []domain.MembershipType
	stmt := db.WithContext(ctx).Model(&domain.MembershipType{})

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"code":       true,
		"name":       true,
		"created_at": true,
	})).Apply(stmt)

	if err := stmt.Order("code asc").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code int) (*domain.MembershipType, error) {
	var mt domain.MembershipType
	err := db.WithContext(ctx).Raw(
		`SELECT code, name, created_at FROM membership_types WHERE code = ?`,
		code,
	).Scan(&mt).Error
	if err != nil {
		return nil, err
	}
	if mt.Code == 0 {
		return nil, nil
	}
	return &mt, nil
}
