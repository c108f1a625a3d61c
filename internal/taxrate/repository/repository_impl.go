package repository

import (
	"context"

	"github.com/smallbiznis/regi/internal/taxrate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListOrdered(ctx context.Context, db *gorm.DB) ([]domain.TaxRate, error) {
	var windows []domain.TaxRate
	err := db.WithContext(ctx).Raw(
		`SELECT id, begin_dt, end_dt, rate, created_at
		 FROM consumption_taxes ORDER BY begin_dt`,
	).Scan(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *repo) ReplaceAll(ctx context.Context, db *gorm.DB, windows []domain.TaxRate) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM consumption_taxes`).Error; err != nil {
		return err
	}
	for i := range windows {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO consumption_taxes (id, begin_dt, end_dt, rate, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			windows[i].ID,
			windows[i].BeginAt,
			windows[i].EndAt,
			windows[i].Rate,
			windows[i].CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}
