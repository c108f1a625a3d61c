package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regi/internal/sale/domain"
	"github.com/smallbiznis/regi/pkg/db/option"
	"github.com/smallbiznis/regi/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sale *domain.Sale, details []domain.SaleDetail) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO sales (
			id, customer_id, receipt_number, idempotency_key, sold_at,
			subtotal, discount_rate, discount_amount, taxable_amount,
			consumption_tax_rate, consumption_tax_amount, total,
			metadata, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID,
		sale.CustomerID,
		sale.ReceiptNumber,
		sale.IdempotencyKey,
		sale.SoldAt,
		sale.Subtotal,
		sale.DiscountRate,
		sale.DiscountAmount,
		sale.TaxableAmount,
		sale.ConsumptionTaxRate,
		sale.ConsumptionTaxAmount,
		sale.Total,
		sale.Metadata,
		sale.CreatedAt,
	).Error
	if err != nil {
		return err
	}

	for _, detail := range details {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO sale_details (sale_id, item_id, quantity, amount)
			 VALUES (?, ?, ?, ?)`,
			detail.SaleID,
			detail.ItemID,
			detail.Quantity,
			detail.Amount,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, receipt_number, idempotency_key, sold_at,
			subtotal, discount_rate, discount_amount, taxable_amount,
			consumption_tax_rate, consumption_tax_amount, total,
			metadata, created_at
		 FROM sales WHERE id = ?`,
		id,
	).Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, receipt_number, idempotency_key, sold_at,
			subtotal, discount_rate, discount_amount, taxable_amount,
			consumption_tax_rate, consumption_tax_amount, total,
			metadata, created_at
		 FROM sales WHERE idempotency_key = ?`,
		key,
	).Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) FindDetails(ctx context.Context, db *gorm.DB, saleID snowflake.ID) ([]domain.SaleDetail, error) {
	var details []domain.SaleDetail
	err := db.WithContext(ctx).Raw(
		`SELECT sale_id, item_id, quantity, amount
		 FROM sale_details WHERE sale_id = ? ORDER BY item_id`,
		saleID,
	).Scan(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListSaleFilter, page pagination.Pagination) ([]*domain.Sale, error) {
	var sales []*domain.Sale
	stmt := db.WithContext(ctx).Model(&domain.Sale{})
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.SoldFrom != nil {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "sold_at",
			Operator: option.GTE,
			Value:    *filter.SoldFrom,
		}).Apply(stmt)
	}
	if filter.SoldTo != nil {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "sold_at",
			Operator: option.LT,
			Value:    *filter.SoldTo,
		}).Apply(stmt)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM sale_details WHERE sale_id = ?`, id).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM sales WHERE id = ?`, id).Error
}
