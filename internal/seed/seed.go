// Package seed bootstraps reference data so a fresh database is usable
// out of the box.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	itemdomain "github.com/smallbiznis/regi/internal/item/domain"
	membershipdomain "github.com/smallbiznis/regi/internal/membership/domain"
	taxdomain "github.com/smallbiznis/regi/internal/taxrate/domain"
	"gorm.io/gorm"
)

// fallbackTaxRate covers all time until an operator registers real
// windows; without it every sale fails rate resolution.
const fallbackTaxRate = 0.10

// EnsureMembershipTypes seeds the reference membership codes.
func EnsureMembershipTypes(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, want := range []membershipdomain.MembershipType{
			{Code: membershipdomain.CodeGeneral, Name: "general"},
			{Code: membershipdomain.CodeSpecial, Name: "special"},
		} {
			var existing membershipdomain.MembershipType
			err := tx.WithContext(ctx).
				Where("code = ?", want.Code).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			want.CreatedAt = now
			if err := tx.WithContext(ctx).Create(&want).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureDefaultTaxSchedule seeds a single all-time consumption tax
// window when the schedule is empty. Registered windows splice into it
// later; a non-empty schedule is left untouched.
func EnsureDefaultTaxSchedule(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&taxdomain.TaxRate{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		window := taxdomain.TaxRate{
			ID:        node.Generate(),
			BeginAt:   taxdomain.MinBegin,
			EndAt:     taxdomain.MaxEnd,
			Rate:      fallbackTaxRate,
			CreatedAt: time.Now().UTC(),
		}
		return tx.WithContext(ctx).Create(&window).Error
	})
}

// EnsureDemoCatalog seeds a handful of items for local evaluation.
func EnsureDemoCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, want := range []struct {
			name      string
			unitPrice int64
		}{
			{"Bath Towel", 1000},
			{"Hand Towel", 300},
			{"Body Soap", 450},
			{"Shampoo", 800},
			{"Toothbrush", 120},
		} {
			code := slug.Make(want.name)

			var existing itemdomain.Item
			err := tx.WithContext(ctx).
				Where("code = ?", code).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			item := itemdomain.Item{
				ID:        node.Generate(),
				Code:      code,
				Name:      want.name,
				UnitPrice: want.unitPrice,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
