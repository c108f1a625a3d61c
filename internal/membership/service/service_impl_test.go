package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/regi/internal/config"
	"github.com/smallbiznis/regi/internal/membership/domain"
	"github.com/smallbiznis/regi/internal/membership/repository"
	"github.com/smallbiznis/regi/pkg/db"
	"go.uber.org/zap"
)

func setupMembershipService(t *testing.T, pricing config.PricingConfig) domain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.MembershipType{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	now := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, mt := range []domain.MembershipType{
		{Code: domain.CodeGeneral, Name: "general", CreatedAt: now},
		{Code: domain.CodeSpecial, Name: "special", CreatedAt: now},
	} {
		if err := dbConn.Create(&mt).Error; err != nil {
			t.Fatalf("seed membership type %d: %v", mt.Code, err)
		}
	}

	return New(Params{
		DB:      dbConn,
		Log:     zap.NewNop(),
		Pricing: config.StaticPricingConfigHolder(pricing),
		Repo:    repository.Provide(),
	})
}

func TestLookupMembershipType(t *testing.T) {
	svc := setupMembershipService(t, config.DefaultPricingConfig())
	ctx := context.Background()

	mt, err := svc.Lookup(ctx, domain.CodeSpecial)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if mt.Name != "special" {
		t.Fatalf("expected special, got %q", mt.Name)
	}

	if _, err := svc.Lookup(ctx, 9); !errors.Is(err, domain.ErrMembershipTypeNotFound) {
		t.Fatalf("expected ErrMembershipTypeNotFound, got %v", err)
	}
}

func TestListMembershipTypes(t *testing.T) {
	svc := setupMembershipService(t, config.DefaultPricingConfig())
	ctx := context.Background()

	resp, err := svc.List(ctx, domain.ListMembershipTypeRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.MembershipTypes) != 2 {
		t.Fatalf("expected 2 membership types, got %d", len(resp.MembershipTypes))
	}
	if resp.MembershipTypes[0].Code != domain.CodeGeneral {
		t.Fatalf("expected general first, got code %d", resp.MembershipTypes[0].Code)
	}

	sorted, err := svc.List(ctx, domain.ListMembershipTypeRequest{SortBy: "name", OrderBy: "desc"})
	if err != nil {
		t.Fatalf("list sorted: %v", err)
	}
	if len(sorted.MembershipTypes) != 2 || sorted.MembershipTypes[0].Name != "special" {
		t.Fatalf("expected special first, got %+v", sorted.MembershipTypes)
	}

	filtered, err := svc.List(ctx, domain.ListMembershipTypeRequest{Name: "general"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered.MembershipTypes) != 1 || filtered.MembershipTypes[0].Code != domain.CodeGeneral {
		t.Fatalf("expected only general, got %+v", filtered.MembershipTypes)
	}

	unknownSort, err := svc.List(ctx, domain.ListMembershipTypeRequest{SortBy: "secret"})
	if err != nil {
		t.Fatalf("list with unknown sort: %v", err)
	}
	if unknownSort.MembershipTypes[0].Code != domain.CodeGeneral {
		t.Fatalf("expected unknown sort column to be ignored, got code %d first", unknownSort.MembershipTypes[0].Code)
	}
}

func TestPolicyTracksPricingConfig(t *testing.T) {
	pricing := config.PricingConfig{
		DiscountThreshold: 5000,
		MemberDiscounts: []config.MemberDiscount{
			{MembershipCode: domain.CodeGeneral, BelowThreshold: 0.01, AtOrAboveThreshold: 0.02},
		},
	}
	svc := setupMembershipService(t, pricing)

	policy := svc.Policy()
	if policy.Threshold != 5000 {
		t.Fatalf("expected threshold 5000, got %d", policy.Threshold)
	}

	code := domain.CodeGeneral
	if got := policy.RateFor(&code, 4999); got != 0.01 {
		t.Fatalf("expected below-threshold rate 0.01, got %v", got)
	}
	if got := policy.RateFor(&code, 5000); got != 0.02 {
		t.Fatalf("expected at-threshold rate 0.02, got %v", got)
	}

	unknown := 9
	if got := policy.RateFor(&unknown, 9000); got != 0 {
		t.Fatalf("expected unknown code to earn no discount, got %v", got)
	}
}
