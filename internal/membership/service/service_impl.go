package service

import (
	"context"

	"github.com/smallbiznis/regi/internal/config"
	"github.com/smallbiznis/regi/internal/membership/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Pricing *config.PricingConfigHolder
	Repo    domain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	pricing *config.PricingConfigHolder
	repo    domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("membership.service"),
		pricing: p.Pricing,
		repo:    p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListMembershipTypeRequest) (domain.ListMembershipTypeResponse, error) {
	types, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return domain.ListMembershipTypeResponse{}, err
	}
	return domain.ListMembershipTypeResponse{MembershipTypes: types}, nil
}

func (s *Service) Lookup(ctx context.Context, code int) (domain.MembershipType, error) {
	mt, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.MembershipType{}, err
	}
	if mt == nil {
		return domain.MembershipType{}, domain.ErrMembershipTypeNotFound
	}
	return *mt, nil
}

func (s *Service) Policy() domain.DiscountPolicy {
	cfg := s.pricing.Get()
	tiers := make(map[int]domain.DiscountTier, len(cfg.MemberDiscounts))
	for _, d := range cfg.MemberDiscounts {
		tiers[d.MembershipCode] = domain.DiscountTier{
			BelowThreshold:     d.BelowThreshold,
			AtOrAboveThreshold: d.AtOrAboveThreshold,
		}
	}
	return domain.DiscountPolicy{
		Threshold: cfg.DiscountThreshold,
		Tiers:     tiers,
	}
}
