package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regi/internal/cache"
	"github.com/smallbiznis/regi/internal/clock"
	"github.com/smallbiznis/regi/internal/lock"
	"github.com/smallbiznis/regi/internal/observability/metrics"
	"github.com/smallbiznis/regi/internal/taxrate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Cache   cache.TaxScheduleCache
	Guard   *lock.ScheduleGuard
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	cache   cache.TaxScheduleCache
	guard   *lock.ScheduleGuard
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("taxrate.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		cache:   p.Cache,
		guard:   p.Guard,
		metrics: p.Metrics,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterTaxRateRequest) (domain.ListTaxRateResponse, error) {
	window := domain.TaxRate{
		BeginAt:   req.BeginAt.UTC(),
		EndAt:     req.EndAt.UTC(),
		Rate:      req.Rate,
		CreatedAt: s.clock.Now(),
	}
	if err := window.Validate(); err != nil {
		return domain.ListTaxRateResponse{}, err
	}

	token, ok, err := s.guard.Acquire(ctx)
	if err != nil {
		return domain.ListTaxRateResponse{}, err
	}
	if !ok {
		return domain.ListTaxRateResponse{}, domain.ErrScheduleLocked
	}
	defer func() {
		if err := s.guard.Release(ctx, token); err != nil {
			s.log.Warn("schedule lock release failed", zap.Error(err))
		}
	}()

	var windows []domain.TaxRate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.ListOrdered(ctx, tx)
		if err != nil {
			return err
		}

		schedule := domain.Schedule{}
		if len(existing) > 0 {
			schedule, err = domain.NewSchedule(existing)
			if err != nil {
				return fmt.Errorf("stored schedule invalid: %w", err)
			}
		}

		schedule, err = schedule.Splice(window)
		if err != nil {
			return err
		}

		windows = schedule.Windows()
		for i := range windows {
			if windows[i].ID == 0 {
				windows[i].ID = s.genID.Generate()
			}
			if windows[i].CreatedAt.IsZero() {
				windows[i].CreatedAt = window.CreatedAt
			}
		}
		return s.repo.ReplaceAll(ctx, tx, windows)
	})
	if err != nil {
		return domain.ListTaxRateResponse{}, err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("tax schedule cache invalidation failed", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordScheduleReplacement(ctx)
	}

	s.log.Info("tax schedule replaced",
		zap.Time("begin_dt", window.BeginAt),
		zap.Time("end_dt", window.EndAt),
		zap.Float64("rate", window.Rate),
		zap.Int("windows", len(windows)),
	)
	return domain.ListTaxRateResponse{TaxRates: windows}, nil
}

func (s *Service) ListWindows(ctx context.Context) (domain.ListTaxRateResponse, error) {
	windows, err := s.repo.ListOrdered(ctx, s.db)
	if err != nil {
		return domain.ListTaxRateResponse{}, err
	}
	return domain.ListTaxRateResponse{TaxRates: windows}, nil
}

func (s *Service) Current(ctx context.Context, at time.Time) (domain.TaxRate, error) {
	windows, err := s.Periods(ctx)
	if err != nil {
		return domain.TaxRate{}, err
	}
	window, err := domain.FindWindow(windows, at.UTC())
	s.recordResolution(ctx, err)
	return window, err
}

func (s *Service) ActiveRate(ctx context.Context, at time.Time) (float64, error) {
	windows, err := s.Periods(ctx)
	if err != nil {
		return 0, err
	}
	rate, err := domain.ResolveRate(windows, at.UTC())
	s.recordResolution(ctx, err)
	return rate, err
}

func (s *Service) Periods(ctx context.Context) ([]domain.TaxRate, error) {
	windows, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.log.Warn("tax schedule cache read failed", zap.Error(err))
	}
	if ok {
		return windows, nil
	}

	windows, err = s.repo.ListOrdered(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, windows, cache.DefaultScheduleTTL); err != nil {
		s.log.Warn("tax schedule cache write failed", zap.Error(err))
	}
	return windows, nil
}

func (s *Service) recordResolution(ctx context.Context, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch err {
	case domain.ErrNoApplicableTaxRate:
		outcome = "no_applicable"
	case domain.ErrAmbiguousTaxRate:
		outcome = "ambiguous"
	}
	s.metrics.RecordTaxResolution(ctx, outcome)
}
