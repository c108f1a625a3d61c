package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/regi/internal/clock"
	"github.com/smallbiznis/regi/internal/item/domain"
	"github.com/smallbiznis/regi/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("item.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateItemRequest) (domain.Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Item{}, domain.ErrInvalidName
	}
	if req.UnitPrice < 0 {
		return domain.Item{}, domain.ErrInvalidUnitPrice
	}

	code, err := s.uniqueCode(ctx, name)
	if err != nil {
		return domain.Item{}, err
	}

	now := s.clock.Now()
	item := domain.Item{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		UnitPrice: req.UnitPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &item); err != nil {
		return domain.Item{}, err
	}

	return item, nil
}

// uniqueCode slugs the name and suffixes a counter until the code is
// free. A race on the unique index still surfaces as a duplicate key
// error from Insert.
func (s *Service) uniqueCode(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	code := base
	for n := 2; ; n++ {
		existing, err := s.repo.FindByCode(ctx, s.db, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
		code = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Item, error) {
	itemID, err := parseID(id)
	if err != nil {
		return domain.Item{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (domain.Item, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Item{}, domain.ErrNotFound
	}

	item, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByIDs(ctx context.Context, ids []snowflake.ID) ([]domain.Item, error) {
	return s.repo.FindByIDs(ctx, s.db, ids)
}

func (s *Service) List(ctx context.Context, req domain.ListItemRequest) (domain.ListItemResponse, error) {
	filter := domain.ListItemFilter{
		Name:                strings.TrimSpace(req.Name),
		IncludeDiscontinued: req.IncludeDiscontinued,
	}

	page := pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  req.PageSize,
	}

	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListItemResponse{}, err
	}

	pageSize := page.Limit()
	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Item) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}

	resp := domain.ListItemResponse{Items: out}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Reprice(ctx context.Context, req domain.RepriceItemRequest) (domain.Item, error) {
	itemID, err := parseID(req.ID)
	if err != nil {
		return domain.Item{}, domain.ErrInvalidID
	}
	if req.UnitPrice < 0 {
		return domain.Item{}, domain.ErrInvalidUnitPrice
	}

	item, err := s.repo.FindByID(ctx, s.db, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, domain.ErrNotFound
	}

	now := s.clock.Now()
	if err := s.repo.UpdatePrice(ctx, s.db, itemID, req.UnitPrice, now); err != nil {
		return domain.Item{}, err
	}

	item.UnitPrice = req.UnitPrice
	item.UpdatedAt = now
	return *item, nil
}

func (s *Service) Discontinue(ctx context.Context, id string) (domain.Item, error) {
	itemID, err := parseID(id)
	if err != nil {
		return domain.Item{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, domain.ErrNotFound
	}
	if item.Discontinued() {
		return *item, nil
	}

	now := s.clock.Now()
	if err := s.repo.MarkDiscontinued(ctx, s.db, itemID, now); err != nil {
		return domain.Item{}, err
	}

	item.DiscontinuedAt = &now
	item.UpdatedAt = now
	return *item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	itemID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		refs, err := s.repo.CountSaleReferences(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if refs > 0 {
			s.log.Warn("refusing to delete referenced item",
				zap.String("item_id", itemID.String()),
				zap.Int64("sale_lines", refs),
			)
			return domain.ErrItemReferenced
		}

		return s.repo.Delete(ctx, tx, itemID)
	})
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
