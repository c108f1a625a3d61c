package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/regi/internal/clock"
	customerdomain "github.com/smallbiznis/regi/internal/customer/domain"
	itemdomain "github.com/smallbiznis/regi/internal/item/domain"
	membershipdomain "github.com/smallbiznis/regi/internal/membership/domain"
	"github.com/smallbiznis/regi/internal/observability/metrics"
	"github.com/smallbiznis/regi/internal/providers/pdf"
	"github.com/smallbiznis/regi/internal/sale/domain"
	taxdomain "github.com/smallbiznis/regi/internal/taxrate/domain"
	"github.com/smallbiznis/regi/pkg/db"
	"github.com/smallbiznis/regi/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	ItemSvc       itemdomain.Service
	CustomerSvc   customerdomain.Service
	MembershipSvc membershipdomain.Service
	TaxSvc        taxdomain.Service
	Renderer      pdf.Renderer
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	itemSvc       itemdomain.Service
	customerSvc   customerdomain.Service
	membershipSvc membershipdomain.Service
	taxSvc        taxdomain.Service
	renderer      pdf.Renderer
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("sale.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		itemSvc:       p.ItemSvc,
		customerSvc:   p.CustomerSvc,
		membershipSvc: p.MembershipSvc,
		taxSvc:        p.TaxSvc,
		renderer:      p.Renderer,
		metrics:       p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordSaleRequest) (domain.SaleRecord, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, key)
		if err != nil {
			return domain.SaleRecord{}, err
		}
		if existing != nil {
			s.log.Debug("idempotent replay", zap.String("idempotency_key", key))
			return s.toRecord(ctx, existing)
		}
	}

	var customer *customerdomain.Customer
	if strings.TrimSpace(req.CustomerID) != "" {
		found, err := s.customerSvc.GetByID(ctx, req.CustomerID)
		if err != nil {
			s.reject(ctx, err)
			return domain.SaleRecord{}, err
		}
		customer = &found
	}

	lines, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		s.reject(ctx, err)
		return domain.SaleRecord{}, err
	}

	consolidated, err := domain.ConsolidateLines(lines, req.RejectDuplicates)
	if err != nil {
		s.reject(ctx, err)
		return domain.SaleRecord{}, err
	}

	discountRate, err := s.discountRate(req.DiscountRate, customer, consolidated)
	if err != nil {
		s.reject(ctx, err)
		return domain.SaleRecord{}, err
	}

	soldAt := s.clock.Now()
	if req.SoldAt != nil {
		soldAt = req.SoldAt.UTC()
	}

	periods, err := s.taxSvc.Periods(ctx)
	if err != nil {
		return domain.SaleRecord{}, err
	}

	totals, err := domain.ComputeTotals(consolidated, discountRate, soldAt, periods)
	if err != nil {
		s.reject(ctx, err)
		return domain.SaleRecord{}, err
	}

	sale := domain.Sale{
		ID:                   s.genID.Generate(),
		ReceiptNumber:        ulid.Make().String(),
		SoldAt:               soldAt,
		Subtotal:             totals.Subtotal,
		DiscountRate:         totals.DiscountRate,
		DiscountAmount:       totals.DiscountAmount,
		TaxableAmount:        totals.TaxableAmount,
		ConsumptionTaxRate:   totals.ConsumptionTaxRate,
		ConsumptionTaxAmount: totals.ConsumptionTaxAmount,
		Total:                totals.Total,
		CreatedAt:            s.clock.Now(),
	}
	if customer != nil {
		sale.CustomerID = &customer.ID
	}
	if key != "" {
		sale.IdempotencyKey = &key
	}
	if len(req.Metadata) > 0 {
		sale.Metadata = datatypes.JSONMap(req.Metadata)
	}

	details := make([]domain.SaleDetail, 0, len(totals.Lines))
	for _, line := range totals.Lines {
		details = append(details, domain.SaleDetail{
			SaleID:   sale.ID,
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Amount:   line.Amount,
		})
	}

	if err := domain.ValidateSaleRecord(&sale, details); err != nil {
		s.log.Error("computed sale failed validation",
			zap.String("receipt_number", sale.ReceiptNumber),
			zap.Error(err),
		)
		s.reject(ctx, err)
		return domain.SaleRecord{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &sale, details)
	})
	if err != nil {
		// Two writers raced on the same idempotency key; the row that
		// won carries the sale we were asked to record.
		if key != "" && db.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, s.db, key)
			if findErr == nil && existing != nil {
				s.log.Debug("idempotent replay after conflict", zap.String("idempotency_key", key))
				return s.toRecord(ctx, existing)
			}
		}
		return domain.SaleRecord{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordSale(ctx, memberKind(customer))
	}
	s.log.Info("sale recorded",
		zap.String("sale_id", sale.ID.String()),
		zap.String("receipt_number", sale.ReceiptNumber),
		zap.Int("lines", len(details)),
		zap.Int64("total", sale.Total),
	)

	return domain.SaleRecord{Sale: sale, Details: details}, nil
}

// buildLines resolves every requested item and snapshots its price.
func (s *Service) buildLines(ctx context.Context, reqLines []domain.SaleLineRequest) ([]domain.SaleLine, error) {
	ids := make([]snowflake.ID, 0, len(reqLines))
	seen := make(map[snowflake.ID]struct{}, len(reqLines))
	parsed := make([]snowflake.ID, 0, len(reqLines))
	for _, line := range reqLines {
		id, err := snowflake.ParseString(strings.TrimSpace(line.ItemID))
		if err != nil {
			return nil, itemdomain.ErrInvalidID
		}
		parsed = append(parsed, id)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	items, err := s.itemSvc.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]itemdomain.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	lines := make([]domain.SaleLine, 0, len(reqLines))
	for i, line := range reqLines {
		item, ok := byID[parsed[i]]
		if !ok {
			return nil, itemdomain.ErrNotFound
		}
		if item.Discontinued() {
			return nil, itemdomain.ErrItemDiscontinued
		}
		lines = append(lines, domain.SaleLine{
			ItemID:    item.ID,
			UnitPrice: item.UnitPrice,
			Quantity:  line.Quantity,
		})
	}
	return lines, nil
}

// discountRate picks the explicit override when one was sent, otherwise
// the membership policy rate for the sale's subtotal.
func (s *Service) discountRate(override *float64, customer *customerdomain.Customer, lines []domain.SaleLine) (float64, error) {
	if override != nil {
		if *override < 0 || *override >= 1 {
			return 0, domain.ErrInvalidDiscountRate
		}
		return *override, nil
	}

	_, subtotal, err := domain.LineAmounts(lines)
	if err != nil {
		return 0, err
	}

	var code *int
	if customer != nil {
		code = &customer.MembershipTypeCode
	}
	return s.membershipSvc.Policy().RateFor(code, subtotal), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.SaleRecord, error) {
	saleID, err := parseID(id)
	if err != nil {
		return domain.SaleRecord{}, domain.ErrInvalidID
	}

	sale, err := s.repo.FindByID(ctx, s.db, saleID)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	if sale == nil {
		return domain.SaleRecord{}, domain.ErrNotFound
	}
	return s.toRecord(ctx, sale)
}

func (s *Service) List(ctx context.Context, req domain.ListSaleRequest) (domain.ListSaleResponse, error) {
	filter := domain.ListSaleFilter{
		SoldFrom: req.SoldFrom,
		SoldTo:   req.SoldTo,
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		customerID, err := parseID(req.CustomerID)
		if err != nil {
			return domain.ListSaleResponse{}, customerdomain.ErrInvalidID
		}
		filter.CustomerID = &customerID
	}

	page := pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  req.PageSize,
	}

	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListSaleResponse{}, err
	}

	pageSize := page.Limit()
	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(sale *domain.Sale) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        sale.ID.String(),
			CreatedAt: sale.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	sales := make([]domain.Sale, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		sales = append(sales, *item)
	}

	resp := domain.ListSaleResponse{Sales: sales}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	saleID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.repo.FindByID(ctx, tx, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.ErrNotFound
		}
		return s.repo.Delete(ctx, tx, saleID)
	})
	if err != nil {
		return err
	}

	s.log.Info("sale deleted", zap.String("sale_id", saleID.String()))
	return nil
}

func (s *Service) Receipt(ctx context.Context, id string) ([]byte, error) {
	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(record.Details))
	for _, detail := range record.Details {
		ids = append(ids, detail.ItemID)
	}
	items, err := s.itemSvc.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(items))
	for _, item := range items {
		names[item.ID] = item.Name
	}

	data := pdf.ReceiptData{
		ReceiptNumber:        record.ReceiptNumber,
		SoldAt:               record.SoldAt,
		Subtotal:             record.Subtotal,
		DiscountRate:         record.DiscountRate,
		DiscountAmount:       record.DiscountAmount,
		TaxableAmount:        record.TaxableAmount,
		ConsumptionTaxRate:   record.ConsumptionTaxRate,
		ConsumptionTaxAmount: record.ConsumptionTaxAmount,
		Total:                record.Total,
	}
	if record.CustomerID != nil {
		customer, err := s.customerSvc.GetByID(ctx, record.CustomerID.String())
		if err != nil && !errors.Is(err, customerdomain.ErrNotFound) {
			return nil, err
		}
		if err == nil {
			data.CustomerName = customer.Name
		}
	}
	for _, detail := range record.Details {
		line := pdf.ReceiptLine{
			Name:     names[detail.ItemID],
			Quantity: detail.Quantity,
			Amount:   detail.Amount,
		}
		if detail.Quantity > 0 {
			line.UnitPrice = detail.Amount / detail.Quantity
		}
		data.Lines = append(data.Lines, line)
	}

	doc, err := s.renderer.RenderReceipt(ctx, data)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordReceiptRendered(ctx)
	}
	return doc, nil
}

func (s *Service) toRecord(ctx context.Context, sale *domain.Sale) (domain.SaleRecord, error) {
	details, err := s.repo.FindDetails(ctx, s.db, sale.ID)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	return domain.SaleRecord{Sale: *sale, Details: details}, nil
}

func (s *Service) reject(ctx context.Context, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordSaleRejection(ctx, rejectionReason(err))
}

// rejectionReason keeps the metric label bounded: sentinel errors map
// to their snake_case text, everything else to a fixed bucket.
func rejectionReason(err error) string {
	var violation *domain.InvariantViolation
	if errors.As(err, &violation) {
		return "invariant_violation"
	}
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrZeroLineAmount),
		errors.Is(err, domain.ErrEmptySale),
		errors.Is(err, domain.ErrNegativeTaxableAmount),
		errors.Is(err, domain.ErrInvalidDiscountRate),
		errors.Is(err, domain.ErrDuplicateLineItem),
		errors.Is(err, itemdomain.ErrNotFound),
		errors.Is(err, itemdomain.ErrItemDiscontinued),
		errors.Is(err, itemdomain.ErrInvalidID),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrInvalidID),
		errors.Is(err, taxdomain.ErrNoApplicableTaxRate),
		errors.Is(err, taxdomain.ErrAmbiguousTaxRate):
		return err.Error()
	default:
		return "other"
	}
}

func memberKind(customer *customerdomain.Customer) string {
	if customer == nil {
		return "anonymous"
	}
	switch customer.MembershipTypeCode {
	case membershipdomain.CodeGeneral:
		return "general"
	case membershipdomain.CodeSpecial:
		return "special"
	default:
		return "member"
	}
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
