package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regi/internal/cache"
	"github.com/smallbiznis/regi/internal/clock"
	"github.com/smallbiznis/regi/internal/config"
	customerdomain "github.com/smallbiznis/regi/internal/customer/domain"
	customerrepo "github.com/smallbiznis/regi/internal/customer/repository"
	customersvc "github.com/smallbiznis/regi/internal/customer/service"
	itemdomain "github.com/smallbiznis/regi/internal/item/domain"
	itemrepo "github.com/smallbiznis/regi/internal/item/repository"
	itemsvc "github.com/smallbiznis/regi/internal/item/service"
	"github.com/smallbiznis/regi/internal/lock"
	membershipdomain "github.com/smallbiznis/regi/internal/membership/domain"
	membershiprepo "github.com/smallbiznis/regi/internal/membership/repository"
	membershipsvc "github.com/smallbiznis/regi/internal/membership/service"
	"github.com/smallbiznis/regi/internal/providers/pdf"
	"github.com/smallbiznis/regi/internal/sale/domain"
	"github.com/smallbiznis/regi/internal/sale/repository"
	taxdomain "github.com/smallbiznis/regi/internal/taxrate/domain"
	taxrepo "github.com/smallbiznis/regi/internal/taxrate/repository"
	taxsvc "github.com/smallbiznis/regi/internal/taxrate/service"
	"github.com/smallbiznis/regi/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type saleTestEnv struct {
	db          *gorm.DB
	node        *snowflake.Node
	clk         *clock.FakeClock
	svc         domain.Service
	itemSvc     itemdomain.Service
	customerSvc customerdomain.Service
}

func setupSaleService(t *testing.T) *saleTestEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&membershipdomain.MembershipType{},
		&itemdomain.Item{},
		&customerdomain.Customer{},
		&taxdomain.TaxRate{},
		&domain.Sale{},
		&domain.SaleDetail{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	seedMembershipTypes(t, dbConn)
	seedTaxWindows(t, dbConn, node)

	holder := config.StaticPricingConfigHolder(config.DefaultPricingConfig())
	membershipSvc := membershipsvc.New(membershipsvc.Params{
		DB: dbConn, Log: log, Pricing: holder, Repo: membershiprepo.Provide(),
	})
	itemSvc := itemsvc.New(itemsvc.Params{
		DB: dbConn, Log: log, GenID: node, Clock: clk, Repo: itemrepo.Provide(),
	})
	customerSvc := customersvc.New(customersvc.Params{
		DB: dbConn, Log: log, GenID: node, Clock: clk,
		Repo: customerrepo.Provide(), MembershipSvc: membershipSvc,
	})
	taxSvc := taxsvc.New(taxsvc.Params{
		DB: dbConn, Log: log, GenID: node, Clock: clk,
		Repo:  taxrepo.Provide(),
		Cache: cache.NewMemoryTaxScheduleCache(),
		Guard: lock.NewScheduleGuard(config.Config{}),
	})

	svc := New(Params{
		DB: dbConn, Log: log, GenID: node, Clock: clk,
		Repo:          repository.Provide(),
		ItemSvc:       itemSvc,
		CustomerSvc:   customerSvc,
		MembershipSvc: membershipSvc,
		TaxSvc:        taxSvc,
		Renderer:      pdf.NoOpRenderer{},
	})

	return &saleTestEnv{
		db:          dbConn,
		node:        node,
		clk:         clk,
		svc:         svc,
		itemSvc:     itemSvc,
		customerSvc: customerSvc,
	}
}

func seedMembershipTypes(t *testing.T, dbConn *gorm.DB) {
	t.Helper()
	now := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, mt := range []membershipdomain.MembershipType{
		{Code: membershipdomain.CodeGeneral, Name: "general", CreatedAt: now},
		{Code: membershipdomain.CodeSpecial, Name: "special", CreatedAt: now},
	} {
		if err := dbConn.Create(&mt).Error; err != nil {
			t.Fatalf("seed membership type %d: %v", mt.Code, err)
		}
	}
}

func seedTaxWindows(t *testing.T, dbConn *gorm.DB, node *snowflake.Node) {
	t.Helper()
	now := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	windows := []taxdomain.TaxRate{
		{BeginAt: taxdomain.MinBegin, EndAt: time.Date(2014, time.April, 1, 0, 0, 0, 0, time.UTC), Rate: 0.05},
		{BeginAt: time.Date(2014, time.April, 1, 0, 0, 0, 0, time.UTC), EndAt: time.Date(2019, time.October, 1, 0, 0, 0, 0, time.UTC), Rate: 0.08},
		{BeginAt: time.Date(2019, time.October, 1, 0, 0, 0, 0, time.UTC), EndAt: taxdomain.MaxEnd, Rate: 0.10},
	}
	for i := range windows {
		windows[i].ID = node.Generate()
		windows[i].CreatedAt = now
		if err := dbConn.Create(&windows[i]).Error; err != nil {
			t.Fatalf("seed tax window: %v", err)
		}
	}
}

func createItem(t *testing.T, env *saleTestEnv, name string, unitPrice int64) itemdomain.Item {
	t.Helper()
	item, err := env.itemSvc.Create(context.Background(), itemdomain.CreateItemRequest{
		Name: name, UnitPrice: unitPrice,
	})
	if err != nil {
		t.Fatalf("create item %q: %v", name, err)
	}
	return item
}

func createCustomer(t *testing.T, env *saleTestEnv, name string, membershipCode int) customerdomain.Customer {
	t.Helper()
	customer, err := env.customerSvc.Create(context.Background(), customerdomain.CreateCustomerRequest{
		Name: name, MembershipCode: membershipCode,
	})
	if err != nil {
		t.Fatalf("create customer %q: %v", name, err)
	}
	return customer
}

func countRows(t *testing.T, dbConn *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	if err := dbConn.Table(table).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestRecordSaleGeneralMemberAtThreshold(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Bath Towel", 1000)
	customer := createCustomer(t, env, "Sato", membershipdomain.CodeGeneral)

	record, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: customer.ID.String(),
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 3},
		},
		Metadata: map[string]any{"register": "3"},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if record.Subtotal != 3000 {
		t.Fatalf("expected subtotal 3000, got %d", record.Subtotal)
	}
	if record.DiscountRate != 0.10 {
		t.Fatalf("expected discount rate 0.10, got %v", record.DiscountRate)
	}
	if record.DiscountAmount != 300 {
		t.Fatalf("expected discount 300, got %d", record.DiscountAmount)
	}
	if record.TaxableAmount != 2700 {
		t.Fatalf("expected taxable 2700, got %d", record.TaxableAmount)
	}
	if record.ConsumptionTaxRate != 0.10 {
		t.Fatalf("expected tax rate 0.10, got %v", record.ConsumptionTaxRate)
	}
	if record.ConsumptionTaxAmount != 270 {
		t.Fatalf("expected tax 270, got %d", record.ConsumptionTaxAmount)
	}
	if record.Total != 2970 {
		t.Fatalf("expected total 2970, got %d", record.Total)
	}
	if record.ReceiptNumber == "" {
		t.Fatal("expected a receipt number")
	}
	if len(record.Details) != 1 || record.Details[0].Amount != 3000 {
		t.Fatalf("unexpected details: %+v", record.Details)
	}

	stored, err := env.svc.GetByID(ctx, record.ID.String())
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if stored.Total != 2970 || len(stored.Details) != 1 {
		t.Fatalf("stored sale does not match: %+v", stored)
	}
	if stored.Metadata["register"] != "3" {
		t.Fatalf("expected metadata to round-trip, got %+v", stored.Metadata)
	}
}

func TestRecordSaleGeneralMemberBelowThreshold(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Hand Towel", 2999)
	customer := createCustomer(t, env, "Suzuki", membershipdomain.CodeGeneral)

	record, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: customer.ID.String(),
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if record.DiscountRate != 0.05 {
		t.Fatalf("expected below-threshold rate 0.05, got %v", record.DiscountRate)
	}
	// 2999 * 0.05 = 149.95 rounds to 150
	if record.DiscountAmount != 150 {
		t.Fatalf("expected discount 150, got %d", record.DiscountAmount)
	}
	if record.TaxableAmount != 2849 {
		t.Fatalf("expected taxable 2849, got %d", record.TaxableAmount)
	}
	// 2849 * 0.10 = 284.9 rounds to 285
	if record.ConsumptionTaxAmount != 285 {
		t.Fatalf("expected tax 285, got %d", record.ConsumptionTaxAmount)
	}
	if record.Total != 3134 {
		t.Fatalf("expected total 3134, got %d", record.Total)
	}
}

func TestRecordSaleSpecialMemberRate(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Duvet", 3000)
	customer := createCustomer(t, env, "Tanaka", membershipdomain.CodeSpecial)

	record, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: customer.ID.String(),
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if record.DiscountRate != 0.20 {
		t.Fatalf("expected special rate 0.20, got %v", record.DiscountRate)
	}
	if record.DiscountAmount != 600 {
		t.Fatalf("expected discount 600, got %d", record.DiscountAmount)
	}
}

func TestRecordSaleAnonymousNoDiscount(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Pillow", 5000)

	record, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if record.CustomerID != nil {
		t.Fatalf("expected anonymous sale, got customer %v", record.CustomerID)
	}
	if record.DiscountRate != 0 || record.DiscountAmount != 0 {
		t.Fatalf("expected no discount, got rate %v amount %d", record.DiscountRate, record.DiscountAmount)
	}
	if record.Total != 5500 {
		t.Fatalf("expected total 5500, got %d", record.Total)
	}
}

func TestRecordSaleDiscountOverride(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Soap", 100)
	customer := createCustomer(t, env, "Watanabe", membershipdomain.CodeGeneral)
	override := 0.125

	record, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID:   customer.ID.String(),
		DiscountRate: &override,
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if record.DiscountRate != 0.125 {
		t.Fatalf("expected override rate 0.125, got %v", record.DiscountRate)
	}
	// 100 * 0.125 = 12.5, a tie, rounds to even 12
	if record.DiscountAmount != 12 {
		t.Fatalf("expected discount 12, got %d", record.DiscountAmount)
	}

	bad := 1.0
	_, err = env.svc.Record(ctx, domain.RecordSaleRequest{
		DiscountRate: &bad,
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 1},
		},
	})
	if !errors.Is(err, domain.ErrInvalidDiscountRate) {
		t.Fatalf("expected invalid_discount_rate, got %v", err)
	}
}

func TestRecordSaleIdempotencyKeyReplays(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Blanket", 4000)
	req := domain.RecordSaleRequest{
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 2},
		},
		IdempotencyKey: "pos-7-000123",
	}

	first, err := env.svc.Record(ctx, req)
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	second, err := env.svc.Record(ctx, req)
	if err != nil {
		t.Fatalf("replay sale: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected replay to return sale %v, got %v", first.ID, second.ID)
	}
	if first.ReceiptNumber != second.ReceiptNumber {
		t.Fatalf("expected one receipt, got %q and %q", first.ReceiptNumber, second.ReceiptNumber)
	}
	if n := countRows(t, env.db, "sales"); n != 1 {
		t.Fatalf("expected 1 sale row, got %d", n)
	}
}

func TestRecordSaleRejectsUnknownAndDiscontinuedItems(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	_, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		Lines: []domain.SaleLineRequest{
			{ItemID: env.node.Generate().String(), Quantity: 1},
		},
	})
	if !errors.Is(err, itemdomain.ErrNotFound) {
		t.Fatalf("expected item_not_found, got %v", err)
	}

	item := createItem(t, env, "Retired Towel", 800)
	if _, err := env.itemSvc.Discontinue(ctx, item.ID.String()); err != nil {
		t.Fatalf("discontinue: %v", err)
	}
	_, err = env.svc.Record(ctx, domain.RecordSaleRequest{
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 1},
		},
	})
	if !errors.Is(err, itemdomain.ErrItemDiscontinued) {
		t.Fatalf("expected item_discontinued, got %v", err)
	}
}

func TestRecordSaleConsolidatesDuplicateLines(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Slippers", 500)

	record, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 1},
			{ItemID: item.ID.String(), Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if len(record.Details) != 1 {
		t.Fatalf("expected one consolidated line, got %d", len(record.Details))
	}
	if record.Details[0].Quantity != 3 || record.Details[0].Amount != 1500 {
		t.Fatalf("unexpected consolidated line: %+v", record.Details[0])
	}

	_, err = env.svc.Record(ctx, domain.RecordSaleRequest{
		RejectDuplicates: true,
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 1},
			{ItemID: item.ID.String(), Quantity: 2},
		},
	})
	if !errors.Is(err, domain.ErrDuplicateLineItem) {
		t.Fatalf("expected duplicate_line_item, got %v", err)
	}
}

func TestRecordSaleAmbiguousScheduleFails(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	overlap := taxdomain.TaxRate{
		ID:        env.node.Generate(),
		BeginAt:   time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndAt:     taxdomain.MaxEnd.Add(-time.Hour),
		Rate:      0.12,
		CreatedAt: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := env.db.Create(&overlap).Error; err != nil {
		t.Fatalf("seed overlapping window: %v", err)
	}

	item := createItem(t, env, "Bucket", 300)
	_, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 1},
		},
	})
	if !errors.Is(err, taxdomain.ErrAmbiguousTaxRate) {
		t.Fatalf("expected ambiguous_tax_rate, got %v", err)
	}
}

func TestDeleteSaleRemovesLines(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Broom", 700)
	record, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if err := env.svc.Delete(ctx, record.ID.String()); err != nil {
		t.Fatalf("delete sale: %v", err)
	}
	if _, err := env.svc.GetByID(ctx, record.ID.String()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected sale_not_found, got %v", err)
	}
	if n := countRows(t, env.db, "sale_details"); n != 0 {
		t.Fatalf("expected no detail rows, got %d", n)
	}
}

func TestListSalesFiltersByCustomer(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Mug", 400)
	alice := createCustomer(t, env, "Alice", membershipdomain.CodeGeneral)
	bob := createCustomer(t, env, "Bob", membershipdomain.CodeGeneral)

	for _, customer := range []customerdomain.Customer{alice, bob, bob} {
		env.clk.Advance(time.Second)
		_, err := env.svc.Record(ctx, domain.RecordSaleRequest{
			CustomerID: customer.ID.String(),
			Lines: []domain.SaleLineRequest{
				{ItemID: item.ID.String(), Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("record sale: %v", err)
		}
	}

	resp, err := env.svc.List(ctx, domain.ListSaleRequest{CustomerID: bob.ID.String()})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(resp.Sales) != 2 {
		t.Fatalf("expected 2 sales for bob, got %d", len(resp.Sales))
	}
	for _, sale := range resp.Sales {
		if sale.CustomerID == nil || *sale.CustomerID != bob.ID {
			t.Fatalf("unexpected sale in filter result: %+v", sale)
		}
	}
}

func TestListSalesFiltersBySoldRange(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Kettle", 2500)
	soldTimes := []time.Time{
		time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC),
	}
	for _, at := range soldTimes {
		at := at
		env.clk.Advance(time.Second)
		_, err := env.svc.Record(ctx, domain.RecordSaleRequest{
			SoldAt: &at,
			Lines: []domain.SaleLineRequest{
				{ItemID: item.ID.String(), Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("record sale: %v", err)
		}
	}

	from := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
	resp, err := env.svc.List(ctx, domain.ListSaleRequest{SoldFrom: &from, SoldTo: &to})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(resp.Sales) != 1 {
		t.Fatalf("expected 1 sale in range, got %d", len(resp.Sales))
	}
	if !resp.Sales[0].SoldAt.Equal(soldTimes[1]) {
		t.Fatalf("unexpected sale in range: %v", resp.Sales[0].SoldAt)
	}
}

func TestReceiptRendersForStoredSale(t *testing.T) {
	env := setupSaleService(t)
	ctx := context.Background()

	item := createItem(t, env, "Tray", 900)
	record, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		Lines: []domain.SaleLineRequest{
			{ItemID: item.ID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if _, err := env.svc.Receipt(ctx, record.ID.String()); err != nil {
		t.Fatalf("render receipt: %v", err)
	}
	if _, err := env.svc.Receipt(ctx, env.node.Generate().String()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected sale_not_found, got %v", err)
	}
}
