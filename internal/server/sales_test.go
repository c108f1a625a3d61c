package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	saledomain "github.com/smallbiznis/regi/internal/sale/domain"
	taxdomain "github.com/smallbiznis/regi/internal/taxrate/domain"
)

type fakeSaleService struct {
	recordCalls int
	lastRecord  saledomain.RecordSaleRequest
	recordErr   error
	record      saledomain.SaleRecord

	getErr  error
	receipt []byte
}

func (f *fakeSaleService) Record(_ context.Context, req saledomain.RecordSaleRequest) (saledomain.SaleRecord, error) {
	f.recordCalls++
	f.lastRecord = req
	if f.recordErr != nil {
		return saledomain.SaleRecord{}, f.recordErr
	}
	return f.record, nil
}

func (f *fakeSaleService) GetByID(context.Context, string) (saledomain.SaleRecord, error) {
	if f.getErr != nil {
		return saledomain.SaleRecord{}, f.getErr
	}
	return f.record, nil
}

func (f *fakeSaleService) List(context.Context, saledomain.ListSaleRequest) (saledomain.ListSaleResponse, error) {
	return saledomain.ListSaleResponse{}, nil
}

func (f *fakeSaleService) Delete(context.Context, string) error {
	return nil
}

func (f *fakeSaleService) Receipt(context.Context, string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.receipt, nil
}

func newSaleRouter(svc saledomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	srv := &Server{saleSvc: svc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/sales", srv.RecordSale)
	router.GET("/v1/sales/:id", srv.GetSaleByID)
	router.GET("/v1/sales/:id/receipt", srv.RenderSaleReceipt)
	return router
}

func decodeErrorResponse(t *testing.T, body *bytes.Buffer) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestRecordSaleHandlerThreadsIdempotencyKey(t *testing.T) {
	svc := &fakeSaleService{
		record: saledomain.SaleRecord{
			Sale: saledomain.Sale{ID: snowflake.ID(42), ReceiptNumber: "R-1", Total: 2970},
		},
	}
	router := newSaleRouter(svc)

	body := `{"customer_id":"1001","lines":[{"item_id":"2002","quantity":3}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sales", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "reg-3-000017")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.recordCalls != 1 {
		t.Fatalf("expected one record call, got %d", svc.recordCalls)
	}
	if svc.lastRecord.IdempotencyKey != "reg-3-000017" {
		t.Fatalf("expected idempotency key from header, got %q", svc.lastRecord.IdempotencyKey)
	}
	if len(svc.lastRecord.Lines) != 1 || svc.lastRecord.Lines[0].ItemID != "2002" || svc.lastRecord.Lines[0].Quantity != 3 {
		t.Fatalf("unexpected lines passed to service: %+v", svc.lastRecord.Lines)
	}
	if svc.lastRecord.CustomerID != "1001" {
		t.Fatalf("expected customer id 1001, got %q", svc.lastRecord.CustomerID)
	}
}

func TestRecordSaleHandlerRejectsMalformedBody(t *testing.T) {
	svc := &fakeSaleService{}
	router := newSaleRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/sales", bytes.NewBufferString(`{"lines":`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if svc.recordCalls != 0 {
		t.Fatal("expected record service not to be called on malformed body")
	}
}

func TestRecordSaleHandlerMapsValidationError(t *testing.T) {
	svc := &fakeSaleService{recordErr: saledomain.ErrInvalidDiscountRate}
	router := newSaleRouter(svc)

	body := `{"lines":[{"item_id":"2002","quantity":1}],"discount_rate":1.5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sales", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	payload := decodeErrorResponse(t, resp.Body)
	if payload.Error.Type != "validation_error" {
		t.Fatalf("expected validation_error, got %q", payload.Error.Type)
	}
	if len(payload.Error.Errors) != 1 || payload.Error.Errors[0].Code != "invalid_discount_rate" {
		t.Fatalf("unexpected error detail: %+v", payload.Error.Errors)
	}
	if payload.Error.Errors[0].Field != "discount_rate" {
		t.Fatalf("expected field discount_rate, got %q", payload.Error.Errors[0].Field)
	}
}

func TestRecordSaleHandlerMapsDuplicateLineConflict(t *testing.T) {
	svc := &fakeSaleService{recordErr: saledomain.ErrDuplicateLineItem}
	router := newSaleRouter(svc)

	body := `{"lines":[{"item_id":"2002","quantity":1},{"item_id":"2002","quantity":2}],"reject_duplicates":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sales", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestRecordSaleHandlerMapsScheduleFaultToInternal(t *testing.T) {
	svc := &fakeSaleService{recordErr: taxdomain.ErrAmbiguousTaxRate}
	router := newSaleRouter(svc)

	body := `{"lines":[{"item_id":"2002","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sales", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
	payload := decodeErrorResponse(t, resp.Body)
	if payload.Error.Type != "internal_error" {
		t.Fatalf("expected internal_error, got %q", payload.Error.Type)
	}
}

func TestRecordSaleHandlerMapsInvariantViolationToInternal(t *testing.T) {
	svc := &fakeSaleService{recordErr: &saledomain.InvariantViolation{Field: "total", Value: int64(-1)}}
	router := newSaleRouter(svc)

	body := `{"lines":[{"item_id":"2002","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sales", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}

func TestGetSaleHandlerMapsNotFound(t *testing.T) {
	svc := &fakeSaleService{getErr: saledomain.ErrNotFound}
	router := newSaleRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/sales/12345", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestSaleReceiptHandlerServesPDF(t *testing.T) {
	svc := &fakeSaleService{receipt: []byte("%PDF-1.7 fake")}
	router := newSaleRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/sales/12345/receipt", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", got)
	}
	if !bytes.Equal(resp.Body.Bytes(), svc.receipt) {
		t.Fatal("expected receipt bytes to round-trip")
	}
}
