// Package pdf renders printable sale receipts.
package pdf

import (
	"context"
	"time"
)

// ReceiptLine is one printed line on a receipt.
type ReceiptLine struct {
	Name      string
	Quantity  int64
	UnitPrice int64
	Amount    int64
}

// ReceiptData carries everything the renderer prints. Amounts are in
// the smallest currency unit; formatting is the renderer's concern.
type ReceiptData struct {
	ReceiptNumber string
	SoldAt        time.Time
	CustomerName  string
	Lines         []ReceiptLine

	Subtotal             int64
	DiscountRate         float64
	DiscountAmount       int64
	TaxableAmount        int64
	ConsumptionTaxRate   float64
	ConsumptionTaxAmount int64
	Total                int64
}

type Renderer interface {
	RenderReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

// NoOpRenderer satisfies Renderer without producing a document. Handy
// in tests that only care about the orchestration around rendering.
type NoOpRenderer struct{}

func (NoOpRenderer) RenderReceipt(ctx context.Context, data ReceiptData) ([]byte, error) {
	return nil, nil
}
