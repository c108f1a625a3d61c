package pdf

import (
	"context"
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type marotoRenderer struct{}

// New returns the maroto-backed receipt renderer.
func New() Renderer {
	return &marotoRenderer{}
}

func (r *marotoRenderer) RenderReceipt(ctx context.Context, data ReceiptData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(12, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	meta := col.New(12).Add(
		text.New("Receipt number: "+data.ReceiptNumber, props.Text{Top: 0}),
		text.New("Sold at: "+data.SoldAt.Format("2006-01-02 15:04:05 MST"), props.Text{Top: 4}),
	)
	if data.CustomerName != "" {
		meta.Add(text.New("Customer: "+data.CustomerName, props.Text{Top: 8}))
	}
	m.AddRow(20, meta)

	m.AddRow(10,
		text.NewCol(6, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, line := range data.Lines {
		m.AddRow(8,
			text.NewCol(6, line.Name, props.Text{Size: 9}),
			text.NewCol(2, strconv.FormatInt(line.Quantity, 10), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, formatAmount(line.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, formatAmount(line.Amount), props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := []struct {
		label string
		value string
	}{
		{"Subtotal", formatAmount(data.Subtotal)},
		{"Discount (" + formatRate(data.DiscountRate) + ")", "-" + formatAmount(data.DiscountAmount)},
		{"Taxable amount", formatAmount(data.TaxableAmount)},
		{"Consumption tax (" + formatRate(data.ConsumptionTaxRate) + ")", formatAmount(data.ConsumptionTaxAmount)},
	}
	for _, row := range totals {
		m.AddRow(8,
			col.New(6),
			text.NewCol(4, row.label, props.Text{Size: 9}),
			text.NewCol(2, row.value, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(6),
		text.NewCol(4, "Total", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(2, formatAmount(data.Total), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate receipt: %w", err)
	}
	return doc.GetBytes(), nil
}

func formatAmount(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', -1, 64) + "%"
}
