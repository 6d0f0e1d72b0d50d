// Package invoicepdf renders a printable A4 representation of an invoice.
package invoicepdf

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"kasirku/backend/internal/domain"
)

var (
	colorPrimary = &props.Color{Red: 16, Green: 94, Blue: 74}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// Render produces the PDF bytes for an invoice and its items. The status on
// the invoice is expected to already be derived from the ledger.
func Render(invoice domain.Invoice, items []domain.InvoiceItem) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Invoice "+invoice.NomorInvoice, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(invoice))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	for _, r := range itemRows(items) {
		m.AddRows(r)
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(invoice))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("invoicepdf: generate: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(invoice domain.Invoice) core.Row {
	return row.New(20).Add(
		col.New(7).Add(
			text.New("INVOICE", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(invoice.NomorInvoice, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 8,
			}),
			text.New("Pelanggan: "+invoice.Pelanggan, props.Text{
				Size: 9, Top: 14, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("Tanggal: "+invoice.Tanggal, props.Text{
				Size: 9, Align: align.Right, Top: 1, Color: colorGray,
			}),
			text.New("Status: "+invoice.Status, props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 8,
				Color: colorPrimary,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Nama Item", 6, align.Left),
		h("Jumlah", 1, align.Center),
		h("Harga Satuan", 2, align.Right),
		h("Subtotal", 3, align.Right),
	)
}

func itemRows(items []domain.InvoiceItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, item := range items {
		result = append(result, row.New(7).Add(
			col.New(6).Add(text.New(
				item.NamaItem,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(1).Add(text.New(
				fmt.Sprintf("%d", item.Jumlah),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				"Rp "+formatRupiah(item.HargaSatuan.StringFixed(0)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(3).Add(text.New(
				"Rp "+formatRupiah(item.Subtotal.StringFixed(0)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

func totalRow(invoice domain.Invoice) core.Row {
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New("TOTAL", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Top: 2, Right: 2,
		})),
		col.New(3).Add(text.New("Rp "+formatRupiah(invoice.Nominal.StringFixed(0)), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Top: 2, Right: 1,
		})),
	)
}

// formatRupiah inserts thousands separators into a plain digit string, e.g.
// "25000" becomes "25.000".
func formatRupiah(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
