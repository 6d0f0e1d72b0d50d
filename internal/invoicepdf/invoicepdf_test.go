package invoicepdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kasirku/backend/internal/domain"
)

func TestRenderProducesPDF(t *testing.T) {
	invoice := domain.Invoice{
		ID:           "inv-1",
		UserID:       "admin",
		NomorInvoice: "INV-12345",
		Tanggal:      "2026-08-28",
		Pelanggan:    "Budi Santoso",
		Nominal:      decimal.NewFromInt(22100),
		Status:       domain.StatusBelumLunas,
		CreatedAt:    time.Now().UTC(),
	}
	items := []domain.InvoiceItem{
		{ID: "it-1", InvoiceID: "inv-1", NamaItem: "Kopi Sachet", Jumlah: 2, HargaSatuan: decimal.NewFromInt(2600), Subtotal: decimal.NewFromInt(5200)},
		{ID: "it-2", InvoiceID: "inv-1", NamaItem: "Susu UHT 1L", Jumlah: 1, HargaSatuan: decimal.NewFromInt(16900), Subtotal: decimal.NewFromInt(16900)},
	}

	pdf, err := Render(invoice, items)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatalf("expected non-empty pdf bytes")
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected pdf header, got %q", pdf[:min(8, len(pdf))])
	}
}

func TestRenderEmptyItemList(t *testing.T) {
	invoice := domain.Invoice{
		NomorInvoice: "INV-67890",
		Tanggal:      "2026-08-28",
		Pelanggan:    "Siti",
		Nominal:      decimal.Zero,
		Status:       domain.StatusLunas,
	}

	pdf, err := Render(invoice, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected pdf header")
	}
}

func TestFormatRupiah(t *testing.T) {
	cases := map[string]string{
		"0":       "0",
		"950":     "950",
		"2600":    "2.600",
		"25000":   "25.000",
		"1000000": "1.000.000",
	}
	for in, want := range cases {
		if got := formatRupiah(in); got != want {
			t.Fatalf("formatRupiah(%q) = %q, want %q", in, got, want)
		}
	}
}
