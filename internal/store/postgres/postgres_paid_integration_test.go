package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kasirku/backend/internal/domain"
)

func TestLedgerEntryMarksInvoicePaid(t *testing.T) {
	databaseURL := os.Getenv("KASIRKU_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set KASIRKU_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	userID := fmt.Sprintf("user-paid-it-%d", stamp)
	tanggal := time.Now().Format(domain.TanggalLayout)

	invoice, err := s.CreateInvoice(ctx, domain.Invoice{
		UserID:       userID,
		BranchID:     "cabang-it",
		NomorInvoice: fmt.Sprintf("INV-IT-%d", stamp),
		Tanggal:      tanggal,
		Pelanggan:    "Pelanggan Integrasi",
		Nominal:      decimal.NewFromInt(25000),
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transaksi WHERE user_id = $1`, userID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM invoice WHERE id = $1`, invoice.ID)
	})

	paid, err := s.ListPaidInvoiceIDs(ctx, userID)
	if err != nil {
		t.Fatalf("list paid ids: %v", err)
	}
	if _, ok := paid[invoice.ID]; ok {
		t.Fatalf("invoice must start unpaid")
	}

	if _, err := s.CreateLedgerEntry(ctx, domain.LedgerEntry{
		UserID:     userID,
		BranchID:   "cabang-it",
		Tanggal:    tanggal,
		Keterangan: "Pembayaran " + invoice.NomorInvoice,
		Kategori:   domain.KategoriPenjualan,
		Jenis:      domain.JenisDebet,
		Nominal:    invoice.Nominal,
		InvoiceID:  invoice.ID,
	}); err != nil {
		t.Fatalf("create ledger entry: %v", err)
	}

	paid, err = s.ListPaidInvoiceIDs(ctx, userID)
	if err != nil {
		t.Fatalf("list paid ids after payment: %v", err)
	}
	if _, ok := paid[invoice.ID]; !ok {
		t.Fatalf("expected invoice %s in paid set", invoice.ID)
	}
}

func TestDecrementStockIntegration(t *testing.T) {
	databaseURL := os.Getenv("KASIRKU_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set KASIRKU_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	product, err := s.CreateProduct(ctx, domain.Product{
		UserID: fmt.Sprintf("user-stok-it-%d", time.Now().UnixNano()),
		Nama:   "Produk Stok IT",
		Harga:  decimal.NewFromInt(5000),
		Stok:   10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	})

	if err := s.DecrementStock(ctx, product.ID, 4); err != nil {
		t.Fatalf("decrement stock: %v", err)
	}

	after, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stok != 6 {
		t.Fatalf("expected stok 6, got %d", after.Stok)
	}
}
