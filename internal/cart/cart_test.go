package cart

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"kasirku/backend/internal/domain"
)

func produk(id, nama string, harga int64, stok int) domain.Product {
	return domain.Product{ID: id, Nama: nama, Harga: decimal.NewFromInt(harga), Stok: stok}
}

func TestAddNewLineStartsAtOne(t *testing.T) {
	c := New()
	if err := c.Add(produk("p1", "Kopi Sachet", 2500, 10)); err != nil {
		t.Fatalf("add: %v", err)
	}
	lines := c.Lines()
	if len(lines) != 1 || lines[0].Qty != 1 {
		t.Fatalf("expected single line qty 1, got %+v", lines)
	}
}

func TestAddExistingLineIncrements(t *testing.T) {
	c := New()
	p := produk("p1", "Kopi Sachet", 2500, 3)
	for i := 0; i < 3; i++ {
		if err := c.Add(p); err != nil {
			t.Fatalf("add %d: %v", i+1, err)
		}
	}
	if got := c.Lines()[0].Qty; got != 3 {
		t.Fatalf("expected qty 3, got %d", got)
	}
}

func TestAddBeyondStockRejected(t *testing.T) {
	c := New()
	p := produk("p1", "Gula 1kg", 17000, 2)
	_ = c.Add(p)
	_ = c.Add(p)

	err := c.Add(p)
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 2 {
		t.Fatalf("expected available 2, got %d", insufficient.Available)
	}
	if got := c.Lines()[0].Qty; got != 2 {
		t.Fatalf("rejected add must not change qty, got %d", got)
	}
}

func TestAddOutOfStockProduct(t *testing.T) {
	c := New()
	if err := c.Add(produk("p1", "Teh Celup", 9500, 0)); !errors.Is(err, ErrStockEmpty) {
		t.Fatalf("expected ErrStockEmpty, got %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart after rejected add")
	}
}

func TestChangeQuantityValidatesAgainstCurrentStock(t *testing.T) {
	c := New()
	p := produk("p1", "Roti Tawar", 15000, 10)
	_ = c.Add(p)

	// Stock shrank to 2 since the line was added; +5 must be rejected.
	err := c.ChangeQuantity("p1", 5, 2)
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if got := c.Lines()[0].Qty; got != 1 {
		t.Fatalf("rejected change must be a no-op, got qty %d", got)
	}

	if err := c.ChangeQuantity("p1", 1, 2); err != nil {
		t.Fatalf("change within stock: %v", err)
	}
	if got := c.Lines()[0].Qty; got != 2 {
		t.Fatalf("expected qty 2, got %d", got)
	}
}

func TestChangeQuantityBelowOneIsIgnored(t *testing.T) {
	c := New()
	_ = c.Add(produk("p1", "Roti Tawar", 15000, 10))

	if err := c.ChangeQuantity("p1", -1, 10); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if got := c.Lines()[0].Qty; got != 1 {
		t.Fatalf("quantity must stay at 1, got %d", got)
	}
}

func TestChangeQuantityUnknownProductIsNoop(t *testing.T) {
	c := New()
	_ = c.Add(produk("p1", "Roti Tawar", 15000, 10))
	if err := c.ChangeQuantity("missing", 3, 10); err != nil {
		t.Fatalf("unknown product must be a silent no-op, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	c := New()
	_ = c.Add(produk("p1", "Roti Tawar", 15000, 10))
	_ = c.Add(produk("p2", "Susu UHT", 18000, 10))

	c.Remove("p1")
	lines := c.Lines()
	if len(lines) != 1 || lines[0].ProductID != "p2" {
		t.Fatalf("expected only p2 to remain, got %+v", lines)
	}

	c.Remove("p2")
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
}

func TestTotal(t *testing.T) {
	c := New()
	if !c.Total().IsZero() {
		t.Fatalf("empty cart must total zero")
	}

	p1 := produk("p1", "Kopi Sachet", 2500, 10)
	p2 := produk("p2", "Gula 1kg", 17000, 10)
	_ = c.Add(p1)
	_ = c.Add(p1)
	_ = c.Add(p2)

	want := decimal.NewFromInt(2*2500 + 17000)
	if !c.Total().Equal(want) {
		t.Fatalf("expected total %s, got %s", want, c.Total())
	}
}

func TestLinesPreserveInsertionOrder(t *testing.T) {
	c := New()
	_ = c.Add(produk("p2", "B", 1000, 5))
	_ = c.Add(produk("p1", "A", 1000, 5))
	_ = c.Add(produk("p3", "C", 1000, 5))

	lines := c.Lines()
	if lines[0].ProductID != "p2" || lines[1].ProductID != "p1" || lines[2].ProductID != "p3" {
		t.Fatalf("expected insertion order p2,p1,p3; got %+v", lines)
	}
}
