package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"kasirku/backend/internal/domain"
)

// ErrStockEmpty is returned when a product with zero stock is added.
var ErrStockEmpty = errors.New("stok habis")

// InsufficientStockError carries the stock ceiling that blocked a quantity
// change so callers can tell the cashier how many units remain.
type InsufficientStockError struct {
	Nama      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stok %s hanya %d", e.Nama, e.Available)
}

// Cart is an ordered, session-local collection of lines. It is built per
// checkout request and holds no locks: a cart never crosses goroutines.
type Cart struct {
	lines []domain.CartLine
}

func New() *Cart {
	return &Cart{lines: make([]domain.CartLine, 0, 8)}
}

// Add puts one unit of the product in the cart. An existing line grows by
// one only while it stays within the product's stock; a new line requires at
// least one unit in stock.
func (c *Cart) Add(product domain.Product) error {
	for i := range c.lines {
		if c.lines[i].ProductID != product.ID {
			continue
		}
		if c.lines[i].Qty+1 > product.Stok {
			return &InsufficientStockError{Nama: product.Nama, Available: product.Stok}
		}
		c.lines[i].Qty++
		return nil
	}

	if product.Stok < 1 {
		return ErrStockEmpty
	}
	c.lines = append(c.lines, domain.CartLine{
		ProductID: product.ID,
		Nama:      product.Nama,
		Harga:     product.Harga,
		Qty:       1,
	})
	return nil
}

// ChangeQuantity adjusts a line by delta, validated against currentStock
// rather than the snapshot taken when the line was added. Exceeding stock is
// a rejected no-op; a delta that would drop the quantity below one is
// silently ignored (removal is explicit via Remove).
func (c *Cart) ChangeQuantity(productID string, delta int, currentStock int) error {
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		newQty := c.lines[i].Qty + delta
		if newQty > currentStock {
			return &InsufficientStockError{Nama: c.lines[i].Nama, Available: currentStock}
		}
		if newQty > 0 {
			c.lines[i].Qty = newQty
		}
		return nil
	}
	return nil
}

func (c *Cart) Remove(productID string) {
	kept := c.lines[:0]
	for _, line := range c.lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	c.lines = kept
}

// Total sums harga times qty over all lines. An empty cart totals zero.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Harga.Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	return total
}

// Lines returns a copy in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Clear() {
	c.lines = c.lines[:0]
}
