package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	BranchID  string          `json:"branch_id,omitempty"`
	Nama      string          `json:"nama"`
	Harga     decimal.Decimal `json:"harga"`
	Stok      int             `json:"stok"`
	CreatedAt time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	Nama  string          `json:"nama" validate:"required"`
	Harga decimal.Decimal `json:"harga"`
	Stok  int             `json:"stok" validate:"min=0"`
}

type ProductUpdateRequest struct {
	Nama  *string          `json:"nama,omitempty"`
	Harga *decimal.Decimal `json:"harga,omitempty"`
	Stok  *int             `json:"stok,omitempty"`
}

type ProductDeleteRequest struct {
	ManagerPIN string `json:"manager_pin"`
}

type AddStockRequest struct {
	Jumlah int `json:"jumlah" validate:"required,gt=0"`
}

// CartLine is a product snapshot plus quantity. It only lives inside a
// checkout session and is never persisted as such; the JSON form is what
// ends up in pos_transaksi.sumber.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Nama      string          `json:"nama"`
	Harga     decimal.Decimal `json:"harga"`
	Qty       int             `json:"qty"`
}

type CheckoutItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
}

type CheckoutRequest struct {
	Pelanggan string         `json:"pelanggan"`
	Items     []CheckoutItem `json:"items"`
}

type CheckoutResponse struct {
	InvoiceID      string          `json:"invoice_id"`
	NomorInvoice   string          `json:"nomor_invoice"`
	KodePos        string          `json:"kode_pos,omitempty"`
	Tanggal        string          `json:"tanggal"`
	Pelanggan      string          `json:"pelanggan"`
	Nominal        decimal.Decimal `json:"nominal"`
	Items          []InvoiceItem   `json:"items"`
	LedgerRecorded bool            `json:"ledger_recorded"`
}

type Invoice struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	BranchID     string          `json:"branch_id,omitempty"`
	NomorInvoice string          `json:"nomor_invoice"`
	Tanggal      string          `json:"tanggal"`
	Pelanggan    string          `json:"pelanggan"`
	Nominal      decimal.Decimal `json:"nominal"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type InvoiceItem struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoice_id"`
	NamaItem    string          `json:"nama_item"`
	Jumlah      int             `json:"jumlah"`
	HargaSatuan decimal.Decimal `json:"harga_satuan"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type InvoiceDetail struct {
	Invoice Invoice       `json:"invoice"`
	Items   []InvoiceItem `json:"items"`
}

// LedgerEntry is a row in the transaksi ledger. An entry whose InvoiceID is
// set marks that invoice as paid; there is no authoritative paid flag on the
// invoice itself.
type LedgerEntry struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	BranchID   string          `json:"branch_id"`
	Tanggal    string          `json:"tanggal"`
	Keterangan string          `json:"keterangan"`
	Kategori   string          `json:"kategori"`
	Jenis      string          `json:"jenis"`
	Nominal    decimal.Decimal `json:"nominal"`
	InvoiceID  string          `json:"invoice_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type LedgerEntryRequest struct {
	Tanggal    string          `json:"tanggal"`
	Keterangan string          `json:"keterangan" validate:"required"`
	Kategori   string          `json:"kategori" validate:"required"`
	Jenis      string          `json:"jenis" validate:"required,oneof=Debet Kredit"`
	Nominal    decimal.Decimal `json:"nominal"`
	InvoiceID  string          `json:"invoice_id,omitempty"`
}

// PosTransaction is the write-once audit record of a branch checkout.
// Sumber holds the cart snapshot as JSON.
type PosTransaction struct {
	ID        string          `json:"id"`
	BranchID  string          `json:"branch_id"`
	KodePos   string          `json:"kode_pos"`
	Tanggal   string          `json:"tanggal"`
	Total     decimal.Decimal `json:"total"`
	Sumber    string          `json:"sumber"`
	CreatedAt time.Time       `json:"created_at"`
}

type ImportRow struct {
	Nama  string
	Harga decimal.Decimal
	Stok  int
}

type ImportResult struct {
	Inserted int `json:"inserted"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	BranchID    string `json:"branch_id,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
	BranchID string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	BranchID string `json:"branch_id,omitempty"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	BranchID  string    `json:"branch_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	BranchID  string
	Active    bool
	CreatedAt time.Time
}

const (
	StatusLunas      = "Lunas"
	StatusBelumLunas = "Belum Lunas"
)

const (
	JenisDebet  = "Debet"
	JenisKredit = "Kredit"
)

const KategoriPenjualan = "Penjualan"

const TanggalLayout = "2006-01-02"
