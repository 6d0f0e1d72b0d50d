package store

import (
	"context"
	"errors"

	"kasirku/backend/internal/domain"
)

// Stock ceilings are enforced in the cart, not here; DecrementStock has no
// floor by design.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	AddStock(ctx context.Context, id string, jumlah int) (*domain.Product, error)
	DecrementStock(ctx context.Context, id string, jumlah int) error
	BulkInsertProducts(ctx context.Context, products []domain.Product) (int, error)
	CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoiceByID(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, userID string, tanggal string) ([]domain.Invoice, error)
	CreateInvoiceItems(ctx context.Context, items []domain.InvoiceItem) error
	ListInvoiceItems(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error)
	CreatePosTransaction(ctx context.Context, tx domain.PosTransaction) (*domain.PosTransaction, error)
	CreateLedgerEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, userID string, tanggal string) ([]domain.LedgerEntry, error)
	ListPaidInvoiceIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
