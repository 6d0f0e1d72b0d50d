package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"kasirku/backend/internal/domain"
	"kasirku/backend/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	invoicesByID    map[string]domain.Invoice
	invoiceItems    map[string][]domain.InvoiceItem
	posTransactions []domain.PosTransaction
	ledgerEntries   []domain.LedgerEntry
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_KASIR_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning. These credentials are never used in production (the backend uses
// PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	kasirPwd := envOr("SEED_KASIR_PASSWORD", "kasir123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_KASIR_PASSWORD") == "" {
		log.Warn().Msg("memory store: using default dev credentials, set SEED_ADMIN_PASSWORD and SEED_KASIR_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
		branchID string
	}{
		{"admin", adminPwd, "admin", "cabang-pusat"},
		{"kasir", kasirPwd, "kasir", ""},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("memory store: hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			BranchID:  u.branchID,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		invoicesByID:    make(map[string]domain.Invoice),
		invoiceItems:    make(map[string][]domain.InvoiceItem),
		posTransactions: make([]domain.PosTransaction, 0, 32),
		ledgerEntries:   make([]domain.LedgerEntry, 0, 64),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	now := time.Now().UTC()
	seed := []struct {
		nama  string
		harga int64
		stok  int
	}{
		{"Mie Goreng Instan", 3500, 120},
		{"Telur 10 Butir", 26500, 40},
		{"Susu UHT 1L", 18900, 60},
		{"Roti Tawar", 17800, 25},
		{"Kopi Sachet", 2600, 200},
		{"Gula 1kg", 17400, 80},
		{"Teh Celup", 9800, 90},
		{"Air Mineral 600ml", 3900, 150},
	}
	for i, p := range seed {
		id := uuid.NewString()
		s.products[id] = domain.Product{
			ID:        id,
			UserID:    "admin",
			BranchID:  "cabang-pusat",
			Nama:      p.nama,
			Harga:     decimal.NewFromInt(p.harga),
			Stok:      p.stok,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Nama == "" || product.Harga.IsNegative() || product.Stok < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidInput
	}

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Nama == "" || product.Harga.IsNegative() || product.Stok < 0 {
		return nil, store.ErrInvalidInput
	}
	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	product.UserID = existing.UserID
	product.BranchID = existing.BranchID
	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) AddStock(_ context.Context, id string, jumlah int) (*domain.Product, error) {
	if jumlah < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Stok += jumlah
	s.products[id] = product
	updated := product
	return &updated, nil
}

// DecrementStock mirrors the read-modify-write the checkout performs per
// line. The result may go negative under concurrent checkouts; last write
// wins and nothing reconciles afterwards.
func (s *Store) DecrementStock(_ context.Context, id string, jumlah int) error {
	if jumlah < 1 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return store.ErrNotFound
	}
	product.Stok -= jumlah
	s.products[id] = product
	return nil
}

func (s *Store) BulkInsertProducts(_ context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for i := range products {
		if products[i].ID == "" {
			products[i].ID = uuid.NewString()
		}
		if products[i].CreatedAt.IsZero() {
			products[i].CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		if _, exists := s.products[products[i].ID]; exists {
			return 0, store.ErrInvalidInput
		}
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return len(products), nil
}

func (s *Store) CreateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if invoice.UserID == "" || invoice.NomorInvoice == "" || invoice.Pelanggan == "" {
		return nil, store.ErrInvalidInput
	}
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	if invoice.Tanggal == "" {
		invoice.Tanggal = time.Now().Format(domain.TanggalLayout)
	}
	if invoice.Status == "" {
		invoice.Status = domain.StatusBelumLunas
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.invoicesByID[invoice.ID]; exists {
		return nil, store.ErrInvalidInput
	}

	s.invoicesByID[invoice.ID] = invoice
	created := invoice
	return &created, nil
}

func (s *Store) GetInvoiceByID(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, exists := s.invoicesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyInvoice := invoice
	return &copyInvoice, nil
}

func (s *Store) ListInvoices(_ context.Context, userID string, tanggal string) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoices := make([]domain.Invoice, 0, len(s.invoicesByID))
	for _, inv := range s.invoicesByID {
		if inv.UserID != userID {
			continue
		}
		if tanggal != "" && inv.Tanggal != tanggal {
			continue
		}
		invoices = append(invoices, inv)
	}

	slices.SortFunc(invoices, func(a, b domain.Invoice) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	return invoices, nil
}

func (s *Store) CreateInvoiceItems(_ context.Context, items []domain.InvoiceItem) error {
	if len(items) == 0 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range items {
		if items[i].InvoiceID == "" || items[i].Jumlah < 1 {
			return store.ErrInvalidInput
		}
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
	}
	for _, item := range items {
		s.invoiceItems[item.InvoiceID] = append(s.invoiceItems[item.InvoiceID], item)
	}
	return nil
}

func (s *Store) ListInvoiceItems(_ context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.invoiceItems[invoiceID]
	result := make([]domain.InvoiceItem, len(items))
	copy(result, items)
	return result, nil
}

func (s *Store) CreatePosTransaction(_ context.Context, tx domain.PosTransaction) (*domain.PosTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.BranchID == "" || tx.KodePos == "" {
		return nil, store.ErrInvalidInput
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	s.posTransactions = append(s.posTransactions, tx)
	created := tx
	return &created, nil
}

func (s *Store) CreateLedgerEntry(_ context.Context, entry domain.LedgerEntry) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.UserID == "" || entry.Keterangan == "" {
		return nil, store.ErrInvalidInput
	}
	if entry.Jenis != domain.JenisDebet && entry.Jenis != domain.JenisKredit {
		return nil, store.ErrInvalidInput
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Tanggal == "" {
		entry.Tanggal = time.Now().Format(domain.TanggalLayout)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.ledgerEntries = append(s.ledgerEntries, entry)
	created := entry
	return &created, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, userID string, tanggal string) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.LedgerEntry, 0, len(s.ledgerEntries))
	for _, entry := range s.ledgerEntries {
		if entry.UserID != userID {
			continue
		}
		if tanggal != "" && entry.Tanggal != tanggal {
			continue
		}
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b domain.LedgerEntry) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	return entries, nil
}

func (s *Store) ListPaidInvoiceIDs(_ context.Context, userID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paid := make(map[string]struct{})
	for _, entry := range s.ledgerEntries {
		if entry.UserID != userID || entry.InvoiceID == "" {
			continue
		}
		paid[entry.InvoiceID] = struct{}{}
	}
	return paid, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// PosTransactionCount reports how many pos_transaksi rows were written.
// Test helper; not part of the Repository interface.
func (s *Store) PosTransactionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posTransactions)
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
