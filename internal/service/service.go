package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"kasirku/backend/internal/cache"
	"kasirku/backend/internal/cart"
	"kasirku/backend/internal/domain"
	"kasirku/backend/internal/importer"
	"kasirku/backend/internal/invoicepdf"
	"kasirku/backend/internal/store"
	"kasirku/backend/internal/validate"
	"kasirku/backend/internal/xid"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrCustomerNameRequired = errors.New("customer name required")
	// ErrCheckoutFailed is the single generic error surfaced when any write
	// in the checkout sequence fails; the underlying cause is only logged.
	ErrCheckoutFailed = errors.New("failed to save transaction")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	products cache.ProductCache
	cacheTTL time.Duration
}

func New(repo store.Repository, products cache.ProductCache, cacheTTL time.Duration) *Service {
	if products == nil {
		products = cache.NoopProductCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Service{
		repo:     repo,
		products: products,
		cacheTTL: cacheTTL,
	}
}

// ListProducts returns the catalog newest first, serving from the cache when
// it holds a fresh copy.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if cached, hit, err := s.products.Get(ctx); err == nil && hit {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("product cache read failed, falling back to store")
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.products.Set(ctx, products, s.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("product cache write failed")
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}
	if err := validate.Struct(req); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	req.Nama = strings.TrimSpace(req.Nama)
	if req.Nama == "" || req.Harga.IsNegative() {
		return domain.Product{}, store.ErrInvalidInput
	}

	product := domain.Product{
		ID:        uuid.NewString(),
		UserID:    actor.Username,
		BranchID:  actor.BranchID,
		Nama:      req.Nama,
		Harga:     req.Harga,
		Stok:      req.Stok,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateProducts(ctx)
	log.Info().Str("product_id", created.ID).Str("nama", created.Nama).Str("actor", actor.Username).Msg("product created")
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Nama != nil {
		nama := strings.TrimSpace(*req.Nama)
		if nama == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Nama = nama
	}
	if req.Harga != nil {
		if req.Harga.IsNegative() {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Harga = *req.Harga
	}
	if req.Stok != nil {
		if *req.Stok < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Stok = *req.Stok
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateProducts(ctx)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidInput
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.invalidateProducts(ctx)
	log.Info().Str("product_id", id).Str("actor", actor.Username).Msg("product deleted")
	return nil
}

func (s *Service) AddStock(ctx context.Context, id string, req domain.AddStockRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}
	if err := validate.Struct(req); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	updated, err := s.repo.AddStock(ctx, strings.TrimSpace(id), req.Jumlah)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateProducts(ctx)
	return *updated, nil
}

// ImportProducts parses an xlsx upload and inserts all rows as one batch
// owned by the acting user. The batch either fully succeeds or is reported
// as a single failure.
func (s *Service) ImportProducts(ctx context.Context, data []byte) (domain.ImportResult, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.ImportResult{}, fmt.Errorf("admin role required")
	}

	rows, err := importer.Parse(data)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	if len(rows) == 0 {
		return domain.ImportResult{}, fmt.Errorf("%w: no rows to import", store.ErrInvalidInput)
	}

	now := time.Now().UTC()
	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, domain.Product{
			ID:        uuid.NewString(),
			UserID:    actor.Username,
			BranchID:  actor.BranchID,
			Nama:      row.Nama,
			Harga:     row.Harga,
			Stok:      row.Stok,
			CreatedAt: now,
		})
	}

	inserted, err := s.repo.BulkInsertProducts(ctx, products)
	if err != nil {
		log.Error().Err(err).Int("rows", len(products)).Str("actor", actor.Username).Msg("bulk import failed")
		return domain.ImportResult{}, fmt.Errorf("import failed")
	}

	s.invalidateProducts(ctx)
	log.Info().Int("inserted", inserted).Str("actor", actor.Username).Msg("products imported")
	return domain.ImportResult{Inserted: inserted}, nil
}

// Checkout runs the sale sequence: invoice, invoice items, then for
// branch-assigned actors the POS audit record and its ledger entry, then the
// per-line stock writes. Only the precondition checks and the first four
// steps can fail the call; stock writes are logged and never retried.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CheckoutResponse{}, fmt.Errorf("authenticated user required")
	}

	pelanggan := strings.TrimSpace(req.Pelanggan)
	if pelanggan == "" {
		return domain.CheckoutResponse{}, ErrCustomerNameRequired
	}
	if len(req.Items) == 0 {
		return domain.CheckoutResponse{}, ErrEmptyCart
	}

	bag := cart.New()
	for _, item := range req.Items {
		if item.Qty < 1 {
			return domain.CheckoutResponse{}, store.ErrInvalidInput
		}
		product, err := s.repo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			return domain.CheckoutResponse{}, err
		}
		if err := bag.Add(*product); err != nil {
			return domain.CheckoutResponse{}, err
		}
		if item.Qty > 1 {
			if err := bag.ChangeQuantity(product.ID, item.Qty-1, product.Stok); err != nil {
				return domain.CheckoutResponse{}, err
			}
		}
	}
	if bag.IsEmpty() {
		return domain.CheckoutResponse{}, ErrEmptyCart
	}

	now := time.Now().UTC()
	tanggal := now.Format(domain.TanggalLayout)
	total := bag.Total()
	nomorInvoice := xid.New("INV")

	invoice, err := s.repo.CreateInvoice(ctx, domain.Invoice{
		ID:           uuid.NewString(),
		UserID:       actor.Username,
		BranchID:     actor.BranchID,
		NomorInvoice: nomorInvoice,
		Tanggal:      tanggal,
		Pelanggan:    pelanggan,
		Nominal:      total,
		Status:       domain.StatusBelumLunas,
		CreatedAt:    now,
	})
	if err != nil {
		log.Error().Err(err).Str("actor", actor.Username).Msg("checkout: create invoice failed")
		return domain.CheckoutResponse{}, ErrCheckoutFailed
	}

	items := make([]domain.InvoiceItem, 0, bag.Len())
	for _, line := range bag.Lines() {
		items = append(items, domain.InvoiceItem{
			ID:          uuid.NewString(),
			InvoiceID:   invoice.ID,
			NamaItem:    line.Nama,
			Jumlah:      line.Qty,
			HargaSatuan: line.Harga,
			Subtotal:    line.Harga.Mul(decimal.NewFromInt(int64(line.Qty))),
		})
	}
	if err := s.repo.CreateInvoiceItems(ctx, items); err != nil {
		// The invoice row stays behind; there is no transaction spanning the
		// checkout steps.
		log.Error().Err(err).Str("invoice_id", invoice.ID).Msg("checkout: create invoice items failed")
		return domain.CheckoutResponse{}, ErrCheckoutFailed
	}

	resp := domain.CheckoutResponse{
		InvoiceID:    invoice.ID,
		NomorInvoice: invoice.NomorInvoice,
		Tanggal:      tanggal,
		Pelanggan:    pelanggan,
		Nominal:      total,
		Items:        items,
	}

	if actor.BranchID != "" {
		kodePos := xid.New("POS")
		sumber, _ := json.Marshal(bag.Lines())

		posTx, err := s.repo.CreatePosTransaction(ctx, domain.PosTransaction{
			ID:        uuid.NewString(),
			BranchID:  actor.BranchID,
			KodePos:   kodePos,
			Tanggal:   tanggal,
			Total:     total,
			Sumber:    string(sumber),
			CreatedAt: now,
		})
		if err != nil {
			log.Error().Err(err).Str("invoice_id", invoice.ID).Msg("checkout: create pos transaction failed")
			return domain.CheckoutResponse{}, ErrCheckoutFailed
		}

		// Revenue entry for the sale itself. It does not reference the
		// invoice: the invoice only turns Lunas once a payment entry is
		// recorded against it.
		if _, err := s.repo.CreateLedgerEntry(ctx, domain.LedgerEntry{
			ID:         uuid.NewString(),
			UserID:     actor.Username,
			BranchID:   actor.BranchID,
			Tanggal:    tanggal,
			Keterangan: fmt.Sprintf("Penjualan POS - %s", posTx.KodePos),
			Kategori:   domain.KategoriPenjualan,
			Jenis:      domain.JenisDebet,
			Nominal:    total,
			CreatedAt:  now,
		}); err != nil {
			log.Error().Err(err).Str("invoice_id", invoice.ID).Str("kode_pos", posTx.KodePos).Msg("checkout: create ledger entry failed")
			return domain.CheckoutResponse{}, ErrCheckoutFailed
		}

		resp.KodePos = posTx.KodePos
		resp.LedgerRecorded = true
	}

	var wg sync.WaitGroup
	for _, line := range bag.Lines() {
		wg.Add(1)
		go func(line domain.CartLine) {
			defer wg.Done()
			if err := s.repo.DecrementStock(ctx, line.ProductID, line.Qty); err != nil {
				log.Warn().Err(err).Str("product_id", line.ProductID).Int("qty", line.Qty).Str("invoice_id", invoice.ID).Msg("checkout: stock update failed")
			}
		}(line)
	}
	wg.Wait()

	s.invalidateProducts(ctx)
	log.Info().Str("invoice_id", invoice.ID).Str("nomor_invoice", invoice.NomorInvoice).Str("kode_pos", resp.KodePos).Str("nominal", total.String()).Msg("checkout completed")
	return resp, nil
}

// ListInvoices returns the actor's invoices, optionally filtered to one
// date, with the paid status derived from the ledger on every call.
func (s *Service) ListInvoices(ctx context.Context, tanggal string) ([]domain.Invoice, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("authenticated user required")
	}
	if tanggal != "" {
		if _, err := time.Parse(domain.TanggalLayout, tanggal); err != nil {
			return nil, fmt.Errorf("%w: tanggal must be YYYY-MM-DD", store.ErrInvalidInput)
		}
	}

	invoices, err := s.repo.ListInvoices(ctx, actor.Username, tanggal)
	if err != nil {
		return nil, err
	}
	paid, err := s.repo.ListPaidInvoiceIDs(ctx, actor.Username)
	if err != nil {
		return nil, err
	}

	for i := range invoices {
		invoices[i].Status = deriveStatus(paid, invoices[i].ID)
	}
	return invoices, nil
}

func (s *Service) GetInvoiceDetail(ctx context.Context, id string) (domain.InvoiceDetail, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.InvoiceDetail{}, fmt.Errorf("authenticated user required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.InvoiceDetail{}, store.ErrInvalidInput
	}

	invoice, err := s.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	if invoice.UserID != actor.Username {
		return domain.InvoiceDetail{}, store.ErrNotFound
	}

	items, err := s.repo.ListInvoiceItems(ctx, invoice.ID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	paid, err := s.repo.ListPaidInvoiceIDs(ctx, actor.Username)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	invoice.Status = deriveStatus(paid, invoice.ID)

	return domain.InvoiceDetail{Invoice: *invoice, Items: items}, nil
}

// InvoicePDF renders the invoice as a printable document and returns the
// bytes plus a download file name.
func (s *Service) InvoicePDF(ctx context.Context, id string) ([]byte, string, error) {
	detail, err := s.GetInvoiceDetail(ctx, id)
	if err != nil {
		return nil, "", err
	}

	pdf, err := invoicepdf.Render(detail.Invoice, detail.Items)
	if err != nil {
		log.Error().Err(err).Str("invoice_id", detail.Invoice.ID).Msg("invoice pdf render failed")
		return nil, "", fmt.Errorf("failed to render invoice pdf")
	}

	return pdf, fmt.Sprintf("%s.pdf", detail.Invoice.NomorInvoice), nil
}

// RecordLedgerEntry writes a manual transaksi row. An entry carrying an
// invoice id is what flips that invoice to Lunas.
func (s *Service) RecordLedgerEntry(ctx context.Context, req domain.LedgerEntryRequest) (domain.LedgerEntry, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.LedgerEntry{}, fmt.Errorf("authenticated user required")
	}
	if actor.BranchID == "" {
		return domain.LedgerEntry{}, fmt.Errorf("branch assignment required")
	}
	if err := validate.Struct(req); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	if req.Nominal.IsNegative() {
		return domain.LedgerEntry{}, store.ErrInvalidInput
	}

	tanggal := strings.TrimSpace(req.Tanggal)
	if tanggal == "" {
		tanggal = time.Now().Format(domain.TanggalLayout)
	} else if _, err := time.Parse(domain.TanggalLayout, tanggal); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("%w: tanggal must be YYYY-MM-DD", store.ErrInvalidInput)
	}

	if req.InvoiceID != "" {
		invoice, err := s.repo.GetInvoiceByID(ctx, req.InvoiceID)
		if err != nil {
			return domain.LedgerEntry{}, err
		}
		if invoice.UserID != actor.Username {
			return domain.LedgerEntry{}, store.ErrNotFound
		}
	}

	entry, err := s.repo.CreateLedgerEntry(ctx, domain.LedgerEntry{
		ID:         uuid.NewString(),
		UserID:     actor.Username,
		BranchID:   actor.BranchID,
		Tanggal:    tanggal,
		Keterangan: strings.TrimSpace(req.Keterangan),
		Kategori:   strings.TrimSpace(req.Kategori),
		Jenis:      req.Jenis,
		Nominal:    req.Nominal,
		InvoiceID:  req.InvoiceID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	return *entry, nil
}

func (s *Service) ListLedgerEntries(ctx context.Context, tanggal string) ([]domain.LedgerEntry, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("authenticated user required")
	}
	if tanggal != "" {
		if _, err := time.Parse(domain.TanggalLayout, tanggal); err != nil {
			return nil, fmt.Errorf("%w: tanggal must be YYYY-MM-DD", store.ErrInvalidInput)
		}
	}
	return s.repo.ListLedgerEntries(ctx, actor.Username, tanggal)
}

func (s *Service) invalidateProducts(ctx context.Context) {
	if err := s.products.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("product cache invalidation failed")
	}
}

func deriveStatus(paid map[string]struct{}, invoiceID string) string {
	if _, ok := paid[invoiceID]; ok {
		return domain.StatusLunas
	}
	return domain.StatusBelumLunas
}
