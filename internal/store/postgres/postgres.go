package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kasirku/backend/internal/domain"
	"kasirku/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, branch_id, nama, harga, stok, created_at
		FROM products
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, branch_id, nama, harga, stok, created_at
		FROM products
		WHERE id = $1
	`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Nama == "" || product.Harga.IsNegative() || product.Stok < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, user_id, branch_id, nama, harga, stok, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, product.ID, product.UserID, nullIfEmpty(product.BranchID), product.Nama, product.Harga, product.Stok, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Nama == "" || product.Harga.IsNegative() || product.Stok < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET nama = $2, harga = $3, stok = $4
		WHERE id = $1
	`, product.ID, product.Nama, product.Harga, product.Stok)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddStock(ctx context.Context, id string, jumlah int) (*domain.Product, error) {
	if jumlah < 1 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stok = stok + $2
		WHERE id = $1
	`, id, jumlah)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProductByID(ctx, id)
}

// DecrementStock applies the per-line checkout write. It deliberately does
// not guard against going negative: the cart enforced the stock ceiling at
// add time and the checkout never fails on a stock write.
func (s *Store) DecrementStock(ctx context.Context, id string, jumlah int) error {
	if jumlah < 1 {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stok = stok - $2
		WHERE id = $1
	`, id, jumlah)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) BulkInsertProducts(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i := range products {
		if products[i].ID == "" {
			products[i].ID = uuid.NewString()
		}
		if products[i].CreatedAt.IsZero() {
			products[i].CreatedAt = now
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, user_id, branch_id, nama, harga, stok, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, products[i].ID, products[i].UserID, nullIfEmpty(products[i].BranchID), products[i].Nama, products[i].Harga, products[i].Stok, products[i].CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return 0, store.ErrInvalidInput
			}
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(products), nil
}

func (s *Store) CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoice (id, user_id, branch_id, nomor_invoice, tanggal, pelanggan, nominal, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, invoice.ID, invoice.UserID, nullIfEmpty(invoice.BranchID), invoice.NomorInvoice, invoice.Tanggal, invoice.Pelanggan, invoice.Nominal, invoice.Status, invoice.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := invoice
	return &created, nil
}

func (s *Store) GetInvoiceByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, branch_id, nomor_invoice, tanggal, pelanggan, nominal, status, created_at
		FROM invoice
		WHERE id = $1
	`, id)

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, userID string, tanggal string) ([]domain.Invoice, error) {
	query := `
		SELECT id, user_id, branch_id, nomor_invoice, tanggal, pelanggan, nominal, status, created_at
		FROM invoice
		WHERE user_id = $1
	`
	args := []any{userID}
	if tanggal != "" {
		query += ` AND tanggal = $2`
		args = append(args, tanggal)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, 64)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return invoices, nil
}

func (s *Store) CreateInvoiceItems(ctx context.Context, items []domain.InvoiceItem) error {
	if len(items) == 0 {
		return store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i := range items {
		if items[i].InvoiceID == "" || items[i].Jumlah < 1 {
			return store.ErrInvalidInput
		}
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_items (id, invoice_id, nama_item, jumlah, harga_satuan, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, items[i].ID, items[i].InvoiceID, items[i].NamaItem, items[i].Jumlah, items[i].HargaSatuan, items[i].Subtotal)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListInvoiceItems(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, nama_item, jumlah, harga_satuan, subtotal
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InvoiceItem, 0, 16)
	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.NamaItem, &item.Jumlah, &item.HargaSatuan, &item.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *Store) CreatePosTransaction(ctx context.Context, posTx domain.PosTransaction) (*domain.PosTransaction, error) {
	if posTx.BranchID == "" || posTx.KodePos == "" {
		return nil, store.ErrInvalidInput
	}
	if posTx.ID == "" {
		posTx.ID = uuid.NewString()
	}
	if posTx.CreatedAt.IsZero() {
		posTx.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pos_transaksi (id, branch_id, kode_pos, tanggal, total, sumber, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, posTx.ID, posTx.BranchID, posTx.KodePos, posTx.Tanggal, posTx.Total, posTx.Sumber, posTx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := posTx
	return &created, nil
}

func (s *Store) CreateLedgerEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerEntry, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transaksi (id, user_id, branch_id, tanggal, keterangan, kategori, jenis, nominal, invoice_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, entry.ID, entry.UserID, nullIfEmpty(entry.BranchID), entry.Tanggal, entry.Keterangan, entry.Kategori, entry.Jenis, entry.Nominal, nullIfEmpty(entry.InvoiceID), entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := entry
	return &created, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, userID string, tanggal string) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id, user_id, branch_id, tanggal, keterangan, kategori, jenis, nominal, invoice_id, created_at
		FROM transaksi
		WHERE user_id = $1
	`
	args := []any{userID}
	if tanggal != "" {
		query += ` AND tanggal = $2`
		args = append(args, tanggal)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, 64)
	for rows.Next() {
		var entry domain.LedgerEntry
		var branchID, invoiceID sql.NullString
		if err := rows.Scan(&entry.ID, &entry.UserID, &branchID, &entry.Tanggal, &entry.Keterangan, &entry.Kategori, &entry.Jenis, &entry.Nominal, &invoiceID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.BranchID = branchID.String
		entry.InvoiceID = invoiceID.String
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Store) ListPaidInvoiceIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT invoice_id
		FROM transaksi
		WHERE user_id = $1 AND invoice_id IS NOT NULL
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paid := make(map[string]struct{})
	for rows.Next() {
		var invoiceID string
		if err := rows.Scan(&invoiceID); err != nil {
			return nil, err
		}
		paid[invoiceID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return paid, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, branch_id, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.Username, user.Password, user.Role, nullIfEmpty(user.BranchID), user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, branch_id, active, created_at
		FROM users
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		var branchID sql.NullString
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &branchID, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.BranchID = branchID.String
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var branchID sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &branchID, &p.Nama, &p.Harga, &p.Stok, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	p.BranchID = branchID.String
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func scanInvoice(row rowScanner) (domain.Invoice, error) {
	var inv domain.Invoice
	var branchID sql.NullString
	if err := row.Scan(&inv.ID, &inv.UserID, &branchID, &inv.NomorInvoice, &inv.Tanggal, &inv.Pelanggan, &inv.Nominal, &inv.Status, &inv.CreatedAt); err != nil {
		return domain.Invoice{}, err
	}
	inv.BranchID = branchID.String
	inv.CreatedAt = inv.CreatedAt.UTC()
	return inv, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
