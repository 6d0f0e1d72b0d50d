// Package importer parses product spreadsheets uploaded for bulk insertion.
package importer

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"kasirku/backend/internal/domain"
)

var ErrNoSheet = errors.New("workbook has no sheets")

// Header aliases accepted for each product field. Spreadsheets exported from
// different tools disagree on casing and language, so all variants map to
// the same column.
var (
	namaAliases  = []string{"nama", "Nama", "name", "Name"}
	hargaAliases = []string{"harga", "Harga", "price", "Price"}
	stokAliases  = []string{"stok", "Stok", "stock", "Stock"}
)

// Parse reads the first sheet of an xlsx workbook into import rows. The
// first row is treated as the header; unknown columns are ignored and a
// missing column or an unparseable number yields the zero value.
func Parse(data []byte) ([]domain.ImportRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return []domain.ImportRow{}, nil
	}

	header := rows[0]
	namaCol := resolveColumn(header, namaAliases)
	hargaCol := resolveColumn(header, hargaAliases)
	stokCol := resolveColumn(header, stokAliases)

	result := make([]domain.ImportRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		result = append(result, domain.ImportRow{
			Nama:  cellAt(row, namaCol),
			Harga: parseHarga(cellAt(row, hargaCol)),
			Stok:  parseStok(cellAt(row, stokCol)),
		})
	}

	return result, nil
}

// resolveColumn returns the index of the first header cell matching any
// alias, or -1 when the column is absent.
func resolveColumn(header []string, aliases []string) int {
	for i, cell := range header {
		trimmed := strings.TrimSpace(cell)
		for _, alias := range aliases {
			if trimmed == alias {
				return i
			}
		}
	}
	return -1
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func parseHarga(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	harga, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return harga
}

func parseStok(raw string) int {
	if raw == "" {
		return 0
	}
	stok, err := strconv.Atoi(raw)
	if err != nil {
		// Spreadsheets often store counts as "12.0"; take the integer part.
		if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			return int(f)
		}
		return 0
	}
	return stok
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
