package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes a single-sheet xlsx with the given rows and returns
// the raw file bytes.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseLowercaseHeaders(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"nama", "harga", "stok"},
		{"Kopi Sachet", 2500, 100},
		{"Gula 1kg", "17500.50", 40},
	})

	rows, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "Kopi Sachet", rows[0].Nama)
	require.True(t, rows[0].Harga.Equal(decimal.NewFromInt(2500)), "harga %s", rows[0].Harga)
	require.Equal(t, 100, rows[0].Stok)

	require.Equal(t, "Gula 1kg", rows[1].Nama)
	require.True(t, rows[1].Harga.Equal(decimal.RequireFromString("17500.50")), "harga %s", rows[1].Harga)
	require.Equal(t, 40, rows[1].Stok)
}

func TestParseEnglishTitlecaseHeaders(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Name", "Price", "Stock"},
		{"Teh Celup", 9800, 12},
	})

	rows, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Teh Celup", rows[0].Nama)
	require.True(t, rows[0].Harga.Equal(decimal.NewFromInt(9800)))
	require.Equal(t, 12, rows[0].Stok)
}

func TestParseMixedAliasHeaders(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Nama", "price", "Stok"},
		{"Roti Tawar", 17800, 25},
	})

	rows, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Roti Tawar", rows[0].Nama)
	require.True(t, rows[0].Harga.Equal(decimal.NewFromInt(17800)))
	require.Equal(t, 25, rows[0].Stok)
}

func TestParseDefaultsOnMissingAndInvalid(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"nama", "harga"},
		{"Produk Tanpa Stok", "bukan-angka"},
	})

	rows, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Produk Tanpa Stok", rows[0].Nama)
	require.True(t, rows[0].Harga.IsZero())
	require.Equal(t, 0, rows[0].Stok)
}

func TestParseSkipsBlankRows(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"nama", "harga", "stok"},
		{"Air Mineral 600ml", 3900, 150},
		{"", "", ""},
		{"Mie Goreng Instan", 3500, 120},
	})

	rows, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Air Mineral 600ml", rows[0].Nama)
	require.Equal(t, "Mie Goreng Instan", rows[1].Nama)
}

func TestParseHeaderOnlySheet(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"nama", "harga", "stok"},
	})

	rows, err := Parse(data)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not an xlsx file"))
	require.Error(t, err)
}
