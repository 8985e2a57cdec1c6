package export

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

var runDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func pendant() *models.ProductRecord {
	return &models.ProductRecord{
		Country:  "India",
		Company:  "PC Jeweller",
		Name:     "Heart Pendant",
		URL:      "https://www.pcjeweller.com/p/heart",
		ImageRef: "https://cdn.example/PC Jeweller/PC Jeweller_2024-03-01_1.png",
		Category: "Pendants",
		Currency: models.StringPtr("INR"),
		Price:    decimal.NewNullDecimal(decimal.RequireFromString("18999.5")),
		Metal: models.Metal{
			Type:   models.MetalGold,
			Colour: models.StringPtr("Rose"),
			Purity: models.IntPtr(18),
			Weight: decimal.NewNullDecimal(decimal.RequireFromString("2.345")),
		},
		Flag:      models.FlagNew,
		SeenCount: 1,
		RunDate:   runDate,
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Tanishq_2024-03-01.xlsx", FileName("Tanishq", runDate))
	assert.Equal(t, "A-B_2024-03-01.xlsx", FileName("A/B", runDate))
}

func TestRow(t *testing.T) {
	row := Row(pendant())
	require.Len(t, row, len(Header))

	assert.Equal(t, "Heart Pendant", row[2])
	assert.Equal(t, "INR", row[6])
	assert.Equal(t, 18999.5, row[7])
	assert.Nil(t, row[8])
	assert.Nil(t, row[9])
	assert.Equal(t, "Gold", row[10])
	assert.Equal(t, 18, row[12])
	assert.Nil(t, row[16])
	assert.Equal(t, "New", row[18])
	assert.Equal(t, 1, row[19])
	assert.Equal(t, "2024-03-01", row[20])
}

func TestXLSXWriter_Export(t *testing.T) {
	dir := t.TempDir()
	w := NewXLSXWriter(filepath.Join(dir, "out"), slog.Default())

	second := pendant()
	second.Name = "Stud Earrings"
	second.Price = decimal.NullDecimal{}

	path, err := w.Export(context.Background(), "PC Jeweller", runDate, []*models.ProductRecord{pendant(), second})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "PC Jeweller_2024-03-01.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "Heart Pendant", rows[1][2])
	assert.Equal(t, "18999.5", rows[1][7])
	assert.Equal(t, "Stud Earrings", rows[2][2])
	assert.Equal(t, "", rows[2][7])
}

func TestXLSXWriter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewXLSXWriter(t.TempDir(), slog.Default()).Export(ctx, "Orra", runDate, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
