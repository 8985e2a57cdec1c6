// Package export writes per-run spreadsheets of newly discovered products.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

const SheetName = "Products"

var Header = []string{
	"Country_Name", "Company_Name", "Product_Name", "Product_URL", "Image_URL",
	"Category", "Currency", "Price", "Description", "Product_Weight",
	"Metal_Type", "Metal_Colour", "Metal_Purity", "Metal_Weight",
	"Diamond_Colour", "Diamond_Clarity", "Diamond_Pieces", "Diamond_Weight",
	"Flag", "Count", "Run_Date",
}

type XLSXWriter struct {
	dir    string
	logger *slog.Logger
}

func NewXLSXWriter(dir string, logger *slog.Logger) *XLSXWriter {
	return &XLSXWriter{dir: dir, logger: logger.With("component", "export")}
}

// FileName is {company}_{YYYY-MM-DD}.xlsx with path separators removed.
func FileName(company string, runDate time.Time) string {
	safe := strings.NewReplacer("/", "-", `\`, "-").Replace(company)
	return fmt.Sprintf("%s_%s.xlsx", safe, runDate.Format(time.DateOnly))
}

func (w *XLSXWriter) Export(ctx context.Context, company string, runDate time.Time, rows []*models.ProductRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		values := Row(rec)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	out := filepath.Join(w.dir, FileName(company, runDate))
	if err := f.SaveAs(out); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", out, err)
	}

	w.logger.Info("export written", "path", out, "rows", len(rows))
	return out, nil
}

// Row renders a record in Header order. Nulls become empty cells.
func Row(rec *models.ProductRecord) []interface{} {
	return []interface{}{
		rec.Country,
		rec.Company,
		rec.Name,
		rec.URL,
		rec.ImageRef,
		rec.Category,
		str(rec.Currency),
		num(rec.Price),
		str(rec.Description),
		num(rec.ProductWeight),
		string(rec.Metal.Type),
		str(rec.Metal.Colour),
		integer(rec.Metal.Purity),
		num(rec.Metal.Weight),
		str(rec.Gemstone.Colour),
		str(rec.Gemstone.Clarity),
		integer(rec.Gemstone.Pieces),
		num(rec.Gemstone.Weight),
		string(rec.Flag),
		rec.SeenCount,
		rec.RunDate.Format(time.DateOnly),
	}
}

func str(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func integer(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func num(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	f, _ := d.Decimal.Float64()
	return f
}
