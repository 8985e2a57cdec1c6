package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

const productColumns = `
	source_site, product_url, country, company, product_name, image_url,
	category, description, currency, price, product_weight,
	metal_type, metal_colour, metal_purity, metal_weight,
	diamond_colour, diamond_clarity, diamond_pieces, diamond_weight,
	converted_prices, flag, seen_count, run_date`

// ProductFilter narrows a product listing. Zero values mean no filter.
type ProductFilter struct {
	Site   string
	Flag   models.Flag
	Limit  int
	Offset int
}

// SiteSummary counts a site's rows by flag.
type SiteSummary struct {
	SourceSite string `json:"source_site"`
	Company    string `json:"company"`
	New        int64  `json:"new"`
	Existing   int64  `json:"existing"`
	Deleted    int64  `json:"deleted"`
}

type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// LoadExisting returns every stored row of a site regardless of flag.
func (r *ProductRepository) LoadExisting(ctx context.Context, site string) ([]*models.ProductRecord, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE source_site = $1 ORDER BY product_url`, site)
	if err != nil {
		return nil, fmt.Errorf("failed to load products for %s: %w", site, err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// List pages through stored rows, newest run first.
func (r *ProductRepository) List(ctx context.Context, filter ProductFilter) ([]*models.ProductRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Site != "" {
		args = append(args, filter.Site)
		where = append(where, fmt.Sprintf("source_site = $%d", len(args)))
	}
	if filter.Flag != "" {
		args = append(args, string(filter.Flag))
		where = append(where, fmt.Sprintf("flag = $%d", len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, max(filter.Offset, 0))
	query += fmt.Sprintf(" ORDER BY run_date DESC, product_url LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r *ProductRepository) Summaries(ctx context.Context) ([]SiteSummary, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT source_site, MAX(company),
			COUNT(*) FILTER (WHERE flag = 'New'),
			COUNT(*) FILTER (WHERE flag = 'Existing'),
			COUNT(*) FILTER (WHERE flag = 'Deleted')
		FROM products
		GROUP BY source_site
		ORDER BY source_site`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise products: %w", err)
	}
	defer rows.Close()

	var out []SiteSummary
	for rows.Next() {
		var s SiteSummary
		if err := rows.Scan(&s.SourceSite, &s.Company, &s.New, &s.Existing, &s.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}
	return out, nil
}

// ApplyWithTx writes a run's mutations in one batch inside tx.
func (r *ProductRepository) ApplyWithTx(ctx context.Context, tx pgx.Tx, mutations []models.Mutation) error {
	if len(mutations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range mutations {
		if m.Record == nil {
			return fmt.Errorf("%s mutation without record", m.Kind)
		}
		if err := queueMutation(batch, m); err != nil {
			return err
		}
	}

	results := tx.SendBatch(ctx, batch)
	for i := range mutations {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to apply %s of %s: %w",
				mutations[i].Kind, mutations[i].Record.URL, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}
	return nil
}

func queueMutation(batch *pgx.Batch, m models.Mutation) error {
	rec := m.Record
	switch m.Kind {
	case models.MutationInsert:
		converted, err := marshalConverted(rec.ConvertedPrices)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO products (`+productColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
				$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
			ON CONFLICT (source_site, product_url) DO UPDATE SET
				country = EXCLUDED.country,
				company = EXCLUDED.company,
				product_name = EXCLUDED.product_name,
				image_url = EXCLUDED.image_url,
				category = EXCLUDED.category,
				description = EXCLUDED.description,
				currency = EXCLUDED.currency,
				price = EXCLUDED.price,
				product_weight = EXCLUDED.product_weight,
				metal_type = EXCLUDED.metal_type,
				metal_colour = EXCLUDED.metal_colour,
				metal_purity = EXCLUDED.metal_purity,
				metal_weight = EXCLUDED.metal_weight,
				diamond_colour = EXCLUDED.diamond_colour,
				diamond_clarity = EXCLUDED.diamond_clarity,
				diamond_pieces = EXCLUDED.diamond_pieces,
				diamond_weight = EXCLUDED.diamond_weight,
				converted_prices = EXCLUDED.converted_prices,
				flag = EXCLUDED.flag,
				seen_count = EXCLUDED.seen_count,
				run_date = EXCLUDED.run_date,
				updated_at = now()`,
			rec.SourceSite, rec.URL, rec.Country, rec.Company, rec.Name, rec.ImageRef,
			rec.Category, rec.Description, rec.Currency, rec.Price, rec.ProductWeight,
			string(rec.Metal.Type), rec.Metal.Colour, rec.Metal.Purity, rec.Metal.Weight,
			rec.Gemstone.Colour, rec.Gemstone.Clarity, rec.Gemstone.Pieces, rec.Gemstone.Weight,
			converted, string(rec.Flag), rec.SeenCount, rec.RunDate,
		)
	case models.MutationReseen:
		batch.Queue(`
			UPDATE products
			SET flag = $3, seen_count = $4, run_date = $5, updated_at = now()
			WHERE source_site = $1 AND product_url = $2`,
			rec.SourceSite, rec.URL, string(rec.Flag), rec.SeenCount, rec.RunDate)
	case models.MutationDelete:
		batch.Queue(`
			UPDATE products
			SET flag = $3, updated_at = now()
			WHERE source_site = $1 AND product_url = $2`,
			rec.SourceSite, rec.URL, string(models.FlagDeleted))
	default:
		return fmt.Errorf("unknown mutation kind %q", m.Kind)
	}
	return nil
}

func marshalConverted(prices map[string]decimal.Decimal) ([]byte, error) {
	if len(prices) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(prices)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal converted prices: %w", err)
	}
	return b, nil
}

func collectProducts(rows pgx.Rows) ([]*models.ProductRecord, error) {
	var out []*models.ProductRecord
	for rows.Next() {
		rec, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return out, nil
}

func scanProduct(row pgx.Row) (*models.ProductRecord, error) {
	var (
		rec       models.ProductRecord
		metalType string
		flag      string
		converted []byte
	)
	err := row.Scan(
		&rec.SourceSite, &rec.URL, &rec.Country, &rec.Company, &rec.Name, &rec.ImageRef,
		&rec.Category, &rec.Description, &rec.Currency, &rec.Price, &rec.ProductWeight,
		&metalType, &rec.Metal.Colour, &rec.Metal.Purity, &rec.Metal.Weight,
		&rec.Gemstone.Colour, &rec.Gemstone.Clarity, &rec.Gemstone.Pieces, &rec.Gemstone.Weight,
		&converted, &flag, &rec.SeenCount, &rec.RunDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	rec.Metal.Type = models.MetalType(metalType)
	rec.Flag = models.Flag(flag)
	if len(converted) > 0 {
		if err := json.Unmarshal(converted, &rec.ConvertedPrices); err != nil {
			return nil, fmt.Errorf("failed to decode converted prices of %s: %w", rec.URL, err)
		}
	}
	return &rec, nil
}
