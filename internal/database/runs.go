package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

const runColumns = `id, source_site, run_date, started_at, finished_at, status,
	candidates, created, reseen, deleted, skipped`

type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// InsertWithTx stores the run history row. A missing ID is generated.
func (r *RunRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, run *models.ScrapeRun) error {
	id := uuid.New()
	if run.ID != "" {
		parsed, err := uuid.Parse(run.ID)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", run.ID, err)
		}
		id = parsed
	}
	run.ID = id.String()

	_, err := tx.Exec(ctx, `
		INSERT INTO scrape_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, run.SourceSite, run.RunDate, run.StartedAt, run.FinishedAt, string(run.Status),
		run.Candidates, run.Created, run.Reseen, run.Deleted, run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scrape run: %w", err)
	}
	return nil
}

// List returns the most recent runs of a site.
func (r *RunRepository) List(ctx context.Context, site string, limit int) ([]*models.ScrapeRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT `+runColumns+` FROM scrape_runs
		WHERE source_site = $1
		ORDER BY started_at DESC
		LIMIT $2`, site, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ScrapeRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

func (r *RunRepository) Get(ctx context.Context, id string) (*models.ScrapeRun, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}

	row := r.db.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM scrape_runs WHERE id = $1`, parsed)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

func scanRun(row pgx.Row) (*models.ScrapeRun, error) {
	var (
		run    models.ScrapeRun
		id     uuid.UUID
		status string
	)
	err := row.Scan(&id, &run.SourceSite, &run.RunDate, &run.StartedAt, &run.FinishedAt, &status,
		&run.Candidates, &run.Created, &run.Reseen, &run.Deleted, &run.Skipped)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.ID = id.String()
	run.Status = models.RunStatus(status)
	return &run, nil
}
