// Package catalog persists scrape runs through the database repositories.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/jewelry-catalog-scraper/internal/database"
	"github.com/maltedev/jewelry-catalog-scraper/internal/events"
	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
	Ping(ctx context.Context) error
}

type ProductRepo interface {
	LoadExisting(ctx context.Context, site string) ([]*models.ProductRecord, error)
	ApplyWithTx(ctx context.Context, tx pgx.Tx, mutations []models.Mutation) error
}

type RunRepo interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, run *models.ScrapeRun) error
}

type EventPublisher interface {
	PublishWithTx(ctx context.Context, tx pgx.Tx, run *models.ScrapeRun, mutations []models.Mutation) (int, error)
}

// Store commits a run's mutations, its history row and its outbox events
// in a single transaction. Either all of them land or none do.
type Store struct {
	db       TxRunner
	products ProductRepo
	runs     RunRepo
	events   EventPublisher
	logger   *slog.Logger
}

func New(db TxRunner, products ProductRepo, runs RunRepo, publisher EventPublisher, logger *slog.Logger) *Store {
	return &Store{
		db:       db,
		products: products,
		runs:     runs,
		events:   publisher,
		logger:   logger.With("component", "catalog_store"),
	}
}

// NewFromDB wires the store to the postgres repositories.
func NewFromDB(db *database.DB, stream string, logger *slog.Logger) *Store {
	return New(db,
		database.NewProductRepository(db),
		database.NewRunRepository(db),
		events.NewPublisher(database.NewOutboxRepository(db), stream, logger),
		logger,
	)
}

func (s *Store) LoadExisting(ctx context.Context, site string) ([]*models.ProductRecord, error) {
	return s.products.LoadExisting(ctx, site)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Commit(ctx context.Context, run *models.ScrapeRun, mutations []models.Mutation) error {
	var published int
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.runs.InsertWithTx(ctx, tx, run); err != nil {
			return err
		}
		if err := s.products.ApplyWithTx(ctx, tx, mutations); err != nil {
			return err
		}
		n, err := s.events.PublishWithTx(ctx, tx, run, mutations)
		if err != nil {
			return err
		}
		published = n
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit run for %s: %w", run.SourceSite, err)
	}

	s.logger.Info("run committed",
		"run_id", run.ID,
		"source_site", run.SourceSite,
		"status", run.Status,
		"mutations", len(mutations),
		"events", published)
	return nil
}
