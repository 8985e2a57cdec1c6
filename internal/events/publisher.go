// Package events turns committed catalog changes into outbox events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/maltedev/jewelry-catalog-scraper/internal/database"
	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

type EventType string

const (
	EventProductDiscovered EventType = "PRODUCT_DISCOVERED"
	EventProductDelisted   EventType = "PRODUCT_DELISTED"
	EventProductRelisted   EventType = "PRODUCT_RELISTED"

	aggregateType = "product"
	sourceName    = "scraper"
)

// ProductEventPayload is the JSON body of every product event.
type ProductEventPayload struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	Timestamp  time.Time        `json:"timestamp"`
	RunID      string           `json:"run_id"`
	RunDate    string           `json:"run_date"`
	SourceSite string           `json:"source_site"`
	Company    string           `json:"company"`
	URL        string           `json:"url"`
	Name       string           `json:"name"`
	Category   string           `json:"category,omitempty"`
	ImageRef   string           `json:"image_ref,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Currency   *string          `json:"currency,omitempty"`
	MetalType  string           `json:"metal_type,omitempty"`
	Purity     *int             `json:"purity,omitempty"`
	SeenCount  int              `json:"seen_count"`
	Source     string           `json:"source"`
}

// OutboxWriter stores an event inside an open transaction.
type OutboxWriter interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, event *database.OutboxEvent) error
}

type Publisher struct {
	outbox OutboxWriter
	stream string
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(outbox OutboxWriter, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = database.DefaultStream
	}
	return &Publisher{
		outbox: outbox,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
		now:    time.Now,
	}
}

// PublishWithTx writes one event per catalog-visible change of the run.
// Plain re-sightings produce no event.
func (p *Publisher) PublishWithTx(ctx context.Context, tx pgx.Tx, run *models.ScrapeRun, mutations []models.Mutation) (int, error) {
	events, err := p.Build(run, mutations)
	if err != nil {
		return 0, err
	}

	for _, event := range events {
		if err := p.outbox.InsertWithTx(ctx, tx, event); err != nil {
			return 0, fmt.Errorf("failed to insert %s event for %s: %w", event.EventType, event.AggregateID, err)
		}
	}

	if len(events) > 0 {
		p.logger.Info("events written to outbox",
			"run_id", run.ID,
			"source_site", run.SourceSite,
			"count", len(events))
	}
	return len(events), nil
}

// Build maps mutations to outbox events without touching the database.
func (p *Publisher) Build(run *models.ScrapeRun, mutations []models.Mutation) ([]*database.OutboxEvent, error) {
	var out []*database.OutboxEvent
	for _, m := range mutations {
		eventType, ok := eventFor(m)
		if !ok {
			continue
		}

		payload := p.payload(eventType, run, m.Record)
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event: %w", err)
		}

		out = append(out, &database.OutboxEvent{
			AggregateType: aggregateType,
			AggregateID:   m.Record.SourceSite + "|" + m.Record.URL,
			EventType:     string(eventType),
			Payload:       data,
			TargetStream:  p.stream,
		})
	}
	return out, nil
}

func eventFor(m models.Mutation) (EventType, bool) {
	switch m.Kind {
	case models.MutationInsert:
		return EventProductDiscovered, true
	case models.MutationDelete:
		return EventProductDelisted, true
	case models.MutationReseen:
		if m.Relisted() {
			return EventProductRelisted, true
		}
	}
	return "", false
}

func (p *Publisher) payload(eventType EventType, run *models.ScrapeRun, rec *models.ProductRecord) *ProductEventPayload {
	payload := &ProductEventPayload{
		EventID:    uuid.NewString(),
		EventType:  string(eventType),
		Timestamp:  p.now(),
		RunID:      run.ID,
		RunDate:    run.RunDate.Format(time.DateOnly),
		SourceSite: rec.SourceSite,
		Company:    rec.Company,
		URL:        rec.URL,
		Name:       rec.Name,
		Category:   rec.Category,
		ImageRef:   rec.ImageRef,
		Currency:   rec.Currency,
		MetalType:  string(rec.Metal.Type),
		Purity:     rec.Metal.Purity,
		SeenCount:  rec.SeenCount,
		Source:     sourceName,
	}
	if rec.Price.Valid {
		price := rec.Price.Decimal
		payload.Price = &price
	}
	return payload
}
