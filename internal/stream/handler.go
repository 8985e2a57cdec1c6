package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/maltedev/jewelry-catalog-scraper/internal/events"
)

// LogHandler writes one structured line per lifecycle event.
type LogHandler struct {
	logger *slog.Logger
}

func NewLogHandler(logger *slog.Logger) *LogHandler {
	return &LogHandler{logger: logger.With("component", "catalog_events")}
}

func (h *LogHandler) Handle(ctx context.Context, event Event) error {
	var p events.ProductEventPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}

	attrs := []any{
		"event_id", event.ID,
		"source_site", p.SourceSite,
		"company", p.Company,
		"url", p.URL,
		"run_id", p.RunID,
	}

	switch events.EventType(event.Type) {
	case events.EventProductDiscovered:
		if p.Price != nil {
			attrs = append(attrs, "price", p.Price.String())
		}
		h.logger.InfoContext(ctx, "product discovered", append(attrs, "name", p.Name, "category", p.Category)...)
	case events.EventProductRelisted:
		h.logger.InfoContext(ctx, "product relisted", append(attrs, "seen_count", p.SeenCount)...)
	case events.EventProductDelisted:
		h.logger.InfoContext(ctx, "product delisted", attrs...)
	default:
		h.logger.DebugContext(ctx, "ignoring event", "type", event.Type)
	}
	return nil
}
