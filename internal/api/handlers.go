package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/jewelry-catalog-scraper/internal/database"
	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
	"github.com/maltedev/jewelry-catalog-scraper/internal/sites"
)

const (
	maxPageSize = 500

	pendingWarnThreshold     = 1000
	deadLetterErrorThreshold = 100
)

type ProductReader interface {
	List(ctx context.Context, filter database.ProductFilter) ([]*models.ProductRecord, error)
	Summaries(ctx context.Context) ([]database.SiteSummary, error)
}

type RunReader interface {
	List(ctx context.Context, site string, limit int) ([]*models.ScrapeRun, error)
	Get(ctx context.Context, id string) (*models.ScrapeRun, error)
}

type OutboxCounter interface {
	Counts(ctx context.Context) (database.OutboxCounts, error)
}

type Handlers struct {
	products ProductReader
	runs     RunReader
	outbox   OutboxCounter
	catalog  *sites.Catalog
	logger   *slog.Logger
}

func NewHandlers(products ProductReader, runs RunReader, outbox OutboxCounter, catalog *sites.Catalog, logger *slog.Logger) *Handlers {
	return &Handlers{
		products: products,
		runs:     runs,
		outbox:   outbox,
		catalog:  catalog,
		logger:   logger.With("component", "api"),
	}
}

// SiteResponse is one configured retailer with its catalogue counts.
type SiteResponse struct {
	Key      string `json:"key"`
	Company  string `json:"company"`
	Country  string `json:"country"`
	New      int64  `json:"new"`
	Existing int64  `json:"existing"`
	Deleted  int64  `json:"deleted"`
}

type HealthResponse struct {
	Status  string                `json:"status"`
	Message string                `json:"message,omitempty"`
	Outbox  database.OutboxCounts `json:"outbox"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := h.outbox.Counts(r.Context())
	if err != nil {
		h.logger.Error("failed to count outbox", "error", err)
		h.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:  "error",
			Message: "database unavailable",
		})
		return
	}

	resp := HealthResponse{Status: "ok", Outbox: counts}
	status := http.StatusOK
	if counts.Pending > pendingWarnThreshold {
		resp.Status = "warning"
		resp.Message = "High number of pending outbox events"
	}
	if counts.DeadLetter > deadLetterErrorThreshold {
		resp.Status = "error"
		resp.Message = "High number of dead letter events"
		status = http.StatusServiceUnavailable
	}
	h.respondJSON(w, status, resp)
}

func (h *Handlers) ListSites(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.products.Summaries(r.Context())
	if err != nil {
		h.logger.Error("failed to summarise sites", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list sites")
		return
	}

	byKey := make(map[string]database.SiteSummary, len(summaries))
	for _, s := range summaries {
		byKey[s.SourceSite] = s
	}

	keys := h.catalog.Keys()
	out := make([]SiteResponse, 0, len(keys))
	for _, key := range keys {
		cfg, _ := h.catalog.Site(key)
		s := byKey[key]
		out = append(out, SiteResponse{
			Key:      key,
			Company:  cfg.Company,
			Country:  cfg.Country,
			New:      s.New,
			Existing: s.Existing,
			Deleted:  s.Deleted,
		})
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	site, ok := h.site(w, r)
	if !ok {
		return
	}

	filter := database.ProductFilter{Site: site}
	if flag := r.URL.Query().Get("flag"); flag != "" {
		filter.Flag = models.Flag(flag)
		if !filter.Flag.Valid() {
			h.respondError(w, http.StatusBadRequest, "flag must be New, Existing or Deleted")
			return
		}
	}

	var err error
	if filter.Limit, err = intParam(r, "limit", 100); err != nil || filter.Limit < 1 || filter.Limit > maxPageSize {
		h.respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}
	if filter.Offset, err = intParam(r, "offset", 0); err != nil || filter.Offset < 0 {
		h.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", "error", err, "site", site)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []*models.ProductRecord{}
	}
	h.respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	site, ok := h.site(w, r)
	if !ok {
		return
	}

	limit, err := intParam(r, "limit", 20)
	if err != nil || limit < 1 || limit > maxPageSize {
		h.respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	runs, err := h.runs.List(r.Context(), site, limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err, "site", site)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*models.ScrapeRun{}
	}
	h.respondJSON(w, http.StatusOK, runs)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := h.runs.Get(r.Context(), runID)
	if errors.Is(err, database.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", "error", err, "run_id", runID)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) site(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := chi.URLParam(r, "site")
	if _, err := h.catalog.Site(key); err != nil {
		h.respondError(w, http.StatusNotFound, "unknown site")
		return "", false
	}
	return key, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
