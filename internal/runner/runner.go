// Package runner drives one scraping run for one source site: it walks the
// candidate list, confirms known products without extraction, extracts and
// normalizes unknown ones under a bounded retry policy, and commits the
// run's unit of work at the end.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maltedev/jewelry-catalog-scraper/internal/category"
	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
	"github.com/maltedev/jewelry-catalog-scraper/internal/normalize"
	"github.com/maltedev/jewelry-catalog-scraper/internal/reconcile"
)

const TerminatedMessage = "Program terminated by the user."

type Adapter interface {
	Candidates(ctx context.Context) ([]string, error)
	Extract(ctx context.Context, url string) (*models.RawAttributes, error)
}

type Store interface {
	LoadExisting(ctx context.Context, site string) ([]*models.ProductRecord, error)
	Ping(ctx context.Context) error
	Commit(ctx context.Context, run *models.ScrapeRun, mutations []models.Mutation) error
}

// Session is the long-lived browsing resource. The runner only recycles
// it; whoever opened it closes it.
type Session interface {
	Recycle(ctx context.Context) error
}

type ImageStore interface {
	Store(ctx context.Context, src string, headers map[string]string, company, filename string) (string, error)
}

type Converter interface {
	ConvertAll(ctx context.Context, amount decimal.Decimal, from string) (map[string]decimal.Decimal, error)
}

type Exporter interface {
	Export(ctx context.Context, company string, runDate time.Time, rows []*models.ProductRecord) (string, error)
}

type Limiter interface {
	Wait(ctx context.Context) error
}

// Site describes the retailer a run belongs to.
type Site struct {
	Key          string
	Company      string
	Country      string
	Currency     string
	ImageHeaders map[string]string
}

type Options struct {
	MaxRetries   int
	RecycleEvery int
	PingEvery    int
	Now          func() time.Time
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:   3,
		RecycleEvery: 25,
		PingEvery:    5,
		Now:          time.Now,
	}
}

type Runner struct {
	site    Site
	adapter Adapter
	store   Store
	decider Decider
	opts    Options
	logger  *slog.Logger

	session   Session
	images    ImageStore
	converter Converter
	exporter  Exporter
	limiter   Limiter

	stop atomic.Bool
}

type Option func(*Runner)

func WithSession(s Session) Option       { return func(r *Runner) { r.session = s } }
func WithImageStore(s ImageStore) Option { return func(r *Runner) { r.images = s } }
func WithConverter(c Converter) Option   { return func(r *Runner) { r.converter = c } }
func WithExporter(e Exporter) Option     { return func(r *Runner) { r.exporter = e } }
func WithLimiter(l Limiter) Option       { return func(r *Runner) { r.limiter = l } }

func New(site Site, adapter Adapter, store Store, decider Decider, opts Options, logger *slog.Logger, options ...Option) *Runner {
	defaults := DefaultOptions()
	if opts.RecycleEvery < 1 {
		opts.RecycleEvery = defaults.RecycleEvery
	}
	if opts.PingEvery < 1 {
		opts.PingEvery = defaults.PingEvery
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = defaults.MaxRetries
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}
	if decider == nil {
		decider = FixedDecider(Terminate)
	}

	r := &Runner{
		site:    site,
		adapter: adapter,
		store:   store,
		decider: decider,
		opts:    opts,
		logger:  logger.With("component", "runner", "site", site.Key),
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Stop asks the run to wind down. It is checked before each identifier
// and before each extraction attempt; an extraction in flight finishes.
func (r *Runner) Stop() {
	r.stop.Store(true)
}

func (r *Runner) stopRequested(ctx context.Context) bool {
	return r.stop.Load() || ctx.Err() != nil
}

type Result struct {
	Run        *models.ScrapeRun
	Terminated bool
	ExportPath string
	Stats      reconcile.Stats
}

// ExitCode maps a run outcome to the process exit status.
func ExitCode(res *Result, err error) int {
	switch {
	case err != nil:
		return 1
	case res != nil && res.Terminated:
		return 2
	default:
		return 0
	}
}

type outcome int

const (
	outcomeMatched outcome = iota
	outcomeCreated
	outcomeSkipped
	outcomeAborted
)

// run holds the state of one Run call.
type run struct {
	rec      *reconcile.Reconciler
	runDate  time.Time
	imageNum int
	skipped  int
	// recyclePending is set while the last recycle failed; it is retried
	// before the next extraction.
	recyclePending bool
}

func (r *Runner) Run(ctx context.Context) (*Result, error) {
	started := r.opts.Now()
	runDate := time.Date(started.Year(), started.Month(), started.Day(), 0, 0, 0, 0, started.Location())

	existing, err := r.store.LoadExisting(ctx, r.site.Key)
	if err != nil {
		return nil, fmt.Errorf("load existing products: %w", err)
	}

	candidates, err := r.adapter.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	candidates = Dedupe(candidates)
	if len(candidates) == 0 {
		// An empty listing usually means the layout changed; sweeping
		// would mark the whole catalogue deleted.
		return nil, ErrNoCandidates
	}

	r.logger.Info("run started",
		"candidates", len(candidates),
		"existing", len(existing),
		"run_date", runDate.Format(time.DateOnly))

	st := &run{
		rec:     reconcile.New(r.site.Key, existing, runDate),
		runDate: runDate,
	}

	var pending []string
	terminated := false

	for i, url := range candidates {
		if r.stopRequested(ctx) {
			terminated = true
			pending = candidates[i:]
			break
		}

		if i > 0 && i%r.opts.RecycleEvery == 0 && r.session != nil {
			r.logger.Info("recycling browser session", "processed", i)
			r.recycle(ctx, st)
		}

		if i > 0 && i%r.opts.PingEvery == 0 {
			if err := r.store.Ping(ctx); err != nil {
				r.logger.Warn("store ping failed", "error", err)
			}
		}

		if r.process(ctx, st, url) == outcomeAborted {
			terminated = true
			pending = candidates[i:]
			break
		}
	}

	return r.finish(context.WithoutCancel(ctx), st, started, len(candidates), pending, terminated)
}

func (r *Runner) process(ctx context.Context, st *run, url string) outcome {
	if _, ok := st.rec.Match(url); ok {
		r.logger.Debug("matched existing product", "url", url)
		return outcomeMatched
	}

	failures := 0
	for {
		if r.stopRequested(ctx) {
			return outcomeAborted
		}

		if st.recyclePending {
			r.recycle(ctx, st)
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return outcomeAborted
			}
		}

		raw, err := r.adapter.Extract(ctx, url)
		if err == nil {
			return r.create(ctx, st, url, raw)
		}

		if r.stopRequested(ctx) {
			return outcomeAborted
		}

		if IsConnectivityError(err) {
			r.logger.Warn("connectivity lost", "url", url, "error", err)
			decision := r.decider.Decide(ctx, url, err)
			r.logger.Info("operator decision", "url", url, "decision", decision.String())
			if decision == Terminate {
				return outcomeAborted
			}
			continue
		}

		failures++
		if failures > r.opts.MaxRetries {
			r.logger.Warn("skipping product after retries",
				"url", url,
				"attempts", failures,
				"error", err)
			st.skipped++
			return outcomeSkipped
		}
		r.logger.Warn("extraction failed, retrying",
			"url", url,
			"attempt", failures,
			"max_retries", r.opts.MaxRetries,
			"error", err)
	}
}

func (r *Runner) recycle(ctx context.Context, st *run) {
	if err := r.session.Recycle(ctx); err != nil {
		st.recyclePending = true
		r.logger.Error("failed to recycle session, retrying before next extraction", "error", err)
		return
	}
	st.recyclePending = false
}

func (r *Runner) create(ctx context.Context, st *run, url string, raw *models.RawAttributes) outcome {
	rec := r.buildRecord(ctx, st, url, raw)
	if err := st.rec.Create(rec); err != nil {
		r.logger.Error("failed to register product", "url", url, "error", err)
		st.skipped++
		return outcomeSkipped
	}
	r.logger.Info("new product",
		"url", url,
		"name", rec.Name,
		"category", rec.Category)
	return outcomeCreated
}

func (r *Runner) buildRecord(ctx context.Context, st *run, url string, raw *models.RawAttributes) *models.ProductRecord {
	rec := &models.ProductRecord{
		SourceSite:  r.site.Key,
		Country:     r.site.Country,
		Company:     r.site.Company,
		Name:        raw.Name,
		URL:         url,
		ImageRef:    raw.ImageRef,
		Description: raw.Description,
	}
	if r.site.Currency != "" {
		rec.Currency = models.StringPtr(r.site.Currency)
	}

	normalize.Normalize(*raw).Apply(rec)
	rec.Category = category.Classify(url, raw.Name, raw.Description)

	st.imageNum++
	if r.images != nil && raw.ImageRef != "" {
		filename := ImageName(r.site.Company, st.runDate, st.imageNum)
		ref, err := r.images.Store(ctx, raw.ImageRef, r.site.ImageHeaders, r.site.Company, filename)
		if err != nil {
			r.logger.Warn("image upload failed, keeping source url", "url", url, "error", err)
		} else {
			rec.ImageRef = ref
		}
	}

	if r.converter != nil && rec.Price.Valid && rec.Currency != nil {
		converted, err := r.converter.ConvertAll(ctx, rec.Price.Decimal, *rec.Currency)
		if err != nil {
			r.logger.Warn("currency conversion failed", "url", url, "error", err)
		} else {
			rec.ConvertedPrices = converted
		}
	}

	return rec
}

func (r *Runner) finish(ctx context.Context, st *run, started time.Time, candidates int, pending []string, terminated bool) (*Result, error) {
	deleted := st.rec.Sweep(pending)
	stats := st.rec.Stats()

	status := models.RunCompleted
	if terminated {
		status = models.RunTerminated
	}
	finished := r.opts.Now()
	record := &models.ScrapeRun{
		ID:         uuid.NewString(),
		SourceSite: r.site.Key,
		RunDate:    st.runDate,
		StartedAt:  started,
		FinishedAt: &finished,
		Status:     status,
		Candidates: candidates,
		Created:    stats.Created,
		Reseen:     stats.Reseen,
		Deleted:    len(deleted),
		Skipped:    st.skipped,
	}

	res := &Result{Run: record, Terminated: terminated, Stats: stats}

	if r.exporter != nil {
		path, err := r.exporter.Export(ctx, r.site.Company, st.runDate, st.rec.Created())
		if err != nil {
			r.logger.Error("export failed", "error", err)
		} else {
			res.ExportPath = path
		}
	}

	if err := r.store.Commit(ctx, record, st.rec.Mutations()); err != nil {
		record.Status = models.RunFailed
		return res, fmt.Errorf("commit run: %w", err)
	}

	r.logger.Info("run finished",
		"status", record.Status,
		"created", record.Created,
		"reseen", record.Reseen,
		"deleted", record.Deleted,
		"skipped", record.Skipped,
		"pending", len(pending),
		"duration", finished.Sub(started))

	return res, nil
}

// ImageName is the object name an uploaded product image gets.
func ImageName(company string, runDate time.Time, n int) string {
	return fmt.Sprintf("%s_%s_%d.png", company, runDate.Format(time.DateOnly), n)
}

// Dedupe drops blanks and repeats, keeping first occurrences in order.
func Dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
