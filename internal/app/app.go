// Package app wires one retailer run from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/jewelry-catalog-scraper/internal/browser"
	"github.com/maltedev/jewelry-catalog-scraper/internal/catalog"
	"github.com/maltedev/jewelry-catalog-scraper/internal/config"
	"github.com/maltedev/jewelry-catalog-scraper/internal/currency"
	"github.com/maltedev/jewelry-catalog-scraper/internal/database"
	"github.com/maltedev/jewelry-catalog-scraper/internal/export"
	"github.com/maltedev/jewelry-catalog-scraper/internal/imagestore"
	"github.com/maltedev/jewelry-catalog-scraper/internal/ratelimit"
	"github.com/maltedev/jewelry-catalog-scraper/internal/runner"
	"github.com/maltedev/jewelry-catalog-scraper/internal/sites"
	"github.com/maltedev/jewelry-catalog-scraper/pkg/logger"
)

// RunSite scrapes one configured retailer and returns the process exit code.
func RunSite(key string) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format).With("site", key)
	slog.SetDefault(log)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	return Run(context.Background(), cfg, key, log, os.Stdin, os.Stdout, signals)
}

// Run builds every collaborator of a run, executes it and maps the outcome
// to an exit code. A value on signals stops the run cooperatively.
func Run(ctx context.Context, cfg *config.Config, key string, log *slog.Logger, in io.Reader, out io.Writer, signals <-chan os.Signal) int {
	siteCatalog, err := sites.LoadCatalog(cfg.Scraper.SitesFile)
	if err != nil {
		log.Error("failed to load site catalogue", "error", err)
		return 1
	}
	siteCfg, err := siteCatalog.Site(key)
	if err != nil {
		log.Error("site not configured", "error", err)
		return 1
	}

	db, err := database.New(ctx, DatabaseConfig(cfg.Database))
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Error("failed to migrate database", "error", err)
		return 1
	}

	session, err := browser.New(BrowserOptions(cfg.Browser, cfg.Scraper.UserAgents), log)
	if err != nil {
		log.Error("failed to start browser", "error", err)
		return 1
	}
	defer session.Close()

	options := []runner.Option{
		runner.WithSession(session),
		runner.WithLimiter(ratelimit.New(cfg.Scraper.RequestsPerMinute, cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax)),
	}

	if cfg.Images.Enabled {
		uploader, err := imagestore.NewGCSUploader(ctx, cfg.Images.Bucket, cfg.Images.Endpoint)
		if err != nil {
			log.Error("failed to connect to image bucket", "error", err)
			return 1
		}
		defer uploader.Close()
		options = append(options, runner.WithImageStore(imagestore.New(uploader, cfg.Images.PublicBase, cfg.Images.Timeout, log)))
	}

	if cfg.Currency.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		converter := currency.NewConverter(
			currency.NewHTTPRateSource(cfg.Currency.APIURL, cfg.Currency.APIKey, cfg.Currency.Timeout),
			currency.NewRedisCache(redisClient),
			cfg.Currency.Targets,
			cfg.Currency.CacheTTL,
			log,
		)
		options = append(options, runner.WithConverter(converter))
	}

	if cfg.Export.Enabled {
		options = append(options, runner.WithExporter(export.NewXLSXWriter(cfg.Export.Dir, log)))
	}

	decider, err := NewDecider(cfg.Operator.OnDisconnect, in, out)
	if err != nil {
		log.Error("invalid disconnect policy", "error", err)
		return 1
	}

	r := runner.New(
		SiteFor(siteCfg),
		sites.NewSelectorAdapter(siteCfg, session, cfg.Scraper.MaxLoadMore, log),
		catalog.NewFromDB(db, cfg.Outbox.Stream, log),
		decider,
		RunnerOptions(cfg.Scraper),
		log,
		options...,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-signals:
			log.Warn("stop requested", "signal", sig.String())
			r.Stop()
			cancel()
		case <-done:
		}
	}()

	res, err := r.Run(runCtx)
	if err != nil {
		log.Error("run failed", "error", err)
	}
	if res != nil {
		log.Info("run finished",
			"run_id", res.Run.ID,
			"status", res.Run.Status,
			"created", res.Stats.Created,
			"reseen", res.Stats.Reseen,
			"deleted", res.Stats.Deleted,
			"export", res.ExportPath)
		if res.Terminated {
			fmt.Fprintln(out, runner.TerminatedMessage)
		}
	}
	return runner.ExitCode(res, err)
}

// NewDecider maps the configured disconnect policy to a decider.
func NewDecider(policy string, in io.Reader, out io.Writer) (runner.Decider, error) {
	if policy == "prompt" {
		return runner.NewPromptDecider(in, out), nil
	}
	d, err := runner.ParseDecision(policy)
	if err != nil {
		return nil, err
	}
	return runner.FixedDecider(d), nil
}

func SiteFor(cfg *sites.Config) runner.Site {
	return runner.Site{
		Key:          cfg.Key,
		Company:      cfg.Company,
		Country:      cfg.Country,
		Currency:     cfg.Currency,
		ImageHeaders: cfg.ImageHeaders,
	}
}

func RunnerOptions(cfg config.ScraperConfig) runner.Options {
	opts := runner.DefaultOptions()
	opts.MaxRetries = cfg.MaxRetries
	opts.RecycleEvery = cfg.RecycleEvery
	opts.PingEvery = cfg.PingEvery
	return opts
}

func DatabaseConfig(cfg config.DatabaseConfig) database.Config {
	return database.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.DBName,
		SSLMode:  cfg.SSLMode,
		MaxConns: cfg.MaxConns,
	}
}

// BrowserOptions starts from the browser defaults and applies configuration.
// One user agent is picked per run.
func BrowserOptions(cfg config.BrowserConfig, userAgents []string) *browser.Options {
	opts := browser.DefaultOptions()
	if cfg.Engine != "" {
		opts.Engine = cfg.Engine
	}
	opts.Headless = cfg.Headless
	if cfg.Timeout > 0 {
		opts.Timeout = cfg.Timeout
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		opts.ViewportWidth = cfg.ViewportWidth
		opts.ViewportHeight = cfg.ViewportHeight
	}
	if cfg.AcceptLanguage != "" {
		opts.AcceptLanguage = cfg.AcceptLanguage
	}
	if cfg.TimezoneID != "" {
		opts.TimezoneID = cfg.TimezoneID
	}
	if cfg.Locale != "" {
		opts.Locale = cfg.Locale
	}
	if len(userAgents) > 0 {
		opts.UserAgent = userAgents[rand.IntN(len(userAgents))]
	}
	return opts
}
