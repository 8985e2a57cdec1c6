// Package sites holds the per-retailer adapters. Every retailer in the
// catalogue is served by SelectorAdapter; only its selectors differ.
package sites

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
	"github.com/maltedev/jewelry-catalog-scraper/internal/parser"
)

type Adapter interface {
	Site() string
	Candidates(ctx context.Context) ([]string, error)
	Extract(ctx context.Context, url string) (*models.RawAttributes, error)
}

// Fetcher renders pages. browser.Session implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	LoadAll(ctx context.Context, url, loadMoreSelector string, maxClicks int) (string, error)
}

type SelectorAdapter struct {
	cfg         *Config
	fetcher     Fetcher
	parser      parser.Parser
	maxLoadMore int
	logger      *slog.Logger
}

func NewSelectorAdapter(cfg *Config, fetcher Fetcher, maxLoadMore int, logger *slog.Logger) *SelectorAdapter {
	return &SelectorAdapter{
		cfg:         cfg,
		fetcher:     fetcher,
		parser:      parser.NewHTMLParser(cfg.LinkSelector, cfg.Detail),
		maxLoadMore: maxLoadMore,
		logger:      logger.With("component", "site_adapter", "site", cfg.Key),
	}
}

func (a *SelectorAdapter) Site() string { return a.cfg.Key }

// Candidates crawls every listing URL. A listing that cannot be loaded
// fails the whole call, since a partial list would make the deletion sweep
// mark unseen products as delisted.
func (a *SelectorAdapter) Candidates(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(links []string) int {
		added := 0
		for _, l := range links {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
				added++
			}
		}
		return added
	}

	for _, listing := range a.cfg.ListingURLs {
		if a.cfg.PageParam != "" {
			for page := 1; page <= a.cfg.MaxPages; page++ {
				pageURL, err := withPage(listing, a.cfg.PageParam, page)
				if err != nil {
					return nil, err
				}
				links, err := a.listing(ctx, pageURL, "")
				if err != nil {
					return nil, err
				}
				if add(links) == 0 {
					break
				}
			}
			continue
		}

		links, err := a.listing(ctx, listing, a.cfg.LoadMore)
		if err != nil {
			return nil, err
		}
		add(links)
	}

	a.logger.Info("candidates collected", "count", len(out))
	return out, nil
}

func (a *SelectorAdapter) listing(ctx context.Context, pageURL, loadMore string) ([]string, error) {
	var (
		html string
		err  error
	)
	if loadMore != "" {
		html, err = a.fetcher.LoadAll(ctx, pageURL, loadMore, a.maxLoadMore)
	} else {
		html, err = a.fetcher.Fetch(ctx, pageURL)
	}
	if err != nil {
		return nil, fmt.Errorf("load listing %s: %w", pageURL, err)
	}

	links, err := a.parser.ParseListing(html, pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", pageURL, err)
	}
	a.logger.Debug("listing parsed", "url", pageURL, "links", len(links))
	return links, nil
}

func (a *SelectorAdapter) Extract(ctx context.Context, productURL string) (*models.RawAttributes, error) {
	html, err := a.fetcher.Fetch(ctx, productURL)
	if err != nil {
		return nil, err
	}
	raw, err := a.parser.ParseDetail(html, productURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", productURL, err)
	}
	return raw, nil
}

func withPage(listing, param string, page int) (string, error) {
	u, err := url.Parse(listing)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %q: %w", listing, err)
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
