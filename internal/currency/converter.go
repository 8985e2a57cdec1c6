// Package currency converts scraped prices into reference currencies.
package currency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const places = 3

// Converter resolves rate tables through a cache and keeps them in memory
// for the lifetime of a run. A base whose lookup failed is not asked for
// again during the run.
type Converter struct {
	source  RateSource
	cache   Cache
	targets []string
	ttl     time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	known  map[string]Rates
	failed map[string]error
}

// NewConverter returns a converter for the given target codes. cache may be nil.
func NewConverter(source RateSource, cache Cache, targets []string, ttl time.Duration, logger *slog.Logger) *Converter {
	upper := make([]string, 0, len(targets))
	for _, t := range targets {
		upper = append(upper, strings.ToUpper(t))
	}
	return &Converter{
		source:  source,
		cache:   cache,
		targets: upper,
		ttl:     ttl,
		logger:  logger.With("component", "currency"),
		known:   make(map[string]Rates),
		failed:  make(map[string]error),
	}
}

// Convert returns amount expressed in to, rounded to three places.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount.Round(places), nil
	}

	rates, err := c.rates(ctx, to)
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := rates[from]
	if !ok || rate.IsZero() {
		return decimal.Zero, fmt.Errorf("no %s rate against %s: %w", from, to, ErrRateUnavailable)
	}
	return amount.Div(rate).Round(places), nil
}

// ConvertAll converts amount into every configured target. It fails as a
// whole so a record never carries a partial table.
func (c *Converter) ConvertAll(ctx context.Context, amount decimal.Decimal, from string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(c.targets))
	for _, to := range c.targets {
		v, err := c.Convert(ctx, amount, from, to)
		if err != nil {
			return nil, err
		}
		out[to] = v
	}
	return out, nil
}

func (c *Converter) rates(ctx context.Context, base string) (Rates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rates, ok := c.known[base]; ok {
		return rates, nil
	}
	if err, ok := c.failed[base]; ok {
		return nil, err
	}

	if c.cache != nil {
		rates, ok, err := c.cache.Get(ctx, base)
		if err != nil {
			c.logger.Warn("rate cache read failed", "base", base, "error", err)
		} else if ok {
			c.known[base] = rates
			return rates, nil
		}
	}

	rates, err := c.source.Latest(ctx, base)
	if err != nil {
		if ctx.Err() == nil {
			c.failed[base] = err
			c.logger.Warn("exchange rates unavailable for this run", "base", base, "error", err)
		}
		return nil, err
	}
	c.known[base] = rates

	if c.cache != nil {
		if err := c.cache.Set(ctx, base, rates, c.ttl); err != nil {
			c.logger.Warn("rate cache write failed", "base", base, "error", err)
		}
	}
	c.logger.Debug("fetched exchange rates", "base", base, "currencies", len(rates))
	return rates, nil
}
