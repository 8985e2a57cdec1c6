package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Scraper.MaxRetries)
	assert.Equal(t, 25, cfg.Scraper.RecycleEvery)
	assert.Equal(t, 5, cfg.Scraper.PingEvery)
	assert.Equal(t, "configs/sites.yaml", cfg.Scraper.SitesFile)
	assert.Equal(t, "prompt", cfg.Operator.OnDisconnect)
	assert.Equal(t, []string{"INR", "USD"}, cfg.Currency.Targets)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SCRAPER_MAX_RETRIES", "5")
	t.Setenv("SCRAPER_RATE_LIMIT_MAX", "10s")
	t.Setenv("OPERATOR_ON_DISCONNECT", "Terminate")
	t.Setenv("CURRENCY_TARGETS", "usd, eur ,")
	t.Setenv("BROWSER_HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Scraper.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Scraper.RateLimitMax)
	assert.Equal(t, "terminate", cfg.Operator.OnDisconnect)
	assert.Equal(t, []string{"usd", "eur"}, cfg.Currency.Targets)
	assert.False(t, cfg.Browser.Headless)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("SCRAPER_PING_EVERY", "often")
	t.Setenv("SCRAPER_RATE_LIMIT_MIN", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Scraper.PingEvery)
	assert.Equal(t, time.Second, cfg.Scraper.RateLimitMin)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown disconnect policy",
			mutate:  func(c *Config) { c.Operator.OnDisconnect = "ignore" },
			wantErr: "OPERATOR_ON_DISCONNECT",
		},
		{
			name:    "recycle interval zero",
			mutate:  func(c *Config) { c.Scraper.RecycleEvery = 0 },
			wantErr: "SCRAPER_RECYCLE_EVERY",
		},
		{
			name:    "ping interval zero",
			mutate:  func(c *Config) { c.Scraper.PingEvery = 0 },
			wantErr: "SCRAPER_PING_EVERY",
		},
		{
			name: "inverted rate limits",
			mutate: func(c *Config) {
				c.Scraper.RateLimitMin = 10 * time.Second
				c.Scraper.RateLimitMax = time.Second
			},
			wantErr: "SCRAPER_RATE_LIMIT_MIN",
		},
		{
			name:    "images without bucket",
			mutate:  func(c *Config) { c.Images.Enabled = true },
			wantErr: "IMAGES_BUCKET",
		},
		{
			name:    "currency without key",
			mutate:  func(c *Config) { c.Currency.Enabled = true },
			wantErr: "CURRENCY_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("OPERATOR_ON_DISCONNECT", "shrug")

	cfg, err := Load()
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "OPERATOR_ON_DISCONNECT")
}

func TestLoad_Consumer(t *testing.T) {
	t.Setenv("CONSUMER_NAME", "worker-7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "catalog-consumers", cfg.Consumer.Group)
	assert.Equal(t, "worker-7", cfg.Consumer.Name)
	assert.Equal(t, 5*time.Second, cfg.Consumer.Block)
	assert.Equal(t, 30*time.Second, cfg.Consumer.ReclaimInterval)
	assert.Equal(t, time.Minute, cfg.Consumer.ClaimMinIdle)
}
