package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Images   ImageConfig
	Currency CurrencyConfig
	Export   ExportConfig
	Operator OperatorConfig
	Logging  LoggingConfig
	Outbox   OutboxConfig
	Consumer ConsumerConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	SitesFile         string
	MaxRetries        int
	RecycleEvery      int
	PingEvery         int
	RateLimitMin      time.Duration
	RateLimitMax      time.Duration
	RequestsPerMinute int
	MaxLoadMore       int
	UserAgents        []string
}

type BrowserConfig struct {
	Engine         string
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ImageConfig struct {
	Enabled    bool
	Bucket     string
	PublicBase string
	Endpoint   string
	Timeout    time.Duration
}

type CurrencyConfig struct {
	Enabled  bool
	APIURL   string
	APIKey   string
	Targets  []string
	CacheTTL time.Duration
	Timeout  time.Duration
}

type ExportConfig struct {
	Enabled bool
	Dir     string
}

// OperatorConfig controls what happens when a run loses connectivity.
// OnDisconnect is one of prompt, resume or terminate.
type OperatorConfig struct {
	OnDisconnect string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Stream       string
}

// ConsumerConfig identifies this process inside the stream consumer group.
type ConsumerConfig struct {
	Group           string
	Name            string
	Block           time.Duration
	ReclaimInterval time.Duration
	ClaimMinIdle    time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			SitesFile:         getEnvOrDefault("SITES_FILE", "configs/sites.yaml"),
			MaxRetries:        getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			RecycleEvery:      getIntOrDefault("SCRAPER_RECYCLE_EVERY", 25),
			PingEvery:         getIntOrDefault("SCRAPER_PING_EVERY", 5),
			RateLimitMin:      getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 1*time.Second),
			RateLimitMax:      getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 3*time.Second),
			RequestsPerMinute: getIntOrDefault("SCRAPER_REQUESTS_PER_MINUTE", 30),
			MaxLoadMore:       getIntOrDefault("SCRAPER_MAX_LOAD_MORE", 200),
			UserAgents:        getStringSliceOrDefault("SCRAPER_USER_AGENTS", defaultUserAgents()),
		},
		Browser: BrowserConfig{
			Engine:         strings.ToLower(getEnvOrDefault("BROWSER_ENGINE", "chromium")),
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 60*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-IN,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Kolkata"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-IN"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "jewelry_catalog"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Images: ImageConfig{
			Enabled:    getBoolOrDefault("IMAGES_ENABLED", false),
			Bucket:     getEnvOrDefault("IMAGES_BUCKET", ""),
			PublicBase: getEnvOrDefault("IMAGES_PUBLIC_BASE", ""),
			Endpoint:   getEnvOrDefault("STORAGE_EMULATOR_HOST", ""),
			Timeout:    getDurationOrDefault("IMAGES_TIMEOUT", 30*time.Second),
		},
		Currency: CurrencyConfig{
			Enabled:  getBoolOrDefault("CURRENCY_ENABLED", false),
			APIURL:   getEnvOrDefault("CURRENCY_API_URL", "https://v6.exchangerate-api.com/v6"),
			APIKey:   getEnvOrDefault("CURRENCY_API_KEY", ""),
			Targets:  getStringSliceOrDefault("CURRENCY_TARGETS", []string{"INR", "USD"}),
			CacheTTL: getDurationOrDefault("CURRENCY_CACHE_TTL", 6*time.Hour),
			Timeout:  getDurationOrDefault("CURRENCY_TIMEOUT", 15*time.Second),
		},
		Export: ExportConfig{
			Enabled: getBoolOrDefault("EXPORT_ENABLED", true),
			Dir:     getEnvOrDefault("EXPORT_DIR", "exports"),
		},
		Operator: OperatorConfig{
			OnDisconnect: strings.ToLower(getEnvOrDefault("OPERATOR_ON_DISCONNECT", "prompt")),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Outbox: OutboxConfig{
			PollInterval: getDurationOrDefault("OUTBOX_POLL_INTERVAL", 5*time.Second),
			BatchSize:    getIntOrDefault("OUTBOX_BATCH_SIZE", 100),
			Stream:       getEnvOrDefault("OUTBOX_STREAM", "stream:jewelry_catalog"),
		},
		Consumer: ConsumerConfig{
			Group: getEnvOrDefault("CONSUMER_GROUP", "catalog-consumers"),
			Name:  getEnvOrDefault("CONSUMER_NAME", "consumer-1"),
			Block: getDurationOrDefault("CONSUMER_BLOCK", 5*time.Second),

			ReclaimInterval: getDurationOrDefault("CONSUMER_RECLAIM_INTERVAL", 30*time.Second),
			ClaimMinIdle:    getDurationOrDefault("CONSUMER_CLAIM_MIN_IDLE", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.MaxRetries < 0 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES cannot be negative")
	}

	if c.Scraper.RecycleEvery < 1 {
		return fmt.Errorf("SCRAPER_RECYCLE_EVERY must be at least 1")
	}

	if c.Scraper.PingEvery < 1 {
		return fmt.Errorf("SCRAPER_PING_EVERY must be at least 1")
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	switch c.Operator.OnDisconnect {
	case "prompt", "resume", "terminate":
	default:
		return fmt.Errorf("OPERATOR_ON_DISCONNECT must be prompt, resume or terminate, got %q", c.Operator.OnDisconnect)
	}

	if c.Images.Enabled && c.Images.Bucket == "" {
		return fmt.Errorf("IMAGES_BUCKET is required when IMAGES_ENABLED is set")
	}

	if c.Currency.Enabled && c.Currency.APIKey == "" {
		return fmt.Errorf("CURRENCY_API_KEY is required when CURRENCY_ENABLED is set")
	}

	if c.Outbox.BatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be at least 1")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}
}
