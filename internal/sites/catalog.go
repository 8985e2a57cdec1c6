package sites

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/maltedev/jewelry-catalog-scraper/internal/parser"
)

var ErrUnknownSite = errors.New("unknown site")

// Config is one retailer entry of the site catalogue.
type Config struct {
	Key          string                 `yaml:"-"`
	Company      string                 `yaml:"company"`
	Country      string                 `yaml:"country"`
	Currency     string                 `yaml:"currency"`
	ListingURLs  []string               `yaml:"listing_urls"`
	LinkSelector string                 `yaml:"link_selector"`
	LoadMore     string                 `yaml:"load_more"`
	PageParam    string                 `yaml:"page_param"`
	MaxPages     int                    `yaml:"max_pages"`
	ImageHeaders map[string]string      `yaml:"image_headers"`
	Detail       parser.DetailSelectors `yaml:"detail"`
}

func (c *Config) validate() error {
	switch {
	case c.Company == "":
		return fmt.Errorf("site %s: company is required", c.Key)
	case len(c.ListingURLs) == 0:
		return fmt.Errorf("site %s: at least one listing url is required", c.Key)
	case c.LinkSelector == "":
		return fmt.Errorf("site %s: link_selector is required", c.Key)
	case c.Detail.Name == "":
		return fmt.Errorf("site %s: detail.name selector is required", c.Key)
	case c.PageParam != "" && c.MaxPages < 1:
		return fmt.Errorf("site %s: max_pages must be at least 1 with page_param", c.Key)
	}
	return nil
}

type Catalog struct {
	Sites map[string]*Config `yaml:"sites"`
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site catalogue: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse site catalogue: %w", err)
	}
	if len(c.Sites) == 0 {
		return nil, fmt.Errorf("site catalogue has no sites")
	}
	for key, cfg := range c.Sites {
		if cfg == nil {
			return nil, fmt.Errorf("site %s: empty entry", key)
		}
		cfg.Key = key
		if cfg.Country == "" {
			cfg.Country = "India"
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (c *Catalog) Site(key string) (*Config, error) {
	cfg, ok := c.Sites[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSite, key)
	}
	return cfg, nil
}

func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.Sites))
	for k := range c.Sites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
