package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Rates maps a currency code to how many units of it buy one unit of the
// base currency.
type Rates map[string]decimal.Decimal

type RateSource interface {
	Latest(ctx context.Context, base string) (Rates, error)
}

// HTTPRateSource reads the exchangerate-api "latest" endpoint.
type HTTPRateSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPRateSource(baseURL, apiKey string, timeout time.Duration) *HTTPRateSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRateSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	BaseCode        string                     `json:"base_code"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

func (s *HTTPRateSource) Latest(ctx context.Context, base string) (Rates, error) {
	endpoint := fmt.Sprintf("%s/%s/latest/%s", s.baseURL, url.PathEscape(s.apiKey), url.PathEscape(base))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates for %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("rates for %s: unexpected status %d: %w", base, resp.StatusCode, ErrRateUnavailable)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rates for %s: %w", base, err)
	}
	if body.Result != "success" {
		return nil, fmt.Errorf("rates for %s: %s: %w", base, body.ErrorType, ErrRateUnavailable)
	}
	if len(body.ConversionRates) == 0 {
		return nil, fmt.Errorf("rates for %s: empty table: %w", base, ErrRateUnavailable)
	}
	return Rates(body.ConversionRates), nil
}
