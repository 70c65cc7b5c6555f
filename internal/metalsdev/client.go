package metalsdev

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// metals.dev serves spot, exchange and fixing prices for precious metals.
// https://metals.dev/docs
const defaultBaseURL = "https://api.metals.dev/v1/latest"

// unit is fixed; conversion happens downstream
const unitTroyOunce = "toz"

// ErrAPIStatus is returned for any non-2xx response
var ErrAPIStatus = errors.New("metals api returned non-success status")

// Client is an HTTP client for the metals.dev latest-prices endpoint
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewClient creates a new metals.dev client limited to ratePerSec requests per second
func NewClient(apiKey string, ratePerSec float64) *Client {
	return NewClientWithBaseURL(apiKey, defaultBaseURL, ratePerSec)
}

// NewClientWithBaseURL creates a client against a custom base URL (for testing)
func NewClientWithBaseURL(apiKey, baseURL string, ratePerSec float64) *Client {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// GetLatest fetches the latest prices for every instrument quoted in currency
func (c *Client) GetLatest(ctx context.Context, currency string) (*ParsedLatest, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("currency", currency)
	params.Set("unit", unitTroyOunce)

	resp, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return c.parseLatest(body, currency)
}

func (c *Client) parseLatest(body []byte, currency string) (*ParsedLatest, error) {
	var latest LatestResponse
	if err := json.Unmarshal(body, &latest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if latest.Metals == nil {
		return nil, fmt.Errorf("response has no metals mapping")
	}

	asOf, err := parseTimestamp(latest.Timestamps.Metal)
	if err != nil {
		log.Warnf("metals timestamp %q unusable (%v), using current UTC time", latest.Timestamps.Metal, err)
		asOf = c.now().UTC()
	}

	keys := make([]string, 0, len(latest.Metals))
	for k := range latest.Metals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parsed := &ParsedLatest{
		Currency: currency,
		AsOf:     asOf,
		Quotes:   make([]Quote, 0, len(keys)),
	}
	for _, k := range keys {
		parsed.Quotes = append(parsed.Quotes, Quote{
			Key:      k,
			Price:    latest.Metals[k],
			Currency: currency,
		})
	}
	return parsed, nil
}

// parseTimestamp accepts ISO-8601 with a Z or numeric offset, with or without fractional seconds
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

func (c *Client) doRequest(ctx context.Context, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrAPIStatus, resp.StatusCode)
	}

	return resp, nil
}
