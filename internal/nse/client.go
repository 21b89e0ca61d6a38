// Package nse provides access to the NSE option-chain API along with a
// fixed-TTL snapshot cache.
package nse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"chainpulse/internal/logger"
)

const (
	indexChainPath  = "/api/option-chain-indices"
	equityChainPath = "/api/option-chain-equities"
	warmupPath      = "/option-chain"
	acceptLanguage  = "en,hi;q=0.9"
)

// FetchError reports a non-2xx upstream response.
type FetchError struct {
	StatusCode int
	URL        string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("upstream returned %d for %s", e.StatusCode, e.URL)
}

// ClientConfig tunes the HTTP client.
type ClientConfig struct {
	WarmupTimeout time.Duration
	RatePerMinute int
	UserAgent     string
}

// Client fetches raw option-chain documents for a symbol. The upstream
// requires a warm-up page hit to issue session cookies before the API
// call; the client carries a cookie jar for that. All outbound requests
// share one rate limiter so repeated cycles cannot hammer the source.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	warmupTimeout time.Duration
	limiter       *rate.Limiter
	userAgent     string
}

// NewClient creates a new NSE client. timeout is the hard deadline for
// each request; there is no retry.
func NewClient(baseURL string, timeout time.Duration, cfg ClientConfig) *Client {
	jar, _ := cookiejar.New(nil)
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 30
	}
	if cfg.WarmupTimeout <= 0 {
		cfg.WarmupTimeout = timeout
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		warmupTimeout: cfg.WarmupTimeout,
		limiter:       rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), 2),
		userAgent:     cfg.UserAgent,
	}
}

// FetchChain retrieves the raw option-chain JSON for symbol. isIndex
// selects the index endpoint over the equity one. The call blocks on the
// rate limiter, warms up the session, then issues the API request; any
// failure aborts the fetch with a single wrapped error.
func (c *Client) FetchChain(ctx context.Context, symbol string, isIndex bool) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if err := c.warmup(ctx); err != nil {
		return nil, fmt.Errorf("session warm-up failed: %w", err)
	}

	path := equityChainPath
	if isIndex {
		path = indexChainPath
	}
	apiURL := c.baseURL + path + "?symbol=" + url.QueryEscape(symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch option chain: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{StatusCode: resp.StatusCode, URL: apiURL}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read option chain body: %w", err)
	}
	logger.Debug("Fetched %d bytes for %s (index=%v)", len(raw), symbol, isIndex)
	return raw, nil
}

// warmup hits the option-chain landing page so the jar picks up the
// session cookies the API endpoints require.
func (c *Client) warmup(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, c.warmupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(wctx, http.MethodGet, c.baseURL+warmupPath, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept-Language", acceptLanguage)
}
