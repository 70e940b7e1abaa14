// Package naver provides a price source scraping Naver Finance. It serves
// the Korean market only: there is no native historical price endpoint, so
// historical data runs through an escalating chain of JSON APIs, a
// correlated-index estimate, and a time-decay heuristic.
package naver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dhkim-dev/priceboard/internal/common"
	"github.com/dhkim-dev/priceboard/internal/interfaces"
	"github.com/dhkim-dev/priceboard/internal/models"
)

const (
	DefaultBaseURL       = "https://finance.naver.com"
	DefaultMobileBaseURL = "https://m.stock.naver.com"
	DefaultTimeout       = 30 * time.Second
	DefaultRateLimit     = 3 // requests per second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Client implements the PriceSource interface against Naver Finance pages
// and the mobile JSON API.
type Client struct {
	baseURL       string
	mobileBaseURL string
	httpClient    *http.Client
	logger        *common.Logger
	limiter       *rate.Limiter
	now           func() time.Time // injectable clock for testing
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the desktop page base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithMobileBaseURL sets the mobile API base URL
func WithMobileBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.mobileBaseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Naver Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		mobileBaseURL: DefaultMobileBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a transport-level failure
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("naver error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// indexSymbols are the symbols served from the index pages rather than the
// per-item pages.
var indexSymbols = map[string]bool{
	"KOSPI":  true,
	"KOSDAQ": true,
}

func isIndexSymbol(symbol string) bool {
	return indexSymbols[symbol]
}

// fetch performs a rate-limited GET and returns the raw body.
func (c *Client) fetch(ctx context.Context, rawURL, endpoint string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug().Str("endpoint", endpoint).Msg("Naver request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    "request failed",
			Endpoint:   endpoint,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// CurrentPrice scrapes the live price from the item or index page.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	var pageURL, endpoint string
	var patterns = stockPricePatterns
	if isIndexSymbol(symbol) {
		endpoint = "/sise/sise_index.naver"
		pageURL = fmt.Sprintf("%s%s?code=%s", c.baseURL, endpoint, symbol)
		patterns = indexPricePatterns
	} else {
		endpoint = "/item/main.naver"
		pageURL = fmt.Sprintf("%s%s?code=%s", c.baseURL, endpoint, symbol)
	}

	markup, err := c.fetch(ctx, pageURL, endpoint)
	if err != nil {
		return nil, err
	}

	if v, ok := extractPrice(markup, patterns); ok {
		return &models.PriceQuote{
			Value:      models.Price(v),
			SourceDate: c.now(),
			Method:     "html_current",
		}, nil
	}
	return models.NoDataQuote("html_current"), nil
}

// HighPrice52w scrapes the 52-week high from the item page. Index pages do
// not publish one, so indexes scan a one-year series instead; when no
// series is obtainable the current price stands in, flagged as estimated.
func (c *Client) HighPrice52w(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	if isIndexSymbol(symbol) {
		return c.indexHigh52w(ctx, symbol)
	}

	endpoint := "/item/main.naver"
	pageURL := fmt.Sprintf("%s%s?code=%s", c.baseURL, endpoint, symbol)
	markup, err := c.fetch(ctx, pageURL, endpoint)
	if err != nil {
		return nil, err
	}

	if v, ok := extractPrice(markup, stockHigh52Patterns); ok {
		return &models.PriceQuote{
			Value:      models.Price(v),
			SourceDate: c.now(),
			Method:     "html_high52",
		}, nil
	}

	// Page layout miss: fall back to the current price so the high-return
	// column stays populated, and mark the substitution.
	if v, ok := extractPrice(markup, stockPricePatterns); ok {
		return &models.PriceQuote{
			Value:       models.Price(v),
			SourceDate:  c.now(),
			IsEstimated: true,
			Method:      "current_as_high",
		}, nil
	}
	return models.NoDataQuote("html_high52"), nil
}

// PriceNear resolves a historical price. Stocks read the daily price table;
// indexes run the mobile-API / chart-API / cross-index / time-decay chain.
func (c *Client) PriceNear(ctx context.Context, symbol string, date time.Time) (*models.PriceQuote, error) {
	if isIndexSymbol(symbol) {
		return c.indexPriceNear(ctx, symbol, date)
	}
	return c.stockPriceNear(ctx, symbol, date)
}

// Ensure Client implements PriceSource
var _ interfaces.PriceSource = (*Client)(nil)
