// Package googlefin resolves prices by evaluating GOOGLEFINANCE-style
// expressions against a formula gateway. The gateway evaluates one
// expression per call and returns a single scalar, mirroring a scratch
// computation cell.
package googlefin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dhkim-dev/priceboard/internal/common"
	"github.com/dhkim-dev/priceboard/internal/interfaces"
	"github.com/dhkim-dev/priceboard/internal/models"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the PriceSource interface via the formula gateway
type Client struct {
	gatewayURL string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

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

// WithAPIKey sets the gateway API key
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a new formula gateway client
func NewClient(gatewayURL string, opts ...ClientOption) *Client {
	c := &Client{
		gatewayURL: gatewayURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a transport-level gateway failure
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("formula gateway error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// evalResponse is the gateway's scalar envelope. Result may be a JSON
// number or a string such as "#N/A".
type evalResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// eval submits one expression and returns the raw scalar text.
func (c *Client) eval(ctx context.Context, expr string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("expr", expr)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/eval?%s", c.gatewayURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("expr", expr).Msg("Formula gateway request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   "/eval",
		}
	}

	var raw evalResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if raw.Error != "" {
		// The gateway reached the formula engine but the expression failed;
		// this is a "no value" outcome, not a transport error.
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw.Result, &s); err == nil {
		return s, nil
	}
	var n float64
	if err := json.Unmarshal(raw.Result, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	return "", nil
}

// parseScalar accepts the first numeric, non-error, positive result. Sheet
// error markers such as "#N/A" fail the parse and move to the next attempt.
func parseScalar(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// attempt is one step of an ordered expression fallback chain.
type attempt struct {
	method string
	expr   string
}

// tryAttempts runs an ordered fallback chain. Only transport errors stop
// the chain; parse failures move to the next expression.
func (c *Client) tryAttempts(ctx context.Context, attempts []attempt, date time.Time) (*models.PriceQuote, error) {
	for _, a := range attempts {
		s, err := c.eval(ctx, a.expr)
		if err != nil {
			return nil, err
		}
		if v, ok := parseScalar(s); ok {
			return &models.PriceQuote{
				Value:      models.Price(v),
				SourceDate: date,
				Method:     a.method,
			}, nil
		}
		c.logger.Debug().Str("method", a.method).Str("result", s).Msg("Formula attempt produced no usable value")
	}
	return models.NoDataQuote("formula"), nil
}

func priceExpr(symbol, attribute string) string {
	return fmt.Sprintf("GOOGLEFINANCE(%q,%q)", symbol, attribute)
}

func datedExpr(symbol, attribute string, date time.Time) string {
	return fmt.Sprintf("INDEX(GOOGLEFINANCE(%q,%q,DATE(%d,%d,%d)),2,2)",
		symbol, attribute, date.Year(), int(date.Month()), date.Day())
}

// CurrentPrice evaluates a single price expression.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	return c.tryAttempts(ctx, []attempt{
		{method: "formula_price", expr: priceExpr(symbol, "price")},
	}, time.Time{})
}

// PriceNear tries price-at-date, close-at-date, then the current price, in
// that order, accepting the first numeric, non-error, positive result.
func (c *Client) PriceNear(ctx context.Context, symbol string, date time.Time) (*models.PriceQuote, error) {
	return c.tryAttempts(ctx, []attempt{
		{method: "formula_price_at", expr: datedExpr(symbol, "price", date)},
		{method: "formula_close_at", expr: datedExpr(symbol, "close", date)},
		{method: "formula_price", expr: priceExpr(symbol, "price")},
	}, date)
}

// HighPrice52w evaluates the dedicated high52 expression, falling back to
// the current price when the attribute is invalid for the symbol.
func (c *Client) HighPrice52w(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	return c.tryAttempts(ctx, []attempt{
		{method: "formula_high52", expr: priceExpr(symbol, "high52")},
		{method: "formula_price", expr: priceExpr(symbol, "price")},
	}, time.Time{})
}

// Ensure Client implements PriceSource
var _ interfaces.PriceSource = (*Client)(nil)
