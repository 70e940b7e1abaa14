// Package yahoo provides a client for the Yahoo Finance chart API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/dhkim-dev/priceboard/internal/common"
	"github.com/dhkim-dev/priceboard/internal/interfaces"
	"github.com/dhkim-dev/priceboard/internal/market"
	"github.com/dhkim-dev/priceboard/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Client implements the PriceSource interface against the Yahoo v8 chart
// and v10 quoteSummary endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time // injectable clock for testing
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
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

// NewClient creates a new Yahoo Finance client. No API key is required.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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

// APIError represents a transport-level API failure
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// chartResponse mirrors the Yahoo v8 chart payload.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  any           `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		RegularMarketTime  int64   `json:"regularMarketTime"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
			High  []*float64 `json:"high"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// getChart fetches one chart result. A reachable endpoint with an empty
// result list returns (nil, nil) so callers can map it to NO_DATA.
func (c *Client) getChart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("/v8/finance/chart/%s", url.PathEscape(symbol))
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("symbol", symbol).Str("endpoint", endpoint).Msg("Yahoo chart API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   endpoint,
		}
	}

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(raw.Chart.Result) == 0 {
		return nil, nil
	}
	return &raw.Chart.Result[0], nil
}

// CurrentPrice reads the price from chart metadata first, then from the
// last non-null entry of the intraday series, then from the previous close.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	r, err := c.getChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return models.NoDataQuote("quote"), nil
	}

	if r.Meta.RegularMarketPrice > 0 {
		return &models.PriceQuote{
			Value:      models.Price(r.Meta.RegularMarketPrice),
			SourceDate: time.Unix(r.Meta.RegularMarketTime, 0).UTC(),
			Method:     "quote_meta",
		}, nil
	}

	for i := len(r.Timestamp) - 1; i >= 0; i-- {
		if len(r.Indicators.Quote) == 0 || i >= len(r.Indicators.Quote[0].Close) {
			continue
		}
		cl := r.Indicators.Quote[0].Close[i]
		if cl != nil && *cl > 0 {
			return &models.PriceQuote{
				Value:      models.Price(*cl),
				SourceDate: time.Unix(r.Timestamp[i], 0).UTC(),
				Method:     "quote_series",
			}, nil
		}
	}

	if r.Meta.ChartPreviousClose > 0 {
		return &models.PriceQuote{
			Value:  models.Price(r.Meta.ChartPreviousClose),
			Method: "previous_close",
		}, nil
	}

	return models.NoDataQuote("quote"), nil
}

// PriceNear retrieves the daily bar for the given date, preferring adjusted
// close over raw close. When the exact-day range is empty the query widens
// and the closest candidate within the sliding tolerance window is taken.
func (c *Client) PriceNear(ctx context.Context, symbol string, date time.Time) (*models.PriceQuote, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	// Exact range [date, date+1).
	r, err := c.getRange(ctx, symbol, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if points := seriesPoints(r); len(points) > 0 {
		return &models.PriceQuote{
			Value:      models.Price(points[0].Close),
			SourceDate: points[0].Date,
			Method:     "range_exact",
		}, nil
	}

	// Widened range with closest-date matching.
	r, err = c.getRange(ctx, symbol, day.AddDate(0, 0, -15), day.AddDate(0, 0, 2))
	if err != nil {
		return nil, err
	}
	if p, ok := market.ClosestPoint(seriesPoints(r), day, c.now()); ok {
		return &models.PriceQuote{
			Value:      models.Price(p.Close),
			SourceDate: p.Date,
			Method:     "range_closest",
		}, nil
	}

	return models.NoDataQuote("range"), nil
}

func (c *Client) getRange(ctx context.Context, symbol string, from, to time.Time) (*chartResult, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", to.Unix()))
	return c.getChart(ctx, symbol, params)
}

// seriesPoints flattens a chart result into (date, price) candidates,
// preferring adjusted close over raw close per entry.
func seriesPoints(r *chartResult) []models.PricePoint {
	if r == nil {
		return nil
	}
	points := make([]models.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		var price *float64
		if len(r.Indicators.AdjClose) > 0 && i < len(r.Indicators.AdjClose[0].AdjClose) {
			price = r.Indicators.AdjClose[0].AdjClose[i]
		}
		if price == nil && len(r.Indicators.Quote) > 0 && i < len(r.Indicators.Quote[0].Close) {
			price = r.Indicators.Quote[0].Close[i]
		}
		if price == nil || *price <= 0 {
			continue
		}
		d := time.Unix(ts, 0).UTC()
		points = append(points, models.PricePoint{
			Date:  time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Close: *price,
		})
	}
	return points
}

// quoteSummaryResponse mirrors the subset of v10 quoteSummary we read.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				FiftyTwoWeekHigh struct {
					Raw float64 `json:"raw"`
				} `json:"fiftyTwoWeekHigh"`
			} `json:"summaryDetail"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// HighPrice52w tries the dedicated quoteSummary field, then falls back to
// scanning a one-year daily series for the maximum high.
func (c *Client) HighPrice52w(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	if high, err := c.quoteSummaryHigh(ctx, symbol); err == nil && high > 0 {
		return &models.PriceQuote{
			Value:  models.Price(high),
			Method: "quote_summary",
		}, nil
	} else if err != nil {
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("quoteSummary 52w high unavailable, scanning series")
	}

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1y")
	r, err := c.getChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return models.NoDataQuote("high_52w"), nil
	}

	var max float64
	var maxDate time.Time
	for i, ts := range r.Timestamp {
		if len(r.Indicators.Quote) == 0 || i >= len(r.Indicators.Quote[0].High) {
			continue
		}
		h := r.Indicators.Quote[0].High[i]
		if h != nil && *h > max {
			max = *h
			maxDate = time.Unix(ts, 0).UTC()
		}
	}
	if max <= 0 {
		return models.NoDataQuote("high_52w"), nil
	}
	return &models.PriceQuote{
		Value:      models.Price(max),
		SourceDate: maxDate,
		Method:     "range_scan",
	}, nil
}

func (c *Client) quoteSummaryHigh(ctx context.Context, symbol string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("/v10/finance/quoteSummary/%s", url.PathEscape(symbol))
	reqURL := fmt.Sprintf("%s%s?modules=summaryDetail", c.baseURL, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &APIError{StatusCode: resp.StatusCode, Message: "quoteSummary request failed", Endpoint: endpoint}
	}

	var raw quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(raw.QuoteSummary.Result) == 0 {
		return 0, nil
	}
	return raw.QuoteSummary.Result[0].SummaryDetail.FiftyTwoWeekHigh.Raw, nil
}

// Ensure Client implements PriceSource
var _ interfaces.PriceSource = (*Client)(nil)
