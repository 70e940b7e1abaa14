package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dhkim-dev/priceboard/internal/market"
	"github.com/dhkim-dev/priceboard/internal/models"
)

// kosdaqVolatilityFactor amplifies KOSPI moves when estimating a KOSDAQ
// level from the correlated index: KOSDAQ historically swings harder.
const kosdaqVolatilityFactor = 1.2

// timeframeFor picks the mobile API window parameter by query age.
func timeframeFor(daysBack int) string {
	switch {
	case daysBack <= 1:
		return "1d"
	case daysBack <= 90:
		return "3m"
	case daysBack <= 180:
		return "6m"
	default:
		return "1y"
	}
}

// decayFactor is the haircut applied to the current price when no
// historical figure is obtainable at all: ~2% for weekly lookbacks, ~5%
// for monthly, ~10% for YTD and older.
func decayFactor(daysBack int) float64 {
	switch {
	case daysBack <= 9:
		return 0.98
	case daysBack <= 40:
		return 0.95
	default:
		return 0.90
	}
}

// indexPriceNear runs the ordered escalation chain for index symbols:
// mobile JSON API, secondary chart API, cross-index estimation, then the
// time-decay heuristic. Each step is attempted only after the previous one
// produced neither a value nor a fatal outcome; the last transport error is
// surfaced when every step fails.
func (c *Client) indexPriceNear(ctx context.Context, symbol string, date time.Time) (*models.PriceQuote, error) {
	daysBack := daysSince(c.now(), date)

	type strategy struct {
		name string
		run  func() (*models.PriceQuote, error)
	}

	strategies := []strategy{
		{"mobile_api", func() (*models.PriceQuote, error) {
			return c.mobileIndexPrice(ctx, symbol, date, daysBack)
		}},
		{"chart_api", func() (*models.PriceQuote, error) {
			return c.chartIndexPrice(ctx, symbol, date)
		}},
	}
	if symbol == "KOSDAQ" {
		strategies = append(strategies, strategy{"cross_index_estimate", func() (*models.PriceQuote, error) {
			return c.crossIndexEstimate(ctx, date, daysBack)
		}})
	}
	strategies = append(strategies, strategy{"time_decay_estimate", func() (*models.PriceQuote, error) {
		return c.timeDecayEstimate(ctx, symbol, date, daysBack)
	}})

	var lastErr error
	for _, s := range strategies {
		quote, err := s.run()
		if err != nil {
			c.logger.Debug().Err(err).Str("symbol", symbol).Str("strategy", s.name).Msg("History strategy failed, escalating")
			lastErr = err
			continue
		}
		if quote != nil && quote.Value.IsPrice() {
			return quote, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return models.NoDataQuote("index_history"), nil
}

// mobilePriceRow mirrors one entry of the mobile index price API.
type mobilePriceRow struct {
	LocalTradedAt string `json:"localTradedAt"`
	ClosePrice    string `json:"closePrice"`
}

func (c *Client) mobileSeries(ctx context.Context, symbol, timeframe string) ([]models.PricePoint, error) {
	endpoint := fmt.Sprintf("/api/index/%s/price", symbol)
	reqURL := fmt.Sprintf("%s%s?timeframe=%s&page=1&pageSize=60", c.mobileBaseURL, endpoint, timeframe)

	body, err := c.fetch(ctx, reqURL, endpoint)
	if err != nil {
		return nil, err
	}

	var rows []mobilePriceRow
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		return nil, fmt.Errorf("failed to decode mobile series: %w", err)
	}

	points := make([]models.PricePoint, 0, len(rows))
	for _, row := range rows {
		d, err := time.Parse("2006-01-02", row.LocalTradedAt)
		if err != nil {
			continue
		}
		if v, ok := parseFigure(row.ClosePrice); ok {
			points = append(points, models.PricePoint{Date: d, Close: v})
		}
	}
	return points, nil
}

func (c *Client) mobileIndexPrice(ctx context.Context, symbol string, date time.Time, daysBack int) (*models.PriceQuote, error) {
	points, err := c.mobileSeries(ctx, symbol, timeframeFor(daysBack))
	if err != nil {
		return nil, err
	}
	if p, ok := market.ClosestPoint(points, date, c.now()); ok {
		return &models.PriceQuote{
			Value:      models.Price(p.Close),
			SourceDate: p.Date,
			Method:     "mobile_api",
		}, nil
	}
	return nil, nil
}

// chartSeries reads the secondary chart endpoint, a JSON-ish array of
// ["yyyy.mm.dd", open, high, low, close, volume] rows.
func (c *Client) chartSeries(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	endpoint := "/siseJson.naver"
	reqURL := fmt.Sprintf("%s%s?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.baseURL, endpoint, symbol, from.Format("20060102"), to.Format("20060102"))

	body, err := c.fetch(ctx, reqURL, endpoint)
	if err != nil {
		return nil, err
	}

	rows := chartRowPattern.FindAllStringSubmatch(body, -1)
	points := make([]models.PricePoint, 0, len(rows))
	for _, m := range rows {
		d, err := time.Parse("2006.01.02", m[1])
		if err != nil {
			continue
		}
		if v, ok := parseFigure(m[2]); ok {
			points = append(points, models.PricePoint{Date: d, Close: v})
		}
	}
	return points, nil
}

func (c *Client) chartIndexPrice(ctx context.Context, symbol string, date time.Time) (*models.PriceQuote, error) {
	points, err := c.chartSeries(ctx, symbol, date.AddDate(0, 0, -20), date.AddDate(0, 0, 2))
	if err != nil {
		return nil, err
	}
	if p, ok := market.ClosestPoint(points, date, c.now()); ok {
		return &models.PriceQuote{
			Value:      models.Price(p.Close),
			SourceDate: p.Date,
			Method:     "chart_api",
		}, nil
	}
	return nil, nil
}

// crossIndexEstimate reconstructs a historical KOSDAQ level from KOSPI,
// whose history is reliably served: scale today's KOSDAQ by KOSPI's move
// over the same window, amplified by the volatility factor.
func (c *Client) crossIndexEstimate(ctx context.Context, date time.Time, daysBack int) (*models.PriceQuote, error) {
	refHist, err := c.mobileIndexPrice(ctx, "KOSPI", date, daysBack)
	if err != nil || refHist == nil {
		if err != nil {
			return nil, err
		}
		refHist, err = c.chartIndexPrice(ctx, "KOSPI", date)
		if err != nil || refHist == nil {
			return nil, err
		}
	}

	refCur, err := c.CurrentPrice(ctx, "KOSPI")
	if err != nil {
		return nil, err
	}
	cur, err := c.CurrentPrice(ctx, "KOSDAQ")
	if err != nil {
		return nil, err
	}
	if !refCur.Value.IsPrice() || !cur.Value.IsPrice() || refCur.Value.Amount == 0 {
		return nil, nil
	}

	ratio := refHist.Value.Amount / refCur.Value.Amount
	est := cur.Value.Amount * (1 + (ratio-1)*kosdaqVolatilityFactor)

	return &models.PriceQuote{
		Value:       models.Price(est),
		SourceDate:  refHist.SourceDate,
		IsEstimated: true,
		Method:      "cross_index_estimate",
	}, nil
}

// timeDecayEstimate is the last resort: haircut the current price by how
// far back the request reaches.
func (c *Client) timeDecayEstimate(ctx context.Context, symbol string, date time.Time, daysBack int) (*models.PriceQuote, error) {
	cur, err := c.CurrentPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if !cur.Value.IsPrice() {
		return nil, nil
	}
	return &models.PriceQuote{
		Value:       models.Price(cur.Value.Amount * decayFactor(daysBack)),
		SourceDate:  date,
		IsEstimated: true,
		Method:      "time_decay_estimate",
	}, nil
}

// maxDailyPages bounds the daily-table walk for stock history.
const maxDailyPages = 20

// dailySeries pages through the stock daily price table until the window
// around the target date is covered or the page cap is reached.
func (c *Client) dailySeries(ctx context.Context, symbol string, target time.Time) ([]models.PricePoint, error) {
	endpoint := "/item/sise_day.naver"
	oldest := target.AddDate(0, 0, -20)

	var points []models.PricePoint
	for page := 1; page <= maxDailyPages; page++ {
		reqURL := fmt.Sprintf("%s%s?code=%s&page=%d", c.baseURL, endpoint, symbol, page)
		body, err := c.fetch(ctx, reqURL, endpoint)
		if err != nil {
			return nil, err
		}

		rows := dailyRowPattern.FindAllStringSubmatch(body, -1)
		if len(rows) == 0 {
			break
		}

		covered := false
		for _, m := range rows {
			d, err := time.Parse("2006.01.02", m[1])
			if err != nil {
				continue
			}
			if v, ok := parseFigure(m[2]); ok {
				points = append(points, models.PricePoint{Date: d, Close: v})
			}
			if d.Before(oldest) {
				covered = true
			}
		}
		if covered {
			break
		}
	}
	return points, nil
}

// stockPriceNear reads the daily price table with closest-date matching,
// estimating from the current price when the table cannot reach the date.
func (c *Client) stockPriceNear(ctx context.Context, symbol string, date time.Time) (*models.PriceQuote, error) {
	daysBack := daysSince(c.now(), date)

	points, err := c.dailySeries(ctx, symbol, date)
	if err == nil {
		if p, ok := market.ClosestPoint(points, date, c.now()); ok {
			return &models.PriceQuote{
				Value:      models.Price(p.Close),
				SourceDate: p.Date,
				Method:     "daily_table",
			}, nil
		}
	} else {
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("Daily table unavailable, estimating")
	}

	quote, estErr := c.timeDecayEstimate(ctx, symbol, date, daysBack)
	if estErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, estErr
	}
	if quote == nil || !quote.Value.IsPrice() {
		return models.NoDataQuote("daily_table"), nil
	}
	return quote, nil
}

// indexHigh52w scans a one-year series for the maximum close; the current
// price stands in, flagged estimated, when no series is obtainable.
func (c *Client) indexHigh52w(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	points, err := c.mobileSeries(ctx, symbol, "1y")
	if err != nil {
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("Mobile series unavailable for 52w high")
		points, err = c.chartSeries(ctx, symbol, c.now().AddDate(-1, 0, 0), c.now())
		if err != nil {
			return nil, err
		}
	}

	var max float64
	var maxDate time.Time
	for _, p := range points {
		if p.Close > max {
			max = p.Close
			maxDate = p.Date
		}
	}
	if max > 0 {
		return &models.PriceQuote{
			Value:      models.Price(max),
			SourceDate: maxDate,
			Method:     "series_scan",
		}, nil
	}

	cur, err := c.CurrentPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if !cur.Value.IsPrice() {
		return models.NoDataQuote("index_high52"), nil
	}
	return &models.PriceQuote{
		Value:       cur.Value,
		SourceDate:  cur.SourceDate,
		IsEstimated: true,
		Method:      "current_as_high",
	}, nil
}

// daysSince returns whole calendar days between now and a past date.
func daysSince(now, date time.Time) int {
	d := now.Sub(date)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
