// Package aggregator orchestrates reference-date resolution and
// multi-source price lookup into per-ticker return reports.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dhkim-dev/priceboard/internal/common"
	"github.com/dhkim-dev/priceboard/internal/interfaces"
	"github.com/dhkim-dev/priceboard/internal/market"
	"github.com/dhkim-dev/priceboard/internal/models"
	"github.com/dhkim-dev/priceboard/internal/returns"
)

// DefaultWorkers bounds cross-ticker fan-out to avoid upstream throttling.
const DefaultWorkers = 5

// Service implements the Aggregator interface.
type Service struct {
	router   interfaces.SourceRouter
	calendar *market.Calendar
	logger   *common.Logger
	workers  int
	now      func() time.Time // injectable clock for testing
}

// NewService creates an aggregator. workers <= 0 selects DefaultWorkers.
func NewService(router interfaces.SourceRouter, calendar *market.Calendar, logger *common.Logger, workers int) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{
		router:   router,
		calendar: calendar,
		logger:   logger,
		workers:  workers,
		now:      time.Now,
	}
}

// ResolveTicker produces the full report for one ticker. Transport failures
// in any one price slot are mapped to NO_DATA for that slot only, so a
// missing historical price never poisons the other windows.
func (s *Service) ResolveTicker(ctx context.Context, ticker models.Ticker, refDate time.Time) (*models.TickerReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	resolver := market.NewResolver(now)
	window := resolver.Window(refDate)
	region := market.RegionOf(ticker.Source, ticker.Symbol)
	source := s.router.Route(ticker.Source)
	symbol := s.router.NormalizeSymbol(ticker.Symbol, ticker.Source)

	report := &models.TickerReport{
		ID:        uuid.NewString(),
		Ticker:    ticker,
		Region:    region,
		FetchedAt: now,
		Window:    window,
	}

	session := s.calendar.MostRecentSession(region, now)
	if session.IsCurrentSession {
		report.AddNote("market mid-session; last final close %s", session.Date.Format("2006-01-02"))
	}

	report.Current = s.lookup(report, "current", func() (*models.PriceQuote, error) {
		return source.CurrentPrice(ctx, symbol)
	})
	report.WeekAgo = s.lookup(report, "week_ago", func() (*models.PriceQuote, error) {
		return source.PriceNear(ctx, symbol, window.WeekAgo)
	})
	report.MonthAgo = s.lookup(report, "month_ago", func() (*models.PriceQuote, error) {
		return source.PriceNear(ctx, symbol, window.MonthAgo)
	})
	report.YearStart = s.lookup(report, "year_start", func() (*models.PriceQuote, error) {
		return source.PriceNear(ctx, symbol, window.YearStart)
	})
	report.High52w = s.lookup(report, "high_52w", func() (*models.PriceQuote, error) {
		return source.HighPrice52w(ctx, symbol)
	})

	report.WeeklyReturn = returns.Compute(report.Current.Value, report.WeekAgo.Value)
	report.MonthlyReturn = returns.Compute(report.Current.Value, report.MonthAgo.Value)
	report.YTDReturn = returns.Compute(report.Current.Value, report.YearStart.Value)
	report.HighReturn = returns.Compute(report.Current.Value, report.High52w.Value)

	s.logger.Info().
		Str("ticker", ticker.Symbol).
		Str("source", string(ticker.Source)).
		Str("weekly", report.WeeklyReturn.String()).
		Str("monthly", report.MonthlyReturn.String()).
		Str("ytd", report.YTDReturn.String()).
		Bool("estimated", report.Estimated()).
		Msg("Resolved ticker")

	return report, nil
}

// lookup executes one price slot, converting a transport failure into the
// NO_DATA sentinel for that slot and recording it in the audit notes.
func (s *Service) lookup(report *models.TickerReport, slot string, fn func() (*models.PriceQuote, error)) models.PriceQuote {
	quote, err := fn()
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", report.Ticker.Symbol).Str("slot", slot).Msg("Price lookup failed")
		report.AddNote("%s: %v", slot, err)
		return *models.NoDataQuote(slot)
	}
	if quote == nil {
		return *models.NoDataQuote(slot)
	}
	if quote.IsEstimated {
		report.AddNote("%s estimated via %s", slot, quote.Method)
	}
	return *quote
}

// ResolveAll resolves tickers with bounded concurrency, preserving input
// order. Fallback chains stay sequential within one ticker; parallelism
// exists only across tickers.
func (s *Service) ResolveAll(ctx context.Context, tickers []models.Ticker, refDate time.Time) []*models.TickerReport {
	semaphore := make(chan struct{}, s.workers)

	type result struct {
		idx    int
		report *models.TickerReport
	}
	resultChan := make(chan result, len(tickers))

	for i, t := range tickers {
		go func(idx int, t models.Ticker) {
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			resultChan <- result{idx: idx, report: s.resolveSafe(ctx, t, refDate)}
		}(i, t)
	}

	reports := make([]*models.TickerReport, len(tickers))
	for range tickers {
		r := <-resultChan
		reports[r.idx] = r.report
	}
	return reports
}

// resolveSafe converts a total per-ticker failure, including a panic, into
// an all-sentinel report so one bad ticker never aborts the rest.
func (s *Service) resolveSafe(ctx context.Context, ticker models.Ticker, refDate time.Time) (report *models.TickerReport) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("ticker", ticker.Symbol).Interface("panic", r).Msg("Ticker resolution panicked")
			report = s.sentinelReport(ticker, fmt.Sprintf("resolution panic: %v", r))
		}
	}()

	rep, err := s.ResolveTicker(ctx, ticker, refDate)
	if err != nil {
		return s.sentinelReport(ticker, err.Error())
	}
	return rep
}

// sentinelReport is the all-sentinel error row for one failed ticker.
func (s *Service) sentinelReport(ticker models.Ticker, note string) *models.TickerReport {
	report := &models.TickerReport{
		ID:        uuid.NewString(),
		Ticker:    ticker,
		Region:    market.RegionOf(ticker.Source, ticker.Symbol),
		FetchedAt: s.now(),
		Current:   *models.NoDataQuote("current"),
		WeekAgo:   *models.NoDataQuote("week_ago"),
		MonthAgo:  *models.NoDataQuote("month_ago"),
		YearStart: *models.NoDataQuote("year_start"),
		High52w:   *models.NoDataQuote("high_52w"),

		WeeklyReturn:  models.NoDataReturn(),
		MonthlyReturn: models.NoDataReturn(),
		YTDReturn:     models.NoDataReturn(),
		HighReturn:    models.NoDataReturn(),
	}
	report.AddNote("%s", note)
	return report
}

// Ensure Service implements Aggregator
var _ interfaces.Aggregator = (*Service)(nil)
