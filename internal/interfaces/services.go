package interfaces

import (
	"context"
	"time"

	"github.com/dhkim-dev/priceboard/internal/models"
)

// Aggregator orchestrates date resolution and price lookup for tickers
type Aggregator interface {
	// ResolveTicker produces the full report for one ticker. Per-slot
	// transport failures are mapped to NO_DATA; the returned error is
	// reserved for context cancellation.
	ResolveTicker(ctx context.Context, ticker models.Ticker, refDate time.Time) (*models.TickerReport, error)

	// ResolveAll resolves all tickers with bounded concurrency, preserving
	// input order. A total failure of one ticker yields an all-sentinel
	// report and never aborts the rest.
	ResolveAll(ctx context.Context, tickers []models.Ticker, refDate time.Time) []*models.TickerReport
}
