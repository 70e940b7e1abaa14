// Package interfaces defines service contracts for priceboard
package interfaces

import (
	"context"
	"time"

	"github.com/dhkim-dev/priceboard/internal/models"
)

// PriceSource resolves prices for one data source. Implementations return a
// NO_DATA sentinel quote when the upstream is reachable but holds no
// parseable value, and an error only for transport-level failure (timeout,
// non-200, malformed payload).
type PriceSource interface {
	// CurrentPrice retrieves the latest price for a symbol
	CurrentPrice(ctx context.Context, symbol string) (*models.PriceQuote, error)

	// PriceNear retrieves the price closest to the given date, applying the
	// source's internal fallback chain
	PriceNear(ctx context.Context, symbol string, date time.Time) (*models.PriceQuote, error)

	// HighPrice52w retrieves the 52-week high price
	HighPrice52w(ctx context.Context, symbol string) (*models.PriceQuote, error)
}

// SourceRouter selects a PriceSource by configured source name and
// normalizes symbols to each source's conventions.
type SourceRouter interface {
	// Route returns the PriceSource for a source name. Routing is total:
	// unknown names substitute the default source rather than failing.
	Route(source models.Source) PriceSource

	// NormalizeSymbol rewrites a symbol to the source's convention
	// (exchange prefixes/suffixes, canonical index codes).
	NormalizeSymbol(symbol string, source models.Source) string
}
