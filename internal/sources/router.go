// Package sources selects the right price source for a ticker and
// normalizes symbols to each source's conventions.
package sources

import (
	"regexp"
	"strings"

	"github.com/dhkim-dev/priceboard/internal/common"
	"github.com/dhkim-dev/priceboard/internal/interfaces"
	"github.com/dhkim-dev/priceboard/internal/models"
)

// Router maps source names to clients. Routing is total: an unrecognized
// name logs a warning and substitutes the Yahoo source rather than failing.
type Router struct {
	google interfaces.PriceSource
	yahoo  interfaces.PriceSource
	naver  interfaces.PriceSource
	logger *common.Logger
}

// NewRouter creates a router. google and naver may be nil when their
// clients are not configured; lookups for them fall through to yahoo.
func NewRouter(google, yahoo, naver interfaces.PriceSource, logger *common.Logger) *Router {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Router{
		google: google,
		yahoo:  yahoo,
		naver:  naver,
		logger: logger,
	}
}

// Route returns the PriceSource for a source name.
func (r *Router) Route(source models.Source) interfaces.PriceSource {
	switch models.Source(strings.ToLower(string(source))) {
	case models.SourceGoogle:
		if r.google != nil {
			return r.google
		}
		r.logger.Warn().Msg("Formula gateway not configured, substituting yahoo")
	case models.SourceNaver:
		if r.naver != nil {
			return r.naver
		}
		r.logger.Warn().Msg("Naver client not configured, substituting yahoo")
	case models.SourceYahoo:
		return r.yahoo
	default:
		r.logger.Warn().Str("source", string(source)).Msg("Unknown price source, substituting yahoo")
	}
	return r.yahoo
}

var sixDigitCode = regexp.MustCompile(`^[0-9]{6}$`)

// indexAliases rewrites known index names to each source's canonical code.
var indexAliases = map[string]map[models.Source]string{
	"KOSPI": {
		models.SourceGoogle: "KRX:KOSPI",
		models.SourceYahoo:  "^KS11",
		models.SourceNaver:  "KOSPI",
	},
	"KOSDAQ": {
		models.SourceGoogle: "KRX:KOSDAQ",
		models.SourceYahoo:  "^KQ11",
		models.SourceNaver:  "KOSDAQ",
	},
}

// canonicalIndex recognizes any source's spelling of a known index.
func canonicalIndex(sym string) (string, bool) {
	switch sym {
	case "KOSPI", "KRX:KOSPI", "^KS11":
		return "KOSPI", true
	case "KOSDAQ", "KRX:KOSDAQ", "^KQ11":
		return "KOSDAQ", true
	}
	return "", false
}

// NormalizeSymbol applies source-specific symbol conventions: a bare
// six-digit KRX code gets an exchange prefix for the formula gateway and an
// exchange suffix for yahoo, and passes through unchanged for naver.
func (r *Router) NormalizeSymbol(symbol string, source models.Source) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))

	if name, ok := canonicalIndex(sym); ok {
		if alias, ok := indexAliases[name][source]; ok {
			return alias
		}
		return name
	}

	if sixDigitCode.MatchString(sym) {
		switch source {
		case models.SourceGoogle:
			return "KRX:" + sym
		case models.SourceYahoo:
			return sym + ".KS"
		}
	}

	return sym
}

// Ensure Router implements SourceRouter
var _ interfaces.SourceRouter = (*Router)(nil)
