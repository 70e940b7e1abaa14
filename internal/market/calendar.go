// Package market implements the market calendar and reference-date math.
package market

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dhkim-dev/priceboard/internal/common"
	"github.com/dhkim-dev/priceboard/internal/models"
)

// Profile describes one market's static trading schedule. Profiles are
// hand-maintained configuration, never mutated at runtime.
type Profile struct {
	TZOffsetHours float64
	OpenHour      float64 // fractional hours, e.g. 9.5 = 09:30
	CloseHour     float64
	TradingDays   map[time.Weekday]bool
}

var monToFri = map[time.Weekday]bool{
	time.Monday:    true,
	time.Tuesday:   true,
	time.Wednesday: true,
	time.Thursday:  true,
	time.Friday:    true,
}

var profiles = map[models.MarketRegion]Profile{
	models.RegionDomestic: {TZOffsetHours: 9, OpenHour: 9.0, CloseHour: 15.5, TradingDays: monToFri},
	models.RegionUS:       {TZOffsetHours: -5, OpenHour: 9.5, CloseHour: 16.0, TradingDays: monToFri},
	models.RegionCN:       {TZOffsetHours: 8, OpenHour: 9.5, CloseHour: 15.0, TradingDays: monToFri},
	models.RegionEU:       {TZOffsetHours: 1, OpenHour: 9.0, CloseHour: 17.5, TradingDays: monToFri},
}

// maxSessionWalk bounds the backward walk in MostRecentSession so a
// malformed trading-day mask cannot loop forever.
const maxSessionWalk = 10

var sixDigitCode = regexp.MustCompile(`^[0-9]{6}$`)

// RegionOf maps a source+symbol pair to its market region. The function is
// total: anything unrecognized falls through to the US region.
func RegionOf(source models.Source, symbol string) models.MarketRegion {
	if source == models.SourceNaver {
		return models.RegionDomestic
	}

	sym := strings.ToUpper(strings.TrimSpace(symbol))

	// Strip an exchange prefix such as "KRX:005930".
	code := sym
	if idx := strings.Index(sym, ":"); idx >= 0 {
		code = sym[idx+1:]
	}

	if sixDigitCode.MatchString(code) {
		return models.RegionDomestic
	}
	if code == "KOSPI" || code == "KOSDAQ" || code == "^KS11" || code == "^KQ11" {
		return models.RegionDomestic
	}

	switch {
	case strings.HasSuffix(code, ".KS"), strings.HasSuffix(code, ".KQ"):
		return models.RegionDomestic
	case strings.HasSuffix(code, ".SS"), strings.HasSuffix(code, ".SZ"):
		return models.RegionCN
	case strings.HasSuffix(code, ".L"), strings.HasSuffix(code, ".DE"),
		strings.HasSuffix(code, ".PA"), strings.HasSuffix(code, ".AS"):
		return models.RegionEU
	}

	return models.RegionUS
}

// ProfileFor returns the trading profile for a region, defaulting to the
// US profile for unknown regions.
func ProfileFor(region models.MarketRegion) Profile {
	if p, ok := profiles[region]; ok {
		return p
	}
	return profiles[models.RegionUS]
}

// Session describes the most recent completed trading session for a market.
type Session struct {
	Date             time.Time
	IsCurrentSession bool // market was mid-session at the query instant
	Reason           string
}

// Calendar answers market-open and session questions per region.
type Calendar struct {
	logger *common.Logger
}

// NewCalendar creates a market calendar.
func NewCalendar(logger *common.Logger) *Calendar {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Calendar{logger: logger}
}

// localTime converts an instant to the region's wall-clock time using the
// profile's fixed offset.
func localTime(region models.MarketRegion, t time.Time) time.Time {
	p := ProfileFor(region)
	return t.UTC().Add(time.Duration(p.TZOffsetHours * float64(time.Hour)))
}

// IsOpen reports whether the region's market is in session at the instant.
func (c *Calendar) IsOpen(region models.MarketRegion, instant time.Time) bool {
	p := ProfileFor(region)
	local := localTime(region, instant)
	if !p.TradingDays[local.Weekday()] {
		return false
	}
	h := float64(local.Hour()) + float64(local.Minute())/60.0
	return h >= p.OpenHour && h < p.CloseHour
}

// MostRecentSession returns the latest session whose close price is final.
// It walks backward one calendar day at a time, bounded to maxSessionWalk
// iterations, until it lands on a trading day; if the market is currently
// mid-session it steps back one more session.
func (c *Calendar) MostRecentSession(region models.MarketRegion, instant time.Time) Session {
	p := ProfileFor(region)
	local := localTime(region, instant)
	day := atMidnight(local)

	found := day
	ok := false
	for i := 0; i < maxSessionWalk; i++ {
		if p.TradingDays[found.Weekday()] {
			ok = true
			break
		}
		found = found.AddDate(0, 0, -1)
	}
	if !ok {
		c.logger.Warn().Str("region", string(region)).Msg("No trading day found within session walk bound")
		return Session{Date: found, Reason: fmt.Sprintf("no trading day within %d days", maxSessionWalk)}
	}

	if found.Equal(day) && c.IsOpen(region, instant) {
		prev := found.AddDate(0, 0, -1)
		for i := 0; i < maxSessionWalk && !p.TradingDays[prev.Weekday()]; i++ {
			prev = prev.AddDate(0, 0, -1)
		}
		return Session{
			Date:             prev,
			IsCurrentSession: true,
			Reason:           "market mid-session; current close not final",
		}
	}

	return Session{Date: found, Reason: "most recent completed session"}
}

// atMidnight truncates a time to its calendar date.
func atMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
