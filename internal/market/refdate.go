package market

import (
	"time"

	"github.com/dhkim-dev/priceboard/internal/models"
)

// maxWeekendSnap bounds the backward weekend walk in snapToTradingDay.
const maxWeekendSnap = 7

// Resolver converts a nominal reference date into the four trading-day
// lookup dates. "Now" is captured once at construction so all guards within
// one aggregation pass agree on the clock.
type Resolver struct {
	now time.Time
}

// NewResolver creates a resolver anchored at the given instant.
func NewResolver(now time.Time) *Resolver {
	return &Resolver{now: now}
}

// WeekAgo returns the trading day at or before ref minus seven days.
// If ref is set ahead of the clock the offset is recomputed from now, so
// the result is never in the future.
func (r *Resolver) WeekAgo(ref time.Time) time.Time {
	d := ref.AddDate(0, 0, -7)
	if d.After(r.now) {
		d = r.now.AddDate(0, 0, -7)
	}
	return snapToTradingDay(d)
}

// MonthAgo returns the trading day at or before ref minus one calendar
// month. Calendar-month arithmetic, not a fixed 30 days.
func (r *Resolver) MonthAgo(ref time.Time) time.Time {
	d := ref.AddDate(0, -1, 0)
	if d.After(r.now) {
		d = r.now.AddDate(0, -1, 0)
	}
	return snapToTradingDay(d)
}

// YearStart returns the first trading day of ref's year. When ref's year is
// ahead of the clock, the current year is substituted.
func (r *Resolver) YearStart(ref time.Time) time.Time {
	year := ref.Year()
	if year > r.now.Year() {
		year = r.now.Year()
	}
	d := time.Date(year, time.January, 1, 0, 0, 0, 0, ref.Location())
	if d.After(r.now) {
		d = time.Date(r.now.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
	}
	return snapToTradingDay(d)
}

// Window computes all four lookup dates for one aggregation call. A zero
// ref defaults to the captured clock.
func (r *Resolver) Window(ref time.Time) models.ReferenceWindow {
	if ref.IsZero() {
		ref = r.now
	}
	return models.ReferenceWindow{
		Reference: snapToTradingDay(ref),
		WeekAgo:   r.WeekAgo(ref),
		MonthAgo:  r.MonthAgo(ref),
		YearStart: r.YearStart(ref),
	}
}

// snapToTradingDay walks a date backward out of the weekend, bounded.
func snapToTradingDay(d time.Time) time.Time {
	d = atMidnight(d)
	for i := 0; i < maxWeekendSnap; i++ {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			return d
		}
		d = d.AddDate(0, 0, -1)
	}
	return d
}
