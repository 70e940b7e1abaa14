package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekAgo(t *testing.T) {
	r := NewResolver(date(2026, time.February, 13))

	// Friday minus 7 days is the prior Friday, no snap needed.
	got := r.WeekAgo(date(2026, time.February, 13))
	assert.Equal(t, date(2026, time.February, 6), got)

	// Monday minus 7 days is the prior Monday.
	got = r.WeekAgo(date(2026, time.February, 9))
	assert.Equal(t, date(2026, time.February, 2), got)
}

func TestWeekAgo_SnapsOutOfWeekend(t *testing.T) {
	r := NewResolver(date(2026, time.February, 21))

	// Saturday minus 7 days lands on Saturday Feb 14; snap back to Friday 13.
	got := r.WeekAgo(date(2026, time.February, 21))
	assert.Equal(t, date(2026, time.February, 13), got)
}

func TestWeekAgo_FutureReferenceGuard(t *testing.T) {
	now := date(2026, time.February, 13)
	r := NewResolver(now)

	// Reference a year ahead of the clock: the offset recomputes from now,
	// so the result is never in the future.
	got := r.WeekAgo(date(2027, time.February, 13))
	assert.False(t, got.After(now))
	assert.Equal(t, date(2026, time.February, 6), got)
}

func TestMonthAgo_CalendarArithmetic(t *testing.T) {
	r := NewResolver(date(2026, time.March, 31))

	// Calendar month, not 30 days: Mar 31 minus one month normalizes to
	// Mar 3 (Feb has 28 days in 2026), which is a Tuesday.
	got := r.MonthAgo(date(2026, time.March, 31))
	assert.Equal(t, date(2026, time.March, 3), got)

	// Plain case: Feb 13 back to Jan 13 (Tuesday).
	got = r.MonthAgo(date(2026, time.February, 13))
	assert.Equal(t, date(2026, time.January, 13), got)
}

func TestMonthAgo_FutureReferenceGuard(t *testing.T) {
	now := date(2026, time.February, 13)
	r := NewResolver(now)

	got := r.MonthAgo(date(2026, time.June, 1))
	assert.False(t, got.After(now))
	assert.Equal(t, date(2026, time.January, 13), got)
}

func TestYearStart(t *testing.T) {
	r := NewResolver(date(2026, time.February, 13))

	// Jan 1 2026 is a Thursday: no snap.
	got := r.YearStart(date(2026, time.February, 13))
	assert.Equal(t, date(2026, time.January, 1), got)
}

func TestYearStart_SnapsBackward(t *testing.T) {
	r := NewResolver(date(2022, time.March, 15))

	// Jan 1 2022 is a Saturday: snap backward to Friday Dec 31 2021.
	got := r.YearStart(date(2022, time.March, 15))
	assert.Equal(t, date(2021, time.December, 31), got)
}

func TestYearStart_FutureYearGuard(t *testing.T) {
	r := NewResolver(date(2026, time.February, 13))

	got := r.YearStart(date(2027, time.June, 1))
	assert.Equal(t, date(2026, time.January, 1), got)
}

func TestWindow_ZeroReferenceDefaultsToNow(t *testing.T) {
	now := date(2026, time.February, 13)
	r := NewResolver(now)

	w := r.Window(time.Time{})
	assert.Equal(t, date(2026, time.February, 13), w.Reference)
	assert.Equal(t, date(2026, time.February, 6), w.WeekAgo)
	assert.Equal(t, date(2026, time.January, 13), w.MonthAgo)
	assert.Equal(t, date(2026, time.January, 1), w.YearStart)
}

func TestWindow_WeekendReferenceSnapped(t *testing.T) {
	now := date(2026, time.February, 15) // Sunday
	r := NewResolver(now)

	w := r.Window(now)
	assert.Equal(t, date(2026, time.February, 13), w.Reference)
}
