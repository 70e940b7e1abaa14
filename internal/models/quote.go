package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind distinguishes a real price from the error sentinels.
type ValueKind int

const (
	KindPrice ValueKind = iota
	KindNoData
	KindCalcError
)

func (k ValueKind) String() string {
	switch k {
	case KindNoData:
		return "NO_DATA"
	case KindCalcError:
		return "CALC_ERROR"
	}
	return "PRICE"
}

// PriceValue is a price amount or a sentinel. Sentinels stand in for
// expected "no value" outcomes; transport failures are errors, not values.
type PriceValue struct {
	Amount float64   `json:"amount"`
	Kind   ValueKind `json:"kind"`
}

// Price wraps a numeric amount.
func Price(v float64) PriceValue {
	return PriceValue{Amount: v, Kind: KindPrice}
}

// NoData is the "upstream reachable but no parseable value" sentinel.
func NoData() PriceValue {
	return PriceValue{Kind: KindNoData}
}

// CalcError is the "value existed but arithmetic failed" sentinel.
func CalcError() PriceValue {
	return PriceValue{Kind: KindCalcError}
}

// IsPrice reports whether the value carries a real amount.
func (v PriceValue) IsPrice() bool {
	return v.Kind == KindPrice
}

func (v PriceValue) String() string {
	if v.Kind != KindPrice {
		return v.Kind.String()
	}
	return strconv.FormatFloat(v.Amount, 'f', -1, 64)
}

// ParsePrice coerces a numeric string into a PriceValue. Thousands
// separators and surrounding whitespace are tolerated. Non-numeric input
// yields the CALC_ERROR sentinel, empty input yields NO_DATA.
func ParsePrice(s string) PriceValue {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoData()
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return CalcError()
	}
	return Price(f)
}

// PriceQuote is one resolved price for one symbol+date. Created fresh per
// aggregation pass and never cached across passes.
type PriceQuote struct {
	Value       PriceValue `json:"value"`
	SourceDate  time.Time  `json:"source_date"`
	IsEstimated bool       `json:"is_estimated"`
	Method      string     `json:"method,omitempty"` // fallback step that produced the value
}

// NoDataQuote builds a sentinel quote recording the method that failed.
func NoDataQuote(method string) *PriceQuote {
	return &PriceQuote{Value: NoData(), Method: method}
}

// PricePoint is one (date, price) candidate from a historical series.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// ReferenceWindow holds the four trading-day-snapped lookup dates for one
// aggregation call.
type ReferenceWindow struct {
	Reference time.Time `json:"reference"`
	WeekAgo   time.Time `json:"week_ago"`
	MonthAgo  time.Time `json:"month_ago"`
	YearStart time.Time `json:"year_start"`
}

// Percent is a percentage value formatted to two decimal places.
type Percent float64

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

// SignedString formats with an explicit leading '+' for positive values.
func (p Percent) SignedString() string {
	if p > 0 {
		return fmt.Sprintf("+%.2f%%", float64(p))
	}
	return fmt.Sprintf("%.2f%%", float64(p))
}

// Return is a computed percentage return or one of the sentinels.
type Return struct {
	Pct  Percent   `json:"pct"`
	Kind ValueKind `json:"kind"`
}

// PctReturn wraps a computed percentage.
func PctReturn(p float64) Return {
	return Return{Pct: Percent(p), Kind: KindPrice}
}

// NoDataReturn is the NO_DATA return sentinel.
func NoDataReturn() Return {
	return Return{Kind: KindNoData}
}

// CalcErrorReturn is the CALC_ERROR return sentinel.
func CalcErrorReturn() Return {
	return Return{Kind: KindCalcError}
}

func (r Return) String() string {
	if r.Kind != KindPrice {
		return r.Kind.String()
	}
	return r.Pct.SignedString()
}

// TickerReport is the terminal output of one per-ticker aggregation:
// the five prices, the four returns, and the audit trail.
type TickerReport struct {
	ID        string          `json:"id"`
	Ticker    Ticker          `json:"ticker"`
	Region    MarketRegion    `json:"region"`
	FetchedAt time.Time       `json:"fetched_at"`
	Window    ReferenceWindow `json:"window"`

	Current   PriceQuote `json:"current"`
	WeekAgo   PriceQuote `json:"week_ago"`
	MonthAgo  PriceQuote `json:"month_ago"`
	YearStart PriceQuote `json:"year_start"`
	High52w   PriceQuote `json:"high_52w"`

	WeeklyReturn  Return `json:"weekly_return"`
	MonthlyReturn Return `json:"monthly_return"`
	YTDReturn     Return `json:"ytd_return"`
	HighReturn    Return `json:"high_return"`

	Notes []string `json:"notes,omitempty"`
}

// Estimated reports whether any of the five prices was synthesized rather
// than measured.
func (r *TickerReport) Estimated() bool {
	for _, q := range []PriceQuote{r.Current, r.WeekAgo, r.MonthAgo, r.YearStart, r.High52w} {
		if q.IsEstimated {
			return true
		}
	}
	return false
}

// AddNote appends a free-text audit note.
func (r *TickerReport) AddNote(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}
