package naver

import (
	"regexp"
	"strconv"
	"strings"
)

// Extraction patterns are ordered, structural-first. Page markup changes
// frequently, so each data point carries several candidates tried in
// sequence; the loose pattern is the last resort when every structural
// pattern misses.

var stockPricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<p class="no_today">.*?<span class="blind">([0-9][0-9,]*(?:\.[0-9]+)?)</span>`),
	regexp.MustCompile(`id="_nowVal"[^>]*>([0-9][0-9,]*(?:\.[0-9]+)?)<`),
	regexp.MustCompile(`"closePrice"\s*:\s*"([0-9][0-9,]*(?:\.[0-9]+)?)"`),
}

var stockHigh52Patterns = []*regexp.Regexp{
	regexp.MustCompile(`id="_high52weeks"[^>]*>([0-9][0-9,]*(?:\.[0-9]+)?)<`),
	regexp.MustCompile(`(?s)<th[^>]*>52.{0,24}?</th>\s*<td[^>]*>\s*<em[^>]*>([0-9][0-9,]*(?:\.[0-9]+)?)<`),
	regexp.MustCompile(`"high52wPrice"\s*:\s*"([0-9][0-9,]*(?:\.[0-9]+)?)"`),
}

var indexPricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`id="now_value"[^>]*>([0-9][0-9,]*(?:\.[0-9]+)?)<`),
	regexp.MustCompile(`(?s)<em id="now_value"[^>]*>.*?([0-9][0-9,]*\.[0-9]+)`),
	regexp.MustCompile(`"closePrice"\s*:\s*"([0-9][0-9,]*(?:\.[0-9]+)?)"`),
}

// loosePricePattern matches any comma-grouped figure. It exists so a page
// redesign degrades to a best-effort read instead of a hard miss.
var loosePricePattern = regexp.MustCompile(`([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]+)?)`)

// dailyRowPattern matches one (date, close) row of the daily price table.
var dailyRowPattern = regexp.MustCompile(`(?s)<span class="tah p10 gray03">(\d{4}\.\d{2}\.\d{2})</span>.*?<span class="tah p11">([0-9][0-9,]*(?:\.[0-9]+)?)</span>`)

// chartRowPattern matches one row of the siseJson chart payload:
// ["2024.01.02", open, high, low, close, volume].
var chartRowPattern = regexp.MustCompile(`\["(\d{4}\.\d{2}\.\d{2})"\s*,\s*[0-9.]+\s*,\s*[0-9.]+\s*,\s*[0-9.]+\s*,\s*([0-9.]+)`)

// extractPrice tries each structural pattern in order, then the loose
// pattern, returning the first parseable positive figure.
func extractPrice(markup string, patterns []*regexp.Regexp) (float64, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(markup); m != nil {
			if v, ok := parseFigure(m[1]); ok {
				return v, true
			}
		}
	}
	if m := loosePricePattern.FindStringSubmatch(markup); m != nil {
		if v, ok := parseFigure(m[1]); ok {
			return v, true
		}
	}
	return 0, false
}

// parseFigure parses a comma-grouped numeric string.
func parseFigure(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}
