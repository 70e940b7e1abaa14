// Package models defines data structures for priceboard
package models

import (
	"fmt"
	"strings"
)

// Source identifies a price data source
type Source string

const (
	SourceGoogle Source = "google" // formula gateway (GOOGLEFINANCE expressions)
	SourceYahoo  Source = "yahoo"  // Yahoo Finance chart/quote API
	SourceNaver  Source = "naver"  // Naver Finance HTML/mobile API (KR market only)
)

// ParseSource parses a case-insensitive source name.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "google":
		return SourceGoogle, nil
	case "yahoo":
		return SourceYahoo, nil
	case "naver":
		return SourceNaver, nil
	}
	return "", fmt.Errorf("unknown price source %q", s)
}

// Ticker is one instrument to resolve, loaded from the ticker config.
// Immutable for the duration of a dashboard run.
type Ticker struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Source Source `json:"source"`
}

// MarketRegion identifies the market a symbol trades on
type MarketRegion string

const (
	RegionDomestic MarketRegion = "domestic" // KR (KOSPI/KOSDAQ)
	RegionUS       MarketRegion = "us"
	RegionCN       MarketRegion = "cn"
	RegionEU       MarketRegion = "eu"
)
