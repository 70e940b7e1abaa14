package naver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhkim-dev/priceboard/internal/models"
)

func TestTimeframeFor(t *testing.T) {
	assert.Equal(t, "1d", timeframeFor(0))
	assert.Equal(t, "1d", timeframeFor(1))
	assert.Equal(t, "3m", timeframeFor(7))
	assert.Equal(t, "3m", timeframeFor(90))
	assert.Equal(t, "6m", timeframeFor(91))
	assert.Equal(t, "6m", timeframeFor(180))
	assert.Equal(t, "1y", timeframeFor(200))
	assert.Equal(t, "1y", timeframeFor(365))
}

func TestDecayFactor(t *testing.T) {
	assert.Equal(t, 0.98, decayFactor(7))
	assert.Equal(t, 0.95, decayFactor(30))
	assert.Equal(t, 0.90, decayFactor(50))
	assert.Equal(t, 0.90, decayFactor(365))
}

func TestIndexPriceNear_MobileAPI(t *testing.T) {
	now := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	target := now.AddDate(0, 0, -200)
	nearby := target.AddDate(0, 0, 8)

	var gotTimeframe string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/index/KOSPI/price", r.URL.Path)
		gotTimeframe = r.URL.Query().Get("timeframe")
		fmt.Fprintf(w, `[{"localTradedAt":%q,"closePrice":"2,380.55"}]`, nearby.Format("2006-01-02"))
	})
	client.now = func() time.Time { return now }

	quote, err := client.PriceNear(context.Background(), "KOSPI", target)
	require.NoError(t, err)

	// A 200-day lookback selects the widest timeframe, and the 8-day miss
	// sits inside the 15-day tolerance for queries that old.
	assert.Equal(t, "1y", gotTimeframe)
	assert.Equal(t, models.Price(2380.55), quote.Value)
	assert.Equal(t, "mobile_api", quote.Method)
	assert.Equal(t, nearby, quote.SourceDate)
	assert.False(t, quote.IsEstimated)
}

func TestIndexPriceNear_EscalatesToChartAPI(t *testing.T) {
	now := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	target := now.AddDate(0, 0, -7)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/index/"):
			http.Error(w, "gone", http.StatusNotFound)
		case r.URL.Path == "/siseJson.naver":
			fmt.Fprintf(w, `[["%s", 2440.00, 2460.00, 2430.00, 2450.31, 540000]]`,
				target.Format("2006.01.02"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	client.now = func() time.Time { return now }

	quote, err := client.PriceNear(context.Background(), "KOSPI", target)
	require.NoError(t, err)
	assert.Equal(t, models.Price(2450.31), quote.Value)
	assert.Equal(t, "chart_api", quote.Method)
}

func TestIndexPriceNear_CrossIndexEstimate(t *testing.T) {
	now := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	target := now.AddDate(0, 0, -7)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/index/KOSDAQ/price":
			fmt.Fprint(w, `[]`)
		case r.URL.Path == "/api/index/KOSPI/price":
			fmt.Fprintf(w, `[{"localTradedAt":%q,"closePrice":"2,400.00"}]`, target.Format("2006-01-02"))
		case r.URL.Path == "/siseJson.naver":
			fmt.Fprint(w, `[]`)
		case r.URL.Path == "/sise/sise_index.naver" && r.URL.Query().Get("code") == "KOSPI":
			fmt.Fprint(w, `<em id="now_value">2,500.00</em>`)
		case r.URL.Path == "/sise/sise_index.naver" && r.URL.Query().Get("code") == "KOSDAQ":
			fmt.Fprint(w, `<em id="now_value">800.00</em>`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	client.now = func() time.Time { return now }

	quote, err := client.PriceNear(context.Background(), "KOSDAQ", target)
	require.NoError(t, err)

	// KOSPI fell 4% over the window; KOSDAQ's estimate amplifies the move by
	// the volatility factor: 800 * (1 - 0.04*1.2) = 761.6.
	assert.InDelta(t, 761.6, quote.Value.Amount, 0.001)
	assert.Equal(t, "cross_index_estimate", quote.Method)
	assert.True(t, quote.IsEstimated)
}

func TestIndexPriceNear_TimeDecayLastResort(t *testing.T) {
	now := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	target := now.AddDate(0, 0, -50)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/index/"):
			fmt.Fprint(w, `[]`)
		case r.URL.Path == "/siseJson.naver":
			fmt.Fprint(w, `[]`)
		case r.URL.Path == "/sise/sise_index.naver":
			fmt.Fprint(w, `<em id="now_value">2,500.00</em>`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	client.now = func() time.Time { return now }

	quote, err := client.PriceNear(context.Background(), "KOSPI", target)
	require.NoError(t, err)

	// 50 days back takes the 10% haircut.
	assert.InDelta(t, 2250, quote.Value.Amount, 0.001)
	assert.Equal(t, "time_decay_estimate", quote.Method)
	assert.True(t, quote.IsEstimated)
	assert.Equal(t, target, quote.SourceDate)
}

func TestStockPriceNear_DailyTable(t *testing.T) {
	now := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	target := now.AddDate(0, 0, -7)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/sise_day.naver", r.URL.Path)
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `<html></html>`)
			return
		}
		for i := 0; i < 25; i++ {
			d := now.AddDate(0, 0, -i)
			fmt.Fprintf(w, `<tr><td><span class="tah p10 gray03">%s</span></td><td><span class="tah p11">%d</span></td></tr>`,
				d.Format("2006.01.02"), 70000+i*100)
		}
	})
	client.now = func() time.Time { return now }

	quote, err := client.PriceNear(context.Background(), "005930", target)
	require.NoError(t, err)
	assert.Equal(t, models.Price(70700), quote.Value)
	assert.Equal(t, "daily_table", quote.Method)
	assert.Equal(t, target, quote.SourceDate)
}

func TestStockPriceNear_DecayWhenTableEmpty(t *testing.T) {
	now := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	target := now.AddDate(0, 0, -7)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/item/sise_day.naver" {
			fmt.Fprint(w, `<html></html>`)
			return
		}
		fmt.Fprint(w, `<strong id="_nowVal">70500</strong>`)
	})
	client.now = func() time.Time { return now }

	quote, err := client.PriceNear(context.Background(), "005930", target)
	require.NoError(t, err)
	assert.InDelta(t, 70500*0.98, quote.Value.Amount, 0.001)
	assert.Equal(t, "time_decay_estimate", quote.Method)
	assert.True(t, quote.IsEstimated)
}

func TestIndexHigh52w_SeriesScan(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/index/KOSPI/price", r.URL.Path)
		assert.Equal(t, "1y", r.URL.Query().Get("timeframe"))
		fmt.Fprint(w, `[
			{"localTradedAt":"2025-06-02","closePrice":"2,380.00"},
			{"localTradedAt":"2025-09-15","closePrice":"2,610.45"},
			{"localTradedAt":"2026-01-05","closePrice":"2,455.00"}
		]`)
	})

	quote, err := client.HighPrice52w(context.Background(), "KOSPI")
	require.NoError(t, err)
	assert.Equal(t, models.Price(2610.45), quote.Value)
	assert.Equal(t, "series_scan", quote.Method)
	assert.False(t, quote.IsEstimated)
}

func TestIndexHigh52w_CurrentStandsIn(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/index/"):
			http.Error(w, "gone", http.StatusNotFound)
		case r.URL.Path == "/siseJson.naver":
			fmt.Fprint(w, `[]`)
		default:
			fmt.Fprint(w, `<em id="now_value">2,456.78</em>`)
		}
	})

	quote, err := client.HighPrice52w(context.Background(), "KOSPI")
	require.NoError(t, err)
	assert.Equal(t, models.Price(2456.78), quote.Value)
	assert.Equal(t, "current_as_high", quote.Method)
	assert.True(t, quote.IsEstimated)
}
