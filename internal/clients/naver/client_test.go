package naver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhkim-dev/priceboard/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(
		WithBaseURL(server.URL),
		WithMobileBaseURL(server.URL),
		WithRateLimit(1000),
	)
}

func TestCurrentPrice_Stock(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/main.naver", r.URL.Path)
		assert.Equal(t, "005930", r.URL.Query().Get("code"))
		fmt.Fprint(w, `<p class="no_today"><em><span class="blind">70,500</span></em></p>`)
	})

	quote, err := client.CurrentPrice(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, models.Price(70500), quote.Value)
	assert.Equal(t, "html_current", quote.Method)
	assert.False(t, quote.IsEstimated)
}

func TestCurrentPrice_Index(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sise/sise_index.naver", r.URL.Path)
		assert.Equal(t, "KOSPI", r.URL.Query().Get("code"))
		fmt.Fprint(w, `<em id="now_value">2,456.78</em>`)
	})

	quote, err := client.CurrentPrice(context.Background(), "KOSPI")
	require.NoError(t, err)
	assert.Equal(t, models.Price(2456.78), quote.Value)
}

func TestCurrentPrice_TransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})

	_, err := client.CurrentPrice(context.Background(), "005930")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestHighPrice52w_Stock(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<strong id="_high52weeks">92,100</strong>`)
	})

	quote, err := client.HighPrice52w(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, models.Price(92100), quote.Value)
	assert.Equal(t, "html_high52", quote.Method)
	assert.False(t, quote.IsEstimated)
}

func TestHighPrice52w_CurrentStandsIn(t *testing.T) {
	// No 52-week figure and no comma-grouped number anywhere, so the loose
	// pattern cannot rescue the miss; the current price substitutes, flagged.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<strong id="_nowVal">70500</strong>`)
	})

	quote, err := client.HighPrice52w(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, models.Price(70500), quote.Value)
	assert.Equal(t, "current_as_high", quote.Method)
	assert.True(t, quote.IsEstimated)
}

func TestHighPrice52w_NoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>maintenance</body></html>`)
	})

	quote, err := client.HighPrice52w(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, models.NoData(), quote.Value)
}
