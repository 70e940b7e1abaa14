package sources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dhkim-dev/priceboard/internal/common"
	"github.com/dhkim-dev/priceboard/internal/interfaces"
	"github.com/dhkim-dev/priceboard/internal/models"
)

type stubSource struct{ name string }

func (s *stubSource) CurrentPrice(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	return models.NoDataQuote(s.name), nil
}

func (s *stubSource) PriceNear(ctx context.Context, symbol string, date time.Time) (*models.PriceQuote, error) {
	return models.NoDataQuote(s.name), nil
}

func (s *stubSource) HighPrice52w(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	return models.NoDataQuote(s.name), nil
}

var _ interfaces.PriceSource = (*stubSource)(nil)

func TestRoute(t *testing.T) {
	google := &stubSource{name: "google"}
	yahoo := &stubSource{name: "yahoo"}
	naver := &stubSource{name: "naver"}
	r := NewRouter(google, yahoo, naver, common.NewSilentLogger())

	assert.Same(t, interfaces.PriceSource(google), r.Route(models.SourceGoogle))
	assert.Same(t, interfaces.PriceSource(yahoo), r.Route(models.SourceYahoo))
	assert.Same(t, interfaces.PriceSource(naver), r.Route(models.SourceNaver))
	// Source names are matched case-insensitively.
	assert.Same(t, interfaces.PriceSource(google), r.Route(models.Source("GOOGLE")))
}

func TestRoute_SubstitutesYahoo(t *testing.T) {
	yahoo := &stubSource{name: "yahoo"}
	r := NewRouter(nil, yahoo, nil, common.NewSilentLogger())

	// Routing is total: missing clients and unknown names all land on yahoo.
	assert.Same(t, interfaces.PriceSource(yahoo), r.Route(models.SourceGoogle))
	assert.Same(t, interfaces.PriceSource(yahoo), r.Route(models.SourceNaver))
	assert.Same(t, interfaces.PriceSource(yahoo), r.Route(models.Source("bloomberg")))
}

func TestNormalizeSymbol(t *testing.T) {
	r := NewRouter(nil, &stubSource{}, nil, common.NewSilentLogger())

	tests := []struct {
		symbol string
		source models.Source
		want   string
	}{
		{"005930", models.SourceGoogle, "KRX:005930"},
		{"005930", models.SourceYahoo, "005930.KS"},
		{"005930", models.SourceNaver, "005930"},
		{"AAPL", models.SourceYahoo, "AAPL"},
		{" aapl ", models.SourceYahoo, "AAPL"},
		{"KOSPI", models.SourceYahoo, "^KS11"},
		{"^KS11", models.SourceNaver, "KOSPI"},
		{"KOSDAQ", models.SourceGoogle, "KRX:KOSDAQ"},
		{"KRX:KOSDAQ", models.SourceYahoo, "^KQ11"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol+"/"+string(tt.source), func(t *testing.T) {
			assert.Equal(t, tt.want, r.NormalizeSymbol(tt.symbol, tt.source))
		})
	}
}
