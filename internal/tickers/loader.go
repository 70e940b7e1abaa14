// Package tickers loads the instrument list from tabular config.
package tickers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dhkim-dev/priceboard/internal/common"
	"github.com/dhkim-dev/priceboard/internal/models"
)

// Load reads an ordered name,symbol,source CSV file.
func Load(path string, logger *common.Logger) ([]models.Ticker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticker file %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, logger)
}

// Parse reads name,symbol,source rows. A header row is detected and
// skipped. Rows with an unrecognized source or too few columns are skipped
// with a warning; input order is preserved.
func Parse(r io.Reader, logger *common.Logger) ([]models.Ticker, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse ticker config: %w", err)
	}

	tickers := make([]models.Ticker, 0, len(records))
	for i, rec := range records {
		if len(rec) < 3 {
			logger.Warn().Int("row", i+1).Msg("Skipping ticker row with too few columns")
			continue
		}

		name := strings.TrimSpace(rec[0])
		symbol := strings.TrimSpace(rec[1])
		rawSource := strings.TrimSpace(rec[2])

		if i == 0 && strings.EqualFold(rawSource, "source") {
			continue // header row
		}

		source, err := models.ParseSource(rawSource)
		if err != nil {
			logger.Warn().Int("row", i+1).Str("symbol", symbol).Str("source", rawSource).Msg("Skipping ticker with unrecognized source")
			continue
		}

		tickers = append(tickers, models.Ticker{
			Name:   name,
			Symbol: symbol,
			Source: source,
		})
	}
	return tickers, nil
}
