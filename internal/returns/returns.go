// Package returns converts pairs of prices into signed percentage returns.
package returns

import (
	"math"

	"github.com/dhkim-dev/priceboard/internal/models"
)

// Compute turns (current, past) into a percentage return. Rules, in order:
// a NO_DATA input propagates NO_DATA; a non-numeric input or past == 0 is a
// CALC_ERROR; equal inputs are exactly 0.00% (common when a future
// reference date collapses every window to "now"); otherwise
// (current/past - 1) x 100.
func Compute(current, past models.PriceValue) models.Return {
	if current.Kind == models.KindNoData || past.Kind == models.KindNoData {
		return models.NoDataReturn()
	}
	if current.Kind == models.KindCalcError || past.Kind == models.KindCalcError {
		return models.CalcErrorReturn()
	}
	if !isFinite(current.Amount) || !isFinite(past.Amount) {
		return models.CalcErrorReturn()
	}
	if past.Amount == 0 {
		return models.CalcErrorReturn()
	}
	if current.Amount == past.Amount {
		return models.PctReturn(0)
	}
	return models.PctReturn((current.Amount/past.Amount - 1) * 100)
}

// ComputeStrings coerces numeric strings before computing, for callers that
// receive raw text from an upstream payload.
func ComputeStrings(current, past string) models.Return {
	return Compute(models.ParsePrice(current), models.ParsePrice(past))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
