package market

import (
	"time"

	"github.com/dhkim-dev/priceboard/internal/models"
)

// matchTolerance returns the acceptable distance in days between a target
// date and the nearest candidate. The window widens with query age because
// older feeds are sparser: 7 days within a month, 10 within a quarter, 15
// beyond.
func matchTolerance(daysBack int) int {
	switch {
	case daysBack <= 30:
		return 7
	case daysBack <= 90:
		return 10
	default:
		return 15
	}
}

// ClosestPoint selects the candidate nearest the target date. An exact date
// match wins immediately regardless of other candidates; otherwise the
// minimum-distance candidate is accepted only within the tolerance window
// for the query's age relative to asOf.
func ClosestPoint(points []models.PricePoint, target, asOf time.Time) (models.PricePoint, bool) {
	if len(points) == 0 {
		return models.PricePoint{}, false
	}

	target = atMidnight(target)
	daysBack := int(atMidnight(asOf).Sub(target).Hours() / 24)

	best := -1
	bestDist := 0
	for i := range points {
		d := atMidnight(points[i].Date)
		dist := daysBetween(d, target)
		if dist == 0 {
			return points[i], true
		}
		if best < 0 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}

	if bestDist > matchTolerance(daysBack) {
		return models.PricePoint{}, false
	}
	return points[best], true
}

// daysBetween returns the absolute whole-day distance between two dates.
func daysBetween(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
