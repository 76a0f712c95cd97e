// Package pricing converts booked time windows into billable units and
// prices. Strategies are resolved per rate unit through a Registry that is
// built and validated once at startup.
package pricing

import (
	"math"
	"time"
)

// Strategy computes a price for a window at a given unit price.
// Min/max unit clamps are optional; nil means unbounded.
type Strategy interface {
	Calculate(start, end time.Time, unitPrice float64, minUnits, maxUnits *int) float64
}

// FixedPriceStrategy charges the unit price regardless of window length.
type FixedPriceStrategy struct{}

func (FixedPriceStrategy) Calculate(_, _ time.Time, unitPrice float64, _, _ *int) float64 {
	return unitPrice
}

// Granularity is the unit the TimeUnitStrategy bills in.
type Granularity string

const (
	GranularityHour Granularity = "hour"
	GranularityDay  Granularity = "day"
)

// TimeUnitStrategy bills ceil(duration) units at the configured granularity,
// so a 61-minute hourly booking bills 2 units.
type TimeUnitStrategy struct {
	granularity Granularity
}

func NewTimeUnitStrategy(granularity Granularity) TimeUnitStrategy {
	return TimeUnitStrategy{granularity: granularity}
}

// Units converts the window into a clamped billable unit count.
func (s TimeUnitStrategy) Units(start, end time.Time, minUnits, maxUnits *int) int {
	hours := end.Sub(start).Hours()

	var units int
	if s.granularity == GranularityDay {
		units = int(math.Ceil(hours / 24))
	} else {
		units = int(math.Ceil(hours))
	}

	if minUnits != nil && units < *minUnits {
		units = *minUnits
	}
	if maxUnits != nil && units > *maxUnits {
		units = *maxUnits
	}
	return units
}

func (s TimeUnitStrategy) Calculate(start, end time.Time, unitPrice float64, minUnits, maxUnits *int) float64 {
	return float64(s.Units(start, end, minUnits, maxUnits)) * unitPrice
}
