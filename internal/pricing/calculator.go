package pricing

import (
	"time"

	"bookflow/internal/models"
)

// Calculator prices windows for a single rate. It is pure: the same inputs
// always produce the same result, so one instance can serve any number of
// Calculate calls.
type Calculator struct {
	rate         *models.Rate
	strategy     Strategy
	customPrices []models.CustomPrice
}

// NewCalculator resolves the rate's strategy up front. Rates without a unit
// fail with ErrInvalidPriceConfiguration, rates with an unregistered unit
// with ErrInvalidCalculationUnit.
func NewCalculator(rate *models.Rate, registry *Registry, customPrices []models.CustomPrice) (*Calculator, error) {
	if rate.Unit == "" {
		return nil, ErrInvalidPriceConfiguration
	}
	strategy, err := registry.Resolve(rate.Unit)
	if err != nil {
		return nil, err
	}
	return &Calculator{rate: rate, strategy: strategy, customPrices: customPrices}, nil
}

// UnitPriceAt returns the rate's base price adjusted by the first custom
// price active at the instant.
func (c *Calculator) UnitPriceAt(t time.Time) float64 {
	if c.rate.Price == nil {
		return 0
	}
	base := *c.rate.Price
	for i := range c.customPrices {
		if c.customPrices[i].AppliesTo(t) {
			return c.customPrices[i].ApplyTo(base)
		}
	}
	return base
}

// Calculate prices the window. The effective unit price is resolved at the
// window start, free flat rates are returned as-is, and everything else is
// delegated to the strategy with the rate's unit clamps.
func (c *Calculator) Calculate(start, end time.Time) (float64, error) {
	if !start.Before(end) {
		return 0, ErrInvalidTimeRange
	}
	if c.rate.Price == nil {
		return 0, ErrInvalidPriceConfiguration
	}

	if !c.rate.RequiresPricing() {
		return *c.rate.Price, nil
	}

	var minUnits *int
	if c.rate.MinimumUnits > 0 {
		minUnits = &c.rate.MinimumUnits
	}

	return c.strategy.Calculate(start, end, c.UnitPriceAt(start), minUnits, c.rate.MaximumUnits), nil
}

// Quote is a priced window with its unit breakdown, used by the quote API.
type Quote struct {
	Rate      *models.Rate
	Window    models.TimeWindow
	Units     int
	UnitPrice float64
	Total     float64
}

// CalculateQuote prices the window and reports the unit breakdown.
// Fixed-unit rates quote a single unit.
func (c *Calculator) CalculateQuote(start, end time.Time) (*Quote, error) {
	total, err := c.Calculate(start, end)
	if err != nil {
		return nil, err
	}

	units := 1
	if tu, ok := c.strategy.(TimeUnitStrategy); ok && c.rate.RequiresPricing() {
		var minUnits *int
		if c.rate.MinimumUnits > 0 {
			minUnits = &c.rate.MinimumUnits
		}
		units = tu.Units(start, end, minUnits, c.rate.MaximumUnits)
	}

	return &Quote{
		Rate:      c.rate,
		Window:    models.TimeWindow{Start: start, End: end},
		Units:     units,
		UnitPrice: c.UnitPriceAt(start),
		Total:     total,
	}, nil
}
