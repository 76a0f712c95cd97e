package pricing

import "errors"

var (
	// ErrInvalidTimeRange means start >= end was passed to Calculate.
	ErrInvalidTimeRange = errors.New("invalid time range for price calculation")

	// ErrInvalidPriceConfiguration means the rate has no unit or no price.
	// Rates without a price require an external quote and never reach a
	// strategy.
	ErrInvalidPriceConfiguration = errors.New("invalid price configuration")

	// ErrInvalidCalculationUnit means no strategy is registered for the
	// rate's unit.
	ErrInvalidCalculationUnit = errors.New("invalid calculation unit specified")

	// ErrUnknownStrategy means the configuration names a strategy identifier
	// the engine does not provide.
	ErrUnknownStrategy = errors.New("unknown pricing strategy identifier")
)
