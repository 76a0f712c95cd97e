package pricing

import (
	"fmt"

	"bookflow/internal/models"
)

// Strategy identifiers accepted in configuration.
const (
	StrategyFixed = "fixed"
	StrategyTime  = "time"
)

// Registry maps rate units to pricing strategies. It is built from
// configuration at startup and validated eagerly, so a misconfigured unit
// fails the process instead of the first booking.
type Registry struct {
	strategies map[models.Unit]Strategy
}

// NewRegistry builds a registry from a unit -> strategy-identifier mapping.
// The time strategy derives its granularity from the unit name: the "day"
// unit bills in days, everything else in hours.
func NewRegistry(units map[string]string) (*Registry, error) {
	strategies := make(map[models.Unit]Strategy, len(units))
	for unit, id := range units {
		switch id {
		case StrategyFixed:
			strategies[models.Unit(unit)] = FixedPriceStrategy{}
		case StrategyTime:
			granularity := GranularityHour
			if models.Unit(unit) == models.UnitDay {
				granularity = GranularityDay
			}
			strategies[models.Unit(unit)] = NewTimeUnitStrategy(granularity)
		default:
			return nil, fmt.Errorf("unit %q: %w: %q", unit, ErrUnknownStrategy, id)
		}
	}
	return &Registry{strategies: strategies}, nil
}

// DefaultRegistry covers the built-in units: fixed, hour, day.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(map[string]string{
		string(models.UnitFixed): StrategyFixed,
		string(models.UnitHour):  StrategyTime,
		string(models.UnitDay):   StrategyTime,
	})
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the strategy for a unit.
func (r *Registry) Resolve(unit models.Unit) (Strategy, error) {
	s, ok := r.strategies[unit]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCalculationUnit, unit)
	}
	return s, nil
}

// Units lists the registered units.
func (r *Registry) Units() []models.Unit {
	units := make([]models.Unit, 0, len(r.strategies))
	for u := range r.strategies {
		units = append(units, u)
	}
	return units
}
