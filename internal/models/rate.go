package models

import (
	"errors"
	"math"
	"time"
)

// Unit is the billable granularity of a rate.
type Unit string

const (
	UnitFixed Unit = "fixed"
	UnitHour  Unit = "hour"
	UnitDay   Unit = "day"
)

var (
	ErrRateUnitMissing    = errors.New("rate unit is not set")
	ErrRateMinimumUnits   = errors.New("rate minimum_units must be at least 1")
	ErrRateMaximumUnits   = errors.New("rate maximum_units must be >= minimum_units")
	ErrRateResourceNeeded = errors.New("rate must reference a resource")
)

// Rate is a pricing and availability rule attached to a resource.
// A nil Price means pricing is handled outside the engine (manual quote);
// the calculator refuses such rates. DaysOfWeek nil or empty means the
// rate applies on every day. StartsAt/EndsAt nil means the rate covers
// the whole day.
type Rate struct {
	ID           int64
	Name         string
	Price        *float64
	Unit         Unit
	StartsAt     *TimeOfDay
	EndsAt       *TimeOfDay
	DaysOfWeek   []time.Weekday
	MinimumUnits int
	MaximumUnits *int
	ResourceType string
	ResourceID   int64
	ServiceType  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Resource returns the owning resource reference.
func (r *Rate) Resource() ResourceRef {
	return ResourceRef{Type: r.ResourceType, ID: r.ResourceID}
}

// Validate checks the rate's own invariants.
func (r *Rate) Validate() error {
	if r.Unit == "" {
		return ErrRateUnitMissing
	}
	if r.MinimumUnits < 1 {
		return ErrRateMinimumUnits
	}
	if r.MaximumUnits != nil && *r.MaximumUnits < r.MinimumUnits {
		return ErrRateMaximumUnits
	}
	if r.ResourceType == "" {
		return ErrRateResourceNeeded
	}
	return nil
}

// RequiresPricing reports whether the time-based strategy applies. A zero
// price is a free flat rate and short-circuits the strategy.
func (r *Rate) RequiresPricing() bool {
	return r.Price != nil && *r.Price > 0
}

// HasTimeBounds reports whether the rate restricts the time of day.
func (r *Rate) HasTimeBounds() bool {
	return r.StartsAt != nil || r.EndsAt != nil
}

// TimeRange returns the effective time-of-day window, defaulting the open
// ends to full-day bounds.
func (r *Rate) TimeRange() (TimeOfDay, TimeOfDay) {
	start, end := StartOfDay, EndOfDay
	if r.StartsAt != nil {
		start = *r.StartsAt
	}
	if r.EndsAt != nil {
		end = *r.EndsAt
	}
	return start, end
}

// AllowsDay reports whether the rate applies on the given weekday.
// Days are time.Weekday values (Sunday = 0).
func (r *Rate) AllowsDay(d time.Weekday) bool {
	if len(r.DaysOfWeek) == 0 {
		return true
	}
	for _, day := range r.DaysOfWeek {
		if day == d {
			return true
		}
	}
	return false
}

// IsAvailableForDateTime reports whether the rate covers the instant:
// the weekday must be allowed and, when the rate has time bounds, the
// wall-clock time must fall within them (inclusive).
func (r *Rate) IsAvailableForDateTime(t time.Time) bool {
	if !r.AllowsDay(t.Weekday()) {
		return false
	}
	if r.HasTimeBounds() {
		start, end := r.TimeRange()
		if !TimeOfDayFrom(t).InRange(start, end) {
			return false
		}
	}
	return true
}

// CalculateUnits converts a window into billable units at the rate's
// granularity, rounding partial units up and clamping to MinimumUnits.
func (r *Rate) CalculateUnits(start, end time.Time) int {
	hours := end.Sub(start).Hours()
	var units int
	if r.Unit == UnitDay {
		units = int(math.Ceil(hours / 24))
	} else {
		units = int(math.Ceil(hours))
	}
	if units < r.MinimumUnits {
		units = r.MinimumUnits
	}
	return units
}

// CalculateTotalPrice multiplies the unit price by the unit count.
// Returns 0 when the rate has no price.
func (r *Rate) CalculateTotalPrice(units int) float64 {
	if r.Price == nil {
		return 0
	}
	return *r.Price * float64(units)
}
