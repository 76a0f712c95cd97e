package models

import "time"

// CustomPrice is a conditional percentage modifier on a rate's base price
// for a specific weekday and time-of-day window. Windows where StartsAt is
// later than EndsAt cross midnight ("22:00"–"02:00" covers the late evening
// and the small hours of the matching weekday).
type CustomPrice struct {
	ID            int64
	RateID        int64
	DayOfWeek     time.Weekday
	StartsAt      TimeOfDay
	EndsAt        TimeOfDay
	PriceModifier float64 // percentage delta, e.g. 25 means +25%
	Description   string
}

// AppliesTo reports whether the modifier is active at the instant.
func (c *CustomPrice) AppliesTo(t time.Time) bool {
	if t.Weekday() != c.DayOfWeek {
		return false
	}
	return TimeOfDayFrom(t).InRange(c.StartsAt, c.EndsAt)
}

// ApplyTo returns the base price adjusted by the percentage modifier.
func (c *CustomPrice) ApplyTo(basePrice float64) float64 {
	return basePrice * (1 + c.PriceModifier/100)
}
