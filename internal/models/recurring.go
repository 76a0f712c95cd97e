package models

import (
	"errors"
	"time"
)

var ErrRecurringEndMissing = errors.New("recurring booking needs ends_at or an explicit expansion bound")

// RecurringBooking is a weekly template that expands into individual
// bookings: on each matching weekday between StartsFrom and EndsAt a
// booking for [StartTime, EndTime) is generated. Generated bookings are
// not kept in sync if the template changes afterwards.
type RecurringBooking struct {
	ID           int64
	RateID       int64
	BookableType string
	BookableID   int64
	CustomerType string
	CustomerID   int64
	StartTime    TimeOfDay
	EndTime      TimeOfDay
	DaysOfWeek   []time.Weekday
	StartsFrom   time.Time
	EndsAt       *time.Time // nil = open-ended
	Price        float64
	Quantity     int
	Total        float64
	Status       BookingStatus
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Bookable returns the booked resource reference.
func (r *RecurringBooking) Bookable() ResourceRef {
	return ResourceRef{Type: r.BookableType, ID: r.BookableID}
}

// AllowsDay reports whether the template generates bookings on the weekday.
func (r *RecurringBooking) AllowsDay(d time.Weekday) bool {
	for _, day := range r.DaysOfWeek {
		if day == d {
			return true
		}
	}
	return false
}

// Occurrences returns the concrete booking windows the template expands to,
// walking day by day from StartsFrom through min(EndsAt, until). The until
// bound is required for open-ended templates.
func (r *RecurringBooking) Occurrences(until *time.Time) ([]TimeWindow, error) {
	end := r.EndsAt
	if until != nil && (end == nil || until.Before(*end)) {
		end = until
	}
	if end == nil {
		return nil, ErrRecurringEndMissing
	}

	var windows []TimeWindow
	for day := r.StartsFrom; !day.After(*end); day = day.AddDate(0, 0, 1) {
		if !r.AllowsDay(day.Weekday()) {
			continue
		}
		windows = append(windows, TimeWindow{
			Start: r.StartTime.OnDate(day),
			End:   r.EndTime.OnDate(day),
		})
	}
	return windows, nil
}

// OverlapsWith reports whether two templates for the same bookable would
// generate conflicting bookings: shared weekdays, overlapping time-of-day
// windows (strict, touching boundaries do not conflict), and intersecting
// date ranges.
func (r *RecurringBooking) OverlapsWith(other *RecurringBooking) bool {
	if r.BookableType != other.BookableType || r.BookableID != other.BookableID {
		return false
	}

	shared := false
	for _, d := range r.DaysOfWeek {
		if other.AllowsDay(d) {
			shared = true
			break
		}
	}
	if !shared {
		return false
	}

	if !r.StartTime.Before(other.EndTime) || !other.StartTime.Before(r.EndTime) {
		return false
	}

	if other.EndsAt != nil && other.EndsAt.Before(r.StartsFrom) {
		return false
	}
	if r.EndsAt != nil && r.EndsAt.Before(other.StartsFrom) {
		return false
	}
	return true
}
