package models

import "time"

// BookingStatus is the lifecycle state of a booking. Transitions are
// one-directional: a cancelled booking is never revived.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// ValidStatus reports whether s is a recognized booking status.
func ValidStatus(s BookingStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Booking is a committed reservation of resource capacity for a time window.
// Reference is an opaque external identifier handed to callers.
type Booking struct {
	ID                 int64
	Reference          string
	BookableType       string
	BookableID         int64
	CustomerType       string
	CustomerID         int64
	RateID             int64
	StartsAt           time.Time
	EndsAt             time.Time
	Price              float64 // unit price at admission time
	Quantity           int
	Total              float64
	Status             BookingStatus
	ServiceType        string
	Notes              string
	RecurringBookingID *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
}

// Bookable returns the booked resource reference.
func (b *Booking) Bookable() ResourceRef {
	return ResourceRef{Type: b.BookableType, ID: b.BookableID}
}

// Customer returns the customer reference.
func (b *Booking) Customer() ResourceRef {
	return ResourceRef{Type: b.CustomerType, ID: b.CustomerID}
}

// Window returns the booked interval.
func (b *Booking) Window() TimeWindow {
	return TimeWindow{Start: b.StartsAt, End: b.EndsAt}
}

// OverlapsWith uses the engine-wide half-open overlap rule.
func (b *Booking) OverlapsWith(other *Booking) bool {
	return b.Window().Overlaps(other.Window())
}

// ContainsTime reports whether the instant falls inside [StartsAt, EndsAt).
func (b *Booking) ContainsTime(t time.Time) bool {
	return b.Window().Contains(t)
}

// CountsTowardCapacity reports whether the booking holds capacity.
// Pending bookings hold capacity; only cancellation releases it.
func (b *Booking) CountsTowardCapacity() bool {
	return b.Status != StatusCancelled
}

// Duration returns the booked time span.
func (b *Booking) Duration() time.Duration {
	return b.EndsAt.Sub(b.StartsAt)
}
