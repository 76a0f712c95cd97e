package admission

import (
	"errors"
	"fmt"
)

// Reason identifies why a booking request was rejected. Each validation
// step has exactly one reason, so callers can map rejections to precise
// user messages.
type Reason string

const (
	ReasonRateRequired         Reason = "rate_required"
	ReasonInvalidTimeRange     Reason = "invalid_time_range"
	ReasonInvalidQuantity      Reason = "invalid_quantity"
	ReasonOutsideRateTimeRange Reason = "outside_rate_time_range"
	ReasonDayNotAvailable      Reason = "day_not_available"
	ReasonMaxUnitsExceeded     Reason = "max_units_exceeded"
	ReasonCapacityExceeded     Reason = "capacity_exceeded"
	ReasonServiceTypeMismatch  Reason = "service_type_mismatch"
)

// Error is a rejected admission. Capacity rejections carry the
// available-vs-requested counts.
type Error struct {
	Reason    Reason
	Message   string
	Available int
	Requested int
}

func (e *Error) Error() string {
	return e.Message
}

// Is lets errors.Is match two admission errors by reason.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Reason == other.Reason
}

// ReasonOf extracts the rejection reason, or "" for non-admission errors.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func reject(reason Reason, format string, args ...any) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func rejectCapacity(available, requested int) *Error {
	return &Error{
		Reason:    ReasonCapacityExceeded,
		Message:   fmt.Sprintf("Booking exceeds capacity. Available: %d, Requested: %d", available, requested),
		Available: available,
		Requested: requested,
	}
}

// ErrCapacityConflict is returned by stores whose conditional insert found
// the capacity gone between the pipeline check and the write. The service
// maps it to a ReasonCapacityExceeded rejection.
var ErrCapacityConflict = errors.New("capacity taken by concurrent booking")

// ErrBookingNotFound is returned when a booking id cannot be resolved.
var ErrBookingNotFound = errors.New("booking not found")
