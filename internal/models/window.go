package models

import (
	"errors"
	"time"
)

var ErrInvalidWindow = errors.New("window start must be before end")

// TimeWindow is a half-open interval [Start, End). All overlap and duration
// math in the engine goes through this type so the boundary rule stays in
// one place: windows that merely touch do not overlap.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow validates start < end.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if !start.Before(end) {
		return TimeWindow{}, ErrInvalidWindow
	}
	return TimeWindow{Start: start, End: end}, nil
}

// Overlaps uses strict half-open semantics: [a, b) and [c, d) overlap
// iff a < d && c < b.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Contains reports whether the instant falls inside [Start, End).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Hours returns the window length in fractional hours.
func (w TimeWindow) Hours() float64 {
	return w.Duration().Hours()
}

func (w TimeWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}
