package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date, used for rate and
// custom-price time bounds.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time format: %s", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour: %s", s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute: %s", s)
	}

	second := 0
	if len(parts) == 3 {
		second, err = strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return TimeOfDay{}, fmt.Errorf("invalid second: %s", s)
		}
	}

	return TimeOfDay{Hour: hour, Minute: minute, Second: second}, nil
}

// MustTimeOfDay parses s and panics on error. Intended for constants and tests.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayFrom extracts the wall-clock component of an instant.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// seconds since midnight, the comparable form.
func (t TimeOfDay) seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

func (t TimeOfDay) Before(o TimeOfDay) bool { return t.seconds() < o.seconds() }

func (t TimeOfDay) After(o TimeOfDay) bool { return t.seconds() > o.seconds() }

func (t TimeOfDay) Equal(o TimeOfDay) bool { return t.seconds() == o.seconds() }

// InRange reports whether t falls within [start, end] inclusive.
// When start > end the range is treated as crossing midnight, so
// 23:00 is in [22:00, 02:00] and so is 01:00.
func (t TimeOfDay) InRange(start, end TimeOfDay) bool {
	if start.After(end) {
		return !t.Before(start) || !t.After(end)
	}
	return !t.Before(start) && !t.After(end)
}

// OnDate anchors the wall-clock time on the given date, keeping its location.
func (t TimeOfDay) OnDate(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, t.Second, 0, date.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Day bounds used when a rate leaves its time-of-day window open.
var (
	StartOfDay = TimeOfDay{Hour: 0, Minute: 0, Second: 0}
	EndOfDay   = TimeOfDay{Hour: 23, Minute: 59, Second: 59}
)
