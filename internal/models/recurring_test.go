package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(year int, month time.Month, d int) *time.Time {
	t := day(year, month, d)
	return &t
}

func TestRecurringBooking_Occurrences(t *testing.T) {
	// 2026-01-12 is a Monday; window covers two full weeks.
	tpl := RecurringBooking{
		StartTime:  MustTimeOfDay("10:00"),
		EndTime:    MustTimeOfDay("12:00"),
		DaysOfWeek: weekdays(time.Monday, time.Wednesday),
		StartsFrom: day(2026, 1, 12),
		EndsAt:     dayPtr(2026, 1, 25),
	}

	windows, err := tpl.Occurrences(nil)
	require.NoError(t, err)
	require.Len(t, windows, 4)

	assert.Equal(t, datetime(2026, 1, 12, 10, 0), windows[0].Start)
	assert.Equal(t, datetime(2026, 1, 12, 12, 0), windows[0].End)
	assert.Equal(t, datetime(2026, 1, 14, 10, 0), windows[1].Start)
	assert.Equal(t, datetime(2026, 1, 19, 10, 0), windows[2].Start)
	assert.Equal(t, datetime(2026, 1, 21, 10, 0), windows[3].Start)
}

func TestRecurringBooking_Occurrences_UntilBound(t *testing.T) {
	tpl := RecurringBooking{
		StartTime:  MustTimeOfDay("09:00"),
		EndTime:    MustTimeOfDay("10:00"),
		DaysOfWeek: weekdays(time.Monday),
		StartsFrom: day(2026, 1, 12),
	}

	_, err := tpl.Occurrences(nil)
	assert.ErrorIs(t, err, ErrRecurringEndMissing)

	windows, err := tpl.Occurrences(dayPtr(2026, 1, 19))
	require.NoError(t, err)
	assert.Len(t, windows, 2)
}

func TestRecurringBooking_OverlapsWith(t *testing.T) {
	base := RecurringBooking{
		BookableType: "room",
		BookableID:   1,
		StartTime:    MustTimeOfDay("10:00"),
		EndTime:      MustTimeOfDay("12:00"),
		DaysOfWeek:   weekdays(time.Monday, time.Wednesday),
		StartsFrom:   day(2026, 1, 1),
		EndsAt:       dayPtr(2026, 6, 30),
	}

	sameSlot := base
	assert.True(t, base.OverlapsWith(&sameSlot))

	otherResource := base
	otherResource.BookableID = 2
	assert.False(t, base.OverlapsWith(&otherResource))

	disjointDays := base
	disjointDays.DaysOfWeek = weekdays(time.Tuesday, time.Thursday)
	assert.False(t, base.OverlapsWith(&disjointDays))

	touchingTime := base
	touchingTime.StartTime = MustTimeOfDay("12:00")
	touchingTime.EndTime = MustTimeOfDay("14:00")
	assert.False(t, base.OverlapsWith(&touchingTime))

	laterDates := base
	laterDates.StartsFrom = day(2026, 7, 1)
	laterDates.EndsAt = dayPtr(2026, 12, 31)
	assert.False(t, base.OverlapsWith(&laterDates))

	openEnded := base
	openEnded.StartsFrom = day(2026, 5, 1)
	openEnded.EndsAt = nil
	assert.True(t, base.OverlapsWith(&openEnded))
}
