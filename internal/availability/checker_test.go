package availability

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookflow/internal/models"
	"bookflow/internal/pricing"
)

type mockBookingStore struct {
	mock.Mock
}

func (m *mockBookingStore) FindOverlapping(ctx context.Context, resource models.ResourceRef, window models.TimeWindow, statuses []models.BookingStatus, rateID *int64) ([]models.Booking, error) {
	args := m.Called(ctx, resource, window, statuses, rateID)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingStore) SumQuantity(ctx context.Context, resource models.ResourceRef, window models.TimeWindow, statuses []models.BookingStatus, rateID *int64) (int, error) {
	args := m.Called(ctx, resource, window, statuses, rateID)
	return args.Int(0), args.Error(1)
}

type mockRateStore struct {
	mock.Mock
}

func (m *mockRateStore) FindByResource(ctx context.Context, resource models.ResourceRef, serviceType string) ([]models.Rate, error) {
	args := m.Called(ctx, resource, serviceType)
	return args.Get(0).([]models.Rate), args.Error(1)
}

func (m *mockRateStore) FindByID(ctx context.Context, id int64) (*models.Rate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rate), args.Error(1)
}

func (m *mockRateStore) CustomPricesForRate(ctx context.Context, rateID int64) ([]models.CustomPrice, error) {
	args := m.Called(ctx, rateID)
	return args.Get(0).([]models.CustomPrice), args.Error(1)
}

type mockCapacityProvider struct {
	mock.Mock
}

func (m *mockCapacityProvider) CapacityOf(ctx context.Context, resource models.ResourceRef) (int, error) {
	args := m.Called(ctx, resource)
	return args.Int(0), args.Error(1)
}

func datetime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func floatPtr(f float64) *float64 { return &f }

func todPtr(s string) *models.TimeOfDay {
	t := models.MustTimeOfDay(s)
	return &t
}

func newTestChecker(bookings *mockBookingStore, rates *mockRateStore, capacity *mockCapacityProvider) *Checker {
	logger := zerolog.New(io.Discard)
	return NewChecker(bookings, rates, capacity, pricing.DefaultRegistry(), &logger)
}

func TestChecker_CheckAvailability(t *testing.T) {
	ctx := context.Background()
	resource := models.ResourceRef{Type: "room", ID: 1}
	window := models.TimeWindow{Start: datetime(2026, 1, 12, 10, 0), End: datetime(2026, 1, 12, 12, 0)}

	tests := []struct {
		name      string
		booked    int
		capacity  int
		requested int
		available bool
		remaining int
	}{
		{"empty resource", 0, 3, 1, true, 3},
		{"exactly fills capacity", 2, 3, 1, true, 1},
		{"capacity exhausted", 3, 3, 1, false, 0},
		{"oversized request", 0, 3, 4, false, 3},
		{"default capacity of one", 1, 1, 1, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings := new(mockBookingStore)
			capacity := new(mockCapacityProvider)
			bookings.On("SumQuantity", ctx, resource, window, CountedStatuses, (*int64)(nil)).Return(tt.booked, nil).Once()
			capacity.On("CapacityOf", ctx, resource).Return(tt.capacity, nil).Once()

			checker := newTestChecker(bookings, new(mockRateStore), capacity)
			decision, err := checker.CheckAvailability(ctx, resource, window, nil, tt.requested)
			require.NoError(t, err)

			assert.Equal(t, tt.available, decision.Available)
			assert.Equal(t, tt.booked, decision.Booked)
			assert.Equal(t, tt.requested, decision.Requested)
			assert.Equal(t, tt.remaining, decision.Remaining())
			bookings.AssertExpectations(t)
			capacity.AssertExpectations(t)
		})
	}
}

func TestChecker_CheckAvailability_RateFilter(t *testing.T) {
	ctx := context.Background()
	resource := models.ResourceRef{Type: "room", ID: 1}
	window := models.TimeWindow{Start: datetime(2026, 1, 12, 10, 0), End: datetime(2026, 1, 12, 12, 0)}
	rate := &models.Rate{ID: 7}

	bookings := new(mockBookingStore)
	capacity := new(mockCapacityProvider)
	bookings.On("SumQuantity", ctx, resource, window, CountedStatuses, &rate.ID).Return(0, nil).Once()
	capacity.On("CapacityOf", ctx, resource).Return(1, nil).Once()

	checker := newTestChecker(bookings, new(mockRateStore), capacity)
	decision, err := checker.CheckAvailability(ctx, resource, window, rate, 1)
	require.NoError(t, err)
	assert.True(t, decision.Available)
	bookings.AssertExpectations(t)
}

func TestChecker_FindAvailableRates(t *testing.T) {
	ctx := context.Background()
	resource := models.ResourceRef{Type: "room", ID: 1}

	weekday := models.Rate{
		ID:         1,
		Name:       "Weekday",
		StartsAt:   todPtr("09:00"),
		EndsAt:     todPtr("17:00"),
		DaysOfWeek: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}
	evening := models.Rate{
		ID:       2,
		Name:     "Evening",
		StartsAt: todPtr("18:00"),
		EndsAt:   todPtr("23:00"),
	}

	rates := new(mockRateStore)
	rates.On("FindByResource", ctx, resource, "").Return([]models.Rate{weekday, evening}, nil)

	checker := newTestChecker(new(mockBookingStore), rates, new(mockCapacityProvider))

	// Monday 10:00 matches only the weekday rate.
	matched, err := checker.FindAvailableRates(ctx, resource, datetime(2026, 1, 12, 10, 0), "")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, int64(1), matched[0].ID)

	// Monday 19:00 matches only the evening rate.
	matched, err = checker.FindAvailableRates(ctx, resource, datetime(2026, 1, 12, 19, 0), "")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, int64(2), matched[0].ID)
}

func TestIsAvailableForPeriod(t *testing.T) {
	rate := &models.Rate{
		StartsAt: todPtr("09:00"),
		EndsAt:   todPtr("17:00"),
	}

	assert.True(t, IsAvailableForPeriod(rate, datetime(2026, 1, 12, 9, 0), datetime(2026, 1, 12, 17, 0)))
	// 08:00 sample fails immediately.
	assert.False(t, IsAvailableForPeriod(rate, datetime(2026, 1, 12, 8, 0), datetime(2026, 1, 12, 12, 0)))
	// The 18:00 sample is outside the rate window.
	assert.False(t, IsAvailableForPeriod(rate, datetime(2026, 1, 12, 10, 0), datetime(2026, 1, 12, 18, 0)))
}

func TestChecker_FindAvailableTimeSlots(t *testing.T) {
	ctx := context.Background()
	resource := models.ResourceRef{Type: "room", ID: 1}
	date := datetime(2026, 1, 12, 0, 0) // Monday

	rate := models.Rate{
		ID:       1,
		StartsAt: todPtr("09:00"),
		EndsAt:   todPtr("12:00"),
	}

	rates := new(mockRateStore)
	rates.On("FindByResource", ctx, resource, "").Return([]models.Rate{rate}, nil)

	bookings := new(mockBookingStore)
	booked := models.Booking{
		StartsAt: datetime(2026, 1, 12, 10, 0),
		EndsAt:   datetime(2026, 1, 12, 11, 0),
		Status:   models.StatusConfirmed,
	}
	bookings.On("FindOverlapping", ctx, resource, mock.Anything, CountedStatuses, (*int64)(nil)).Return([]models.Booking{booked}, nil)

	checker := newTestChecker(bookings, rates, new(mockCapacityProvider))
	slots, err := checker.FindAvailableTimeSlots(ctx, resource, date, time.Hour, "", nil)
	require.NoError(t, err)

	// Candidates start 09:00..11:00 in 30m steps; anything crossing the
	// 10:00-11:00 booking drops out, touching boundaries stay.
	require.Len(t, slots, 2)
	assert.Equal(t, datetime(2026, 1, 12, 9, 0), slots[0].Window.Start)
	assert.Equal(t, datetime(2026, 1, 12, 11, 0), slots[1].Window.Start)
}

func TestChecker_FindAvailableTimeSlots_SkipsClosedDay(t *testing.T) {
	ctx := context.Background()
	resource := models.ResourceRef{Type: "room", ID: 1}
	saturday := datetime(2026, 1, 17, 0, 0)

	rate := models.Rate{
		ID:         1,
		StartsAt:   todPtr("09:00"),
		EndsAt:     todPtr("17:00"),
		DaysOfWeek: []time.Weekday{time.Monday},
	}

	rates := new(mockRateStore)
	rates.On("FindByResource", ctx, resource, "").Return([]models.Rate{rate}, nil)
	bookings := new(mockBookingStore)
	bookings.On("FindOverlapping", ctx, resource, mock.Anything, CountedStatuses, (*int64)(nil)).Return([]models.Booking{}, nil)

	checker := newTestChecker(bookings, rates, new(mockCapacityProvider))
	slots, err := checker.FindAvailableTimeSlots(ctx, resource, saturday, time.Hour, "", nil)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestChecker_FindPrices(t *testing.T) {
	ctx := context.Background()
	resource := models.ResourceRef{Type: "room", ID: 1}

	priced := models.Rate{ID: 1, Name: "Hourly", Price: floatPtr(50), Unit: models.UnitHour, MinimumUnits: 1}
	manual := models.Rate{ID: 2, Name: "On request", Unit: models.UnitHour, MinimumUnits: 1}

	rates := new(mockRateStore)
	rates.On("FindByResource", ctx, resource, "").Return([]models.Rate{priced, manual}, nil)
	rates.On("CustomPricesForRate", ctx, int64(1)).Return([]models.CustomPrice{}, nil)

	checker := newTestChecker(new(mockBookingStore), rates, new(mockCapacityProvider))
	quotes, err := checker.FindPrices(ctx, resource, datetime(2026, 1, 12, 10, 0), datetime(2026, 1, 12, 12, 0), "")
	require.NoError(t, err)

	// The manual-quote rate is skipped.
	require.Len(t, quotes, 1)
	assert.Equal(t, 2, quotes[0].Units)
	assert.InDelta(t, 100.0, quotes[0].Total, 1e-9)
}
