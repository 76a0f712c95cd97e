// Package admission decides whether a booking request is admitted. It runs
// the validation pipeline in a fixed order, holds a per-resource lock across
// the capacity check and the insert, and prices the booking on the way in.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bookflow/internal/availability"
	"bookflow/internal/events"
	"bookflow/internal/metrics"
	"bookflow/internal/models"
	"bookflow/internal/pricing"
)

// BookingStore extends the read side with the writes admission needs.
// Insert must re-check capacity atomically with the write when the backing
// store is shared between processes (see ErrCapacityConflict).
type BookingStore interface {
	availability.BookingStore
	Insert(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status models.BookingStatus) error
}

// Request is a candidate booking. RecurringBookingID links bookings
// generated from a recurring template back to it.
type Request struct {
	Bookable           models.ResourceRef
	Customer           models.ResourceRef
	RateID             int64
	StartsAt           time.Time
	EndsAt             time.Time
	Quantity           int
	ServiceType        string
	Notes              string
	RecurringBookingID *int64
}

// Service is the admission pipeline.
type Service struct {
	bookings BookingStore
	rates    availability.RateStore
	checker  *availability.Checker
	registry *pricing.Registry
	locks    Locker
	bus      *events.Bus
	logger   *zerolog.Logger
}

// NewService wires the pipeline. The bus may be nil when no one listens.
func NewService(bookings BookingStore, rates availability.RateStore, checker *availability.Checker, registry *pricing.Registry, locks Locker, bus *events.Bus, logger *zerolog.Logger) *Service {
	return &Service{
		bookings: bookings,
		rates:    rates,
		checker:  checker,
		registry: registry,
		locks:    locks,
		bus:      bus,
		logger:   logger,
	}
}

// Admit validates the request and, if every check passes, prices and
// persists the booking. Validation order is fixed; the first failing check
// wins and nothing is written. The per-resource lock spans the capacity
// read and the insert.
func (s *Service) Admit(ctx context.Context, req Request) (*models.Booking, error) {
	rate, rerr := s.resolveRate(ctx, req.RateID)
	if rerr != nil {
		return nil, s.rejected(req, rerr)
	}

	if !req.StartsAt.Before(req.EndsAt) {
		return nil, s.rejected(req, reject(ReasonInvalidTimeRange, "booking must start before it ends"))
	}

	if req.Quantity < 1 {
		return nil, s.rejected(req, reject(ReasonInvalidQuantity, "booking quantity must be at least 1"))
	}

	if rate.HasTimeBounds() {
		start, end := rate.TimeRange()
		if !models.TimeOfDayFrom(req.StartsAt).InRange(start, end) ||
			!models.TimeOfDayFrom(req.EndsAt).InRange(start, end) {
			return nil, s.rejected(req, reject(ReasonOutsideRateTimeRange,
				"booking time is outside the rate window %s-%s", start, end))
		}
	}

	if !rate.AllowsDay(req.StartsAt.Weekday()) {
		return nil, s.rejected(req, reject(ReasonDayNotAvailable,
			"rate is not available on %s", req.StartsAt.Weekday()))
	}

	if rate.MaximumUnits != nil && req.Quantity > *rate.MaximumUnits {
		return nil, s.rejected(req, reject(ReasonMaxUnitsExceeded,
			"quantity %d exceeds the rate maximum of %d units", req.Quantity, *rate.MaximumUnits))
	}

	unlock, err := s.locks.Lock(ctx, req.Bookable.String())
	if err != nil {
		return nil, fmt.Errorf("lock resource %s: %w", req.Bookable, err)
	}
	defer unlock()

	window := models.TimeWindow{Start: req.StartsAt, End: req.EndsAt}
	decision, err := s.checker.CheckAvailability(ctx, req.Bookable, window, nil, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !decision.Available {
		return nil, s.rejected(req, rejectCapacity(decision.Remaining(), req.Quantity))
	}

	if rate.ServiceType != "" && req.ServiceType != "" && rate.ServiceType != req.ServiceType {
		return nil, s.rejected(req, reject(ReasonServiceTypeMismatch,
			"rate serves %q, booking requested %q", rate.ServiceType, req.ServiceType))
	}

	booking, err := s.buildBooking(ctx, req, rate)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.Insert(ctx, booking); err != nil {
		if errors.Is(err, ErrCapacityConflict) {
			return nil, s.rejected(req, rejectCapacity(decision.Remaining(), req.Quantity))
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	metrics.IncAdmission("admitted")
	s.logger.Info().
		Str("reference", booking.Reference).
		Str("resource", req.Bookable.String()).
		Time("start", booking.StartsAt).
		Time("end", booking.EndsAt).
		Int("quantity", booking.Quantity).
		Float64("total", booking.Total).
		Msg("booking admitted")

	if s.bus != nil {
		s.bus.Publish(events.TypeBookingAdmitted, booking)
	}
	return booking, nil
}

// Cancel marks a booking cancelled, releasing its capacity. Cancelling an
// already-cancelled booking is a no-op.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if booking.Status == models.StatusCancelled {
		return nil
	}

	if err := s.bookings.UpdateStatus(ctx, id, models.StatusCancelled); err != nil {
		return fmt.Errorf("cancel booking %d: %w", id, err)
	}

	metrics.IncCancellation()
	s.logger.Info().Int64("booking_id", id).Str("reference", booking.Reference).Msg("booking cancelled")

	if s.bus != nil {
		booking.Status = models.StatusCancelled
		s.bus.Publish(events.TypeBookingCancelled, booking)
	}
	return nil
}

func (s *Service) resolveRate(ctx context.Context, rateID int64) (*models.Rate, *Error) {
	if rateID == 0 {
		return nil, reject(ReasonRateRequired, "booking requires a rate")
	}
	rate, err := s.rates.FindByID(ctx, rateID)
	if err != nil || rate == nil {
		return nil, reject(ReasonRateRequired, "rate %d not found", rateID)
	}
	return rate, nil
}

func (s *Service) buildBooking(ctx context.Context, req Request, rate *models.Rate) (*models.Booking, error) {
	customPrices, err := s.rates.CustomPricesForRate(ctx, rate.ID)
	if err != nil {
		return nil, fmt.Errorf("custom prices for rate %d: %w", rate.ID, err)
	}

	calc, err := pricing.NewCalculator(rate, s.registry, customPrices)
	if err != nil {
		return nil, err
	}
	total, err := calc.Calculate(req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &models.Booking{
		Reference:          uuid.NewString(),
		BookableType:       req.Bookable.Type,
		BookableID:         req.Bookable.ID,
		CustomerType:       req.Customer.Type,
		CustomerID:         req.Customer.ID,
		RateID:             rate.ID,
		StartsAt:           req.StartsAt,
		EndsAt:             req.EndsAt,
		Price:              calc.UnitPriceAt(req.StartsAt),
		Quantity:           req.Quantity,
		Total:              total,
		Status:             models.StatusConfirmed,
		ServiceType:        req.ServiceType,
		Notes:              req.Notes,
		RecurringBookingID: req.RecurringBookingID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (s *Service) rejected(req Request, err *Error) error {
	metrics.IncRejection(string(err.Reason))
	s.logger.Warn().
		Str("resource", req.Bookable.String()).
		Str("reason", string(err.Reason)).
		Msg(err.Message)
	return err
}
