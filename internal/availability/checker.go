// Package availability answers the two questions every admission decision
// depends on: does a rate cover a window, and is there capacity left for it.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bookflow/internal/models"
	"bookflow/internal/pricing"
)

// SlotStep is the stride the slot finder slides candidate windows by.
const SlotStep = 30 * time.Minute

// periodSampleStep is the stride IsAvailableForPeriod samples a window at.
// Rates are assumed to have hour-aligned or coarser boundaries.
const periodSampleStep = time.Hour

// Checker aggregates committed quantity across overlapping bookings and
// compares it against resource capacity.
type Checker struct {
	bookings BookingStore
	rates    RateStore
	capacity CapacityProvider
	registry *pricing.Registry
	logger   *zerolog.Logger
}

// NewChecker wires the capacity ledger.
func NewChecker(bookings BookingStore, rates RateStore, capacity CapacityProvider, registry *pricing.Registry, logger *zerolog.Logger) *Checker {
	return &Checker{
		bookings: bookings,
		rates:    rates,
		capacity: capacity,
		registry: registry,
		logger:   logger,
	}
}

// Decision is the outcome of a capacity check.
type Decision struct {
	Available bool
	Booked    int
	Requested int
	Capacity  int
}

// Remaining is the quantity still free for the window.
func (d Decision) Remaining() int {
	if r := d.Capacity - d.Booked; r > 0 {
		return r
	}
	return 0
}

// CheckAvailability sums the quantity of all capacity-holding bookings that
// overlap the window and compares booked+requested against the resource's
// capacity. A non-nil rate restricts the aggregation to that rate's
// bookings.
func (c *Checker) CheckAvailability(ctx context.Context, resource models.ResourceRef, window models.TimeWindow, rate *models.Rate, quantity int) (Decision, error) {
	var rateID *int64
	if rate != nil {
		rateID = &rate.ID
	}

	booked, err := c.bookings.SumQuantity(ctx, resource, window, CountedStatuses, rateID)
	if err != nil {
		return Decision{}, fmt.Errorf("sum booked quantity: %w", err)
	}

	capacity, err := c.capacity.CapacityOf(ctx, resource)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve capacity: %w", err)
	}

	decision := Decision{
		Available: booked+quantity <= capacity,
		Booked:    booked,
		Requested: quantity,
		Capacity:  capacity,
	}

	c.logger.Debug().
		Str("resource", resource.String()).
		Time("start", window.Start).
		Time("end", window.End).
		Int("booked", booked).
		Int("requested", quantity).
		Int("capacity", capacity).
		Bool("available", decision.Available).
		Msg("capacity check")

	return decision, nil
}

// FindAvailableRates returns the resource's rates whose day/time window
// covers the start instant, optionally filtered by service type.
func (c *Checker) FindAvailableRates(ctx context.Context, resource models.ResourceRef, start time.Time, serviceType string) ([]models.Rate, error) {
	rates, err := c.rates.FindByResource(ctx, resource, serviceType)
	if err != nil {
		return nil, fmt.Errorf("find rates: %w", err)
	}

	matched := rates[:0]
	for _, rate := range rates {
		if rate.IsAvailableForDateTime(start) {
			matched = append(matched, rate)
		}
	}
	return matched, nil
}

// IsAvailableForPeriod walks the window in hourly steps, start and end
// inclusive, requiring the rate to cover every sampled instant. It is an
// approximation between samples, acceptable for hour-aligned rates.
func IsAvailableForPeriod(rate *models.Rate, start, end time.Time) bool {
	for t := start; !t.After(end); t = t.Add(periodSampleStep) {
		if !rate.IsAvailableForDateTime(t) {
			return false
		}
	}
	return true
}

// Slot is a bookable window under a specific rate.
type Slot struct {
	Window models.TimeWindow
	Rate   models.Rate
}

// FindAvailableTimeSlots slides a duration-sized window across each
// matching rate's time-of-day range on the given date, in SlotStep strides.
// A slot is reported when no capacity-holding booking overlaps it.
func (c *Checker) FindAvailableTimeSlots(ctx context.Context, resource models.ResourceRef, date time.Time, duration time.Duration, serviceType string, rateFilter *models.Rate) ([]Slot, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("slot duration must be positive")
	}

	rates, err := c.rates.FindByResource(ctx, resource, serviceType)
	if err != nil {
		return nil, fmt.Errorf("find rates: %w", err)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayWindow := models.TimeWindow{Start: dayStart, End: dayStart.AddDate(0, 0, 1)}

	existing, err := c.bookings.FindOverlapping(ctx, resource, dayWindow, CountedStatuses, nil)
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}

	var slots []Slot
	for _, rate := range rates {
		if rateFilter != nil && rate.ID != rateFilter.ID {
			continue
		}
		if !rate.AllowsDay(date.Weekday()) {
			continue
		}

		rangeStart, rangeEnd := rate.TimeRange()
		cursor := rangeStart.OnDate(date)
		rateEnd := rangeEnd.OnDate(date)

		for !cursor.Add(duration).After(rateEnd) {
			candidate := models.TimeWindow{Start: cursor, End: cursor.Add(duration)}

			free := true
			for i := range existing {
				if candidate.Overlaps(existing[i].Window()) {
					free = false
					break
				}
			}

			if free {
				slots = append(slots, Slot{Window: candidate, Rate: rate})
			}
			cursor = cursor.Add(SlotStep)
		}
	}

	return slots, nil
}

// FindPrices matches rates for the window and prices each one, the quote
// surface callers use before admitting a booking.
func (c *Checker) FindPrices(ctx context.Context, resource models.ResourceRef, start, end time.Time, serviceType string) ([]pricing.Quote, error) {
	rates, err := c.FindAvailableRates(ctx, resource, start, serviceType)
	if err != nil {
		return nil, err
	}

	quotes := make([]pricing.Quote, 0, len(rates))
	for i := range rates {
		rate := rates[i]
		if rate.Price == nil {
			// Manual-quote rates cannot be priced here.
			continue
		}

		customPrices, err := c.rates.CustomPricesForRate(ctx, rate.ID)
		if err != nil {
			return nil, fmt.Errorf("custom prices for rate %d: %w", rate.ID, err)
		}

		calc, err := pricing.NewCalculator(&rate, c.registry, customPrices)
		if err != nil {
			c.logger.Warn().Err(err).Int64("rate_id", rate.ID).Msg("skipping unpriceable rate")
			continue
		}

		quote, err := calc.CalculateQuote(start, end)
		if err != nil {
			return nil, fmt.Errorf("price rate %d: %w", rate.ID, err)
		}
		quotes = append(quotes, *quote)
	}
	return quotes, nil
}
