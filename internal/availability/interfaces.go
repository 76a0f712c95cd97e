package availability

import (
	"context"

	"bookflow/internal/models"
)

// BookingStore is the read side of the booking storage collaborator.
// A nil rateID means "any rate"; statuses filters by lifecycle state.
type BookingStore interface {
	FindOverlapping(ctx context.Context, resource models.ResourceRef, window models.TimeWindow, statuses []models.BookingStatus, rateID *int64) ([]models.Booking, error)
	SumQuantity(ctx context.Context, resource models.ResourceRef, window models.TimeWindow, statuses []models.BookingStatus, rateID *int64) (int, error)
}

// RateStore resolves rates and their custom prices.
type RateStore interface {
	FindByResource(ctx context.Context, resource models.ResourceRef, serviceType string) ([]models.Rate, error)
	FindByID(ctx context.Context, id int64) (*models.Rate, error)
	CustomPricesForRate(ctx context.Context, rateID int64) ([]models.CustomPrice, error)
}

// CapacityProvider reports how much concurrent quantity a resource can
// serve. Implementations fall back to a configured default when the
// resource exposes no capacity of its own.
type CapacityProvider interface {
	CapacityOf(ctx context.Context, resource models.ResourceRef) (int, error)
}

// CountedStatuses are the lifecycle states that hold capacity. Cancelled
// bookings keep their rows but release their quantity.
var CountedStatuses = []models.BookingStatus{models.StatusPending, models.StatusConfirmed}
