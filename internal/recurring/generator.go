// Package recurring creates weekly booking templates and expands them into
// concrete bookings through the admission pipeline.
package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bookflow/internal/admission"
	"bookflow/internal/models"
)

// ErrTemplateConflict is returned when a new template's schedule collides
// with an existing one for the same resource.
var ErrTemplateConflict = errors.New("booking overlaps with existing booking")

// Store persists templates and tracks their generated bookings.
type Store interface {
	CreateRecurringBooking(ctx context.Context, r *models.RecurringBooking) (int64, error)
	GetRecurringBooking(ctx context.Context, id int64) (*models.RecurringBooking, error)
	FindRecurringByResource(ctx context.Context, resource models.ResourceRef) ([]models.RecurringBooking, error)
	UpdateRecurringStatus(ctx context.Context, id int64, status models.BookingStatus) error
	BookingsForTemplate(ctx context.Context, templateID int64) ([]models.Booking, error)
}

// Admitter runs booking requests through the admission pipeline.
type Admitter interface {
	Admit(ctx context.Context, req admission.Request) (*models.Booking, error)
	Cancel(ctx context.Context, id int64) error
}

// Generator owns the template lifecycle.
type Generator struct {
	store    Store
	admitter Admitter
	logger   *zerolog.Logger
}

func NewGenerator(store Store, admitter Admitter, logger *zerolog.Logger) *Generator {
	return &Generator{store: store, admitter: admitter, logger: logger}
}

// CreateTemplate stores a template after checking it against the resource's
// existing ones. Two templates conflict when they share a weekday, their
// time-of-day windows overlap and their date ranges intersect.
func (g *Generator) CreateTemplate(ctx context.Context, template *models.RecurringBooking) (int64, error) {
	if !template.StartTime.Before(template.EndTime) {
		return 0, fmt.Errorf("template must start before it ends")
	}
	if len(template.DaysOfWeek) == 0 {
		return 0, fmt.Errorf("template needs at least one weekday")
	}
	if template.Quantity < 1 {
		template.Quantity = 1
	}
	if template.Status == "" {
		template.Status = models.StatusConfirmed
	}

	existing, err := g.store.FindRecurringByResource(ctx, template.Bookable())
	if err != nil {
		return 0, fmt.Errorf("find templates for %s: %w", template.Bookable(), err)
	}
	for i := range existing {
		if template.OverlapsWith(&existing[i]) {
			return 0, fmt.Errorf("template %d: %w", existing[i].ID, ErrTemplateConflict)
		}
	}

	id, err := g.store.CreateRecurringBooking(ctx, template)
	if err != nil {
		return 0, err
	}

	g.logger.Info().
		Int64("template_id", id).
		Str("resource", template.Bookable().String()).
		Str("start", template.StartTime.String()).
		Str("end", template.EndTime.String()).
		Msg("recurring template created")
	return id, nil
}

// Result reports one expansion run.
type Result struct {
	Created []models.Booking
	Skipped []SkippedOccurrence
}

// SkippedOccurrence is an occurrence the admission pipeline turned down.
type SkippedOccurrence struct {
	Window models.TimeWindow
	Reason admission.Reason
	Err    error
}

// Generate materializes the template's occurrences up to the bound as
// concrete bookings. Occurrences already generated are skipped; occurrences
// the pipeline rejects (a one-off booking took the slot) are reported in
// the result, not treated as errors.
func (g *Generator) Generate(ctx context.Context, templateID int64, until time.Time) (*Result, error) {
	template, err := g.store.GetRecurringBooking(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if template.Status == models.StatusCancelled {
		return nil, fmt.Errorf("template %d is cancelled", templateID)
	}

	windows, err := template.Occurrences(&until)
	if err != nil {
		return nil, err
	}

	generated, err := g.store.BookingsForTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("bookings for template %d: %w", templateID, err)
	}
	seen := make(map[time.Time]bool, len(generated))
	for _, b := range generated {
		seen[b.StartsAt.UTC()] = true
	}

	result := &Result{}
	for _, window := range windows {
		if seen[window.Start.UTC()] {
			continue
		}

		booking, err := g.admitter.Admit(ctx, admission.Request{
			Bookable:           template.Bookable(),
			Customer:           models.ResourceRef{Type: template.CustomerType, ID: template.CustomerID},
			RateID:             template.RateID,
			StartsAt:           window.Start,
			EndsAt:             window.End,
			Quantity:           template.Quantity,
			Notes:              template.Notes,
			RecurringBookingID: &template.ID,
		})
		if err != nil {
			reason := admission.ReasonOf(err)
			if reason == "" {
				return nil, fmt.Errorf("expand template %d: %w", templateID, err)
			}
			result.Skipped = append(result.Skipped, SkippedOccurrence{Window: window, Reason: reason, Err: err})
			g.logger.Warn().
				Int64("template_id", templateID).
				Time("start", window.Start).
				Str("reason", string(reason)).
				Msg("recurring occurrence skipped")
			continue
		}

		result.Created = append(result.Created, *booking)
	}

	g.logger.Info().
		Int64("template_id", templateID).
		Int("created", len(result.Created)).
		Int("skipped", len(result.Skipped)).
		Msg("recurring template expanded")
	return result, nil
}

// CancelTemplate cancels the template and every booking it generated that
// has not started yet.
func (g *Generator) CancelTemplate(ctx context.Context, templateID int64) error {
	if err := g.store.UpdateRecurringStatus(ctx, templateID, models.StatusCancelled); err != nil {
		return err
	}

	generated, err := g.store.BookingsForTemplate(ctx, templateID)
	if err != nil {
		return fmt.Errorf("bookings for template %d: %w", templateID, err)
	}

	now := time.Now()
	for _, b := range generated {
		if b.StartsAt.Before(now) || b.Status == models.StatusCancelled {
			continue
		}
		if err := g.admitter.Cancel(ctx, b.ID); err != nil {
			return fmt.Errorf("cancel generated booking %d: %w", b.ID, err)
		}
	}
	return nil
}
