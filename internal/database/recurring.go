package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookflow/internal/models"
)

const recurringColumns = `id, rate_id, bookable_type, bookable_id, customer_type,
	customer_id, start_time, end_time, days_of_week, starts_from, ends_at,
	price, quantity, total, status, COALESCE(notes, ''), created_at, updated_at`

// CreateRecurringBooking stores a weekly template. Date bounds are stored
// in UTC like booking timestamps.
func (db *DB) CreateRecurringBooking(ctx context.Context, r *models.RecurringBooking) (int64, error) {
	now := time.Now()
	var endsAt *time.Time
	if r.EndsAt != nil {
		u := r.EndsAt.UTC()
		endsAt = &u
	}
	result, err := db.ExecContext(ctx, `
		INSERT INTO recurring_bookings (
			rate_id, bookable_type, bookable_id, customer_type, customer_id,
			start_time, end_time, days_of_week, starts_from, ends_at,
			price, quantity, total, status, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RateID,
		r.BookableType,
		r.BookableID,
		r.CustomerType,
		r.CustomerID,
		r.StartTime.String(),
		r.EndTime.String(),
		encodeDays(r.DaysOfWeek),
		r.StartsFrom.UTC(),
		endsAt,
		r.Price,
		r.Quantity,
		r.Total,
		string(r.Status),
		r.Notes,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert recurring booking: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return id, nil
}

// GetRecurringBooking returns the template or ErrBookingNotFound.
func (db *DB) GetRecurringBooking(ctx context.Context, id int64) (*models.RecurringBooking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_bookings WHERE id = ?`, id)
	r, err := scanRecurring(row)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring booking %d: %w", id, err)
	}
	return r, nil
}

// FindRecurringByResource returns the resource's active templates.
func (db *DB) FindRecurringByResource(ctx context.Context, resource models.ResourceRef) ([]models.RecurringBooking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+recurringColumns+` FROM recurring_bookings
		WHERE bookable_type = ? AND bookable_id = ? AND status != 'cancelled'
		ORDER BY id`, resource.Type, resource.ID)
	if err != nil {
		return nil, fmt.Errorf("find recurring bookings for %s: %w", resource, err)
	}
	defer rows.Close()

	var templates []models.RecurringBooking
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring booking: %w", err)
		}
		templates = append(templates, *r)
	}
	return templates, rows.Err()
}

// UpdateRecurringStatus transitions a template.
func (db *DB) UpdateRecurringStatus(ctx context.Context, id int64, status models.BookingStatus) error {
	result, err := db.ExecContext(ctx, `
		UPDATE recurring_bookings SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update recurring booking %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// BookingsForTemplate returns the concrete bookings a template expanded to.
func (db *DB) BookingsForTemplate(ctx context.Context, templateID int64) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE recurring_booking_id = ? ORDER BY starts_at, id`, templateID)
	if err != nil {
		return nil, fmt.Errorf("bookings for template %d: %w", templateID, err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanRecurring(row rowScanner) (*models.RecurringBooking, error) {
	var r models.RecurringBooking
	var startTime, endTime, days, status string
	err := row.Scan(
		&r.ID,
		&r.RateID,
		&r.BookableType,
		&r.BookableID,
		&r.CustomerType,
		&r.CustomerID,
		&startTime,
		&endTime,
		&days,
		&r.StartsFrom,
		&r.EndsAt,
		&r.Price,
		&r.Quantity,
		&r.Total,
		&status,
		&r.Notes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = models.BookingStatus(status)
	if r.StartTime, err = models.ParseTimeOfDay(startTime); err != nil {
		return nil, fmt.Errorf("recurring %d start_time: %w", r.ID, err)
	}
	if r.EndTime, err = models.ParseTimeOfDay(endTime); err != nil {
		return nil, fmt.Errorf("recurring %d end_time: %w", r.ID, err)
	}
	if r.DaysOfWeek, err = decodeDays(days); err != nil {
		return nil, fmt.Errorf("recurring %d days_of_week: %w", r.ID, err)
	}
	return &r, nil
}
