package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookflow/internal/admission"
	"bookflow/internal/models"
)

const bookingColumns = `id, reference, bookable_type, bookable_id, customer_type,
	customer_id, rate_id, starts_at, ends_at, price, quantity, total, status,
	service_type, COALESCE(notes, ''), recurring_booking_id, created_at, updated_at, version`

// Insert persists a booking after re-checking capacity inside an immediate
// transaction. The admission pipeline already checked under its lock; this
// re-check closes the gap when several processes share the database file,
// returning admission.ErrCapacityConflict when a concurrent writer won.
//
// Timestamps are stored in UTC: sqlite compares them as text, so mixed
// offsets would break the overlap predicates.
func (db *DB) Insert(ctx context.Context, b *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var booked int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM bookings
		WHERE bookable_type = ? AND bookable_id = ?
		  AND status != 'cancelled'
		  AND starts_at < ? AND ends_at > ?`,
		b.BookableType, b.BookableID, b.EndsAt.UTC(), b.StartsAt.UTC(),
	).Scan(&booked)
	if err != nil {
		return fmt.Errorf("sum booked quantity: %w", err)
	}

	capacity, err := db.capacityOf(ctx, tx, b.BookableType, b.BookableID)
	if err != nil {
		return err
	}
	if booked+b.Quantity > capacity {
		return admission.ErrCapacityConflict
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (
			reference, bookable_type, bookable_id, customer_type, customer_id,
			rate_id, starts_at, ends_at, price, quantity, total, status,
			service_type, notes, recurring_booking_id, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference,
		b.BookableType,
		b.BookableID,
		b.CustomerType,
		b.CustomerID,
		b.RateID,
		b.StartsAt.UTC(),
		b.EndsAt.UTC(),
		b.Price,
		b.Quantity,
		b.Total,
		string(b.Status),
		b.ServiceType,
		b.Notes,
		b.RecurringBookingID,
		b.CreatedAt,
		b.UpdatedAt,
		1,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	b.ID = id
	b.Version = 1
	return nil
}

// GetByID returns the booking or ErrBookingNotFound.
func (db *DB) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, admission.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// GetByReference resolves a booking by its public reference.
func (db *DB) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE reference = ?`, reference)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, admission.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", reference, err)
	}
	return b, nil
}

// UpdateStatus transitions a booking, bumping its version.
func (db *DB) UpdateStatus(ctx context.Context, id int64, status models.BookingStatus) error {
	result, err := db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, updated_at = ?, version = version + 1
		WHERE id = ?`,
		string(status), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update booking %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return admission.ErrBookingNotFound
	}
	return nil
}

// FindOverlapping returns the bookings of a resource whose window strictly
// overlaps the given one. statuses filters lifecycle states (empty = all);
// a non-nil rateID restricts to that rate.
func (db *DB) FindOverlapping(ctx context.Context, resource models.ResourceRef, window models.TimeWindow, statuses []models.BookingStatus, rateID *int64) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE bookable_type = ? AND bookable_id = ?
		  AND starts_at < ? AND ends_at > ?`
	args := []any{resource.Type, resource.ID, window.End.UTC(), window.Start.UTC()}

	if len(statuses) > 0 {
		query += ` AND status IN (?` + repeatPlaceholder(len(statuses)-1) + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	if rateID != nil {
		query += ` AND rate_id = ?`
		args = append(args, *rateID)
	}
	query += ` ORDER BY starts_at, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find overlapping bookings for %s: %w", resource, err)
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

// SumQuantity aggregates the overlapping quantity the way FindOverlapping
// filters, without materializing rows.
func (db *DB) SumQuantity(ctx context.Context, resource models.ResourceRef, window models.TimeWindow, statuses []models.BookingStatus, rateID *int64) (int, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM bookings
		WHERE bookable_type = ? AND bookable_id = ?
		  AND starts_at < ? AND ends_at > ?`
	args := []any{resource.Type, resource.ID, window.End.UTC(), window.Start.UTC()}

	if len(statuses) > 0 {
		query += ` AND status IN (?` + repeatPlaceholder(len(statuses)-1) + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	if rateID != nil {
		query += ` AND rate_id = ?`
		args = append(args, *rateID)
	}

	var sum int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum quantity for %s: %w", resource, err)
	}
	return sum, nil
}

// ListBookings returns all bookings in a time range, newest last. Used by
// the report exporter.
func (db *DB) ListBookings(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE starts_at < ? AND ends_at > ?
		ORDER BY starts_at, id`, to.UTC(), from.UTC())
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
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

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var status string
	err := row.Scan(
		&b.ID,
		&b.Reference,
		&b.BookableType,
		&b.BookableID,
		&b.CustomerType,
		&b.CustomerID,
		&b.RateID,
		&b.StartsAt,
		&b.EndsAt,
		&b.Price,
		&b.Quantity,
		&b.Total,
		&status,
		&b.ServiceType,
		&b.Notes,
		&b.RecurringBookingID,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.Status = models.BookingStatus(status)
	return &b, nil
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
