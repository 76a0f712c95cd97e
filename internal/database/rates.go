package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bookflow/internal/models"
)

// CreateRate validates and stores a rate, returning its assigned id.
func (db *DB) CreateRate(ctx context.Context, rate *models.Rate) (int64, error) {
	if err := rate.Validate(); err != nil {
		return 0, err
	}

	now := time.Now()
	result, err := db.ExecContext(ctx, `
		INSERT INTO rates (
			name, price, unit, starts_at, ends_at, days_of_week,
			minimum_units, maximum_units, resource_type, resource_id,
			service_type, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.Name,
		rate.Price,
		string(rate.Unit),
		timeOfDayValue(rate.StartsAt),
		timeOfDayValue(rate.EndsAt),
		encodeDays(rate.DaysOfWeek),
		rate.MinimumUnits,
		rate.MaximumUnits,
		rate.ResourceType,
		rate.ResourceID,
		rate.ServiceType,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert rate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last id: %w", err)
	}
	rate.ID = id
	rate.CreatedAt = now
	rate.UpdatedAt = now
	return id, nil
}

const rateColumns = `id, name, price, unit, starts_at, ends_at, days_of_week,
	minimum_units, maximum_units, resource_type, resource_id, service_type,
	created_at, updated_at`

// FindByID returns the rate or ErrRateNotFound.
func (db *DB) FindByID(ctx context.Context, id int64) (*models.Rate, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+rateColumns+` FROM rates WHERE id = ?`, id)
	rate, err := scanRate(row)
	if err == sql.ErrNoRows {
		return nil, ErrRateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find rate %d: %w", id, err)
	}
	return rate, nil
}

// FindByResource returns the resource's rates, optionally restricted to a
// service type. Rates without a service type serve every service.
func (db *DB) FindByResource(ctx context.Context, resource models.ResourceRef, serviceType string) ([]models.Rate, error) {
	query := `SELECT ` + rateColumns + ` FROM rates WHERE resource_type = ? AND resource_id = ?`
	args := []any{resource.Type, resource.ID}
	if serviceType != "" {
		query += ` AND (service_type = '' OR service_type = ?)`
		args = append(args, serviceType)
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find rates for %s: %w", resource, err)
	}
	defer rows.Close()

	var rates []models.Rate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		rates = append(rates, *rate)
	}
	return rates, rows.Err()
}

// CreateCustomPrice stores a seasonal modifier for a rate.
func (db *DB) CreateCustomPrice(ctx context.Context, cp *models.CustomPrice) (int64, error) {
	result, err := db.ExecContext(ctx, `
		INSERT INTO custom_prices (rate_id, day_of_week, starts_at, ends_at, price_modifier, description)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cp.RateID,
		int(cp.DayOfWeek),
		cp.StartsAt.String(),
		cp.EndsAt.String(),
		cp.PriceModifier,
		cp.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("insert custom price: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last id: %w", err)
	}
	cp.ID = id
	return id, nil
}

// CustomPricesForRate returns the rate's modifiers in insertion order.
func (db *DB) CustomPricesForRate(ctx context.Context, rateID int64) ([]models.CustomPrice, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, rate_id, day_of_week, starts_at, ends_at, price_modifier, COALESCE(description, '')
		FROM custom_prices WHERE rate_id = ? ORDER BY id`, rateID)
	if err != nil {
		return nil, fmt.Errorf("find custom prices for rate %d: %w", rateID, err)
	}
	defer rows.Close()

	var prices []models.CustomPrice
	for rows.Next() {
		var cp models.CustomPrice
		var day int
		var startsAt, endsAt string
		if err := rows.Scan(&cp.ID, &cp.RateID, &day, &startsAt, &endsAt, &cp.PriceModifier, &cp.Description); err != nil {
			return nil, fmt.Errorf("scan custom price: %w", err)
		}
		cp.DayOfWeek = time.Weekday(day)
		if cp.StartsAt, err = models.ParseTimeOfDay(startsAt); err != nil {
			return nil, fmt.Errorf("custom price %d starts_at: %w", cp.ID, err)
		}
		if cp.EndsAt, err = models.ParseTimeOfDay(endsAt); err != nil {
			return nil, fmt.Errorf("custom price %d ends_at: %w", cp.ID, err)
		}
		prices = append(prices, cp)
	}
	return prices, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRate(row rowScanner) (*models.Rate, error) {
	var rate models.Rate
	var unit string
	var startsAt, endsAt sql.NullString
	var days string
	err := row.Scan(
		&rate.ID,
		&rate.Name,
		&rate.Price,
		&unit,
		&startsAt,
		&endsAt,
		&days,
		&rate.MinimumUnits,
		&rate.MaximumUnits,
		&rate.ResourceType,
		&rate.ResourceID,
		&rate.ServiceType,
		&rate.CreatedAt,
		&rate.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rate.Unit = models.Unit(unit)
	if rate.StartsAt, err = timeOfDayPtr(startsAt); err != nil {
		return nil, fmt.Errorf("rate %d starts_at: %w", rate.ID, err)
	}
	if rate.EndsAt, err = timeOfDayPtr(endsAt); err != nil {
		return nil, fmt.Errorf("rate %d ends_at: %w", rate.ID, err)
	}
	if rate.DaysOfWeek, err = decodeDays(days); err != nil {
		return nil, fmt.Errorf("rate %d days_of_week: %w", rate.ID, err)
	}
	return &rate, nil
}

func timeOfDayValue(t *models.TimeOfDay) any {
	if t == nil {
		return nil
	}
	return t.String()
}

func timeOfDayPtr(s sql.NullString) (*models.TimeOfDay, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := models.ParseTimeOfDay(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// encodeDays stores weekdays as a comma-separated list of time.Weekday
// values; the empty string means no day restriction.
func encodeDays(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func decodeDays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", p)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}
