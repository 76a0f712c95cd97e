package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookflow/internal/models"
)

// SetCapacity records how much concurrent quantity the resource can serve.
func (db *DB) SetCapacity(ctx context.Context, resource models.ResourceRef, capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", capacity)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO resource_capacities (resource_type, resource_id, capacity, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (resource_type, resource_id) DO UPDATE SET
			capacity = excluded.capacity,
			updated_at = excluded.updated_at`,
		resource.Type, resource.ID, capacity, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("set capacity for %s: %w", resource, err)
	}
	return nil
}

// CapacityOf returns the resource's capacity, falling back to the
// configured default when no row exists.
func (db *DB) CapacityOf(ctx context.Context, resource models.ResourceRef) (int, error) {
	var capacity int
	err := db.QueryRowContext(ctx,
		`SELECT capacity FROM resource_capacities WHERE resource_type = ? AND resource_id = ?`,
		resource.Type, resource.ID,
	).Scan(&capacity)
	if err == sql.ErrNoRows {
		return db.defaultCapacity, nil
	}
	if err != nil {
		return 0, fmt.Errorf("capacity of %s: %w", resource, err)
	}
	return capacity, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// capacityOf is the in-transaction variant used by Insert.
func (db *DB) capacityOf(ctx context.Context, q queryRower, resourceType string, resourceID int64) (int, error) {
	var capacity int
	err := q.QueryRowContext(ctx,
		`SELECT capacity FROM resource_capacities WHERE resource_type = ? AND resource_id = ?`,
		resourceType, resourceID,
	).Scan(&capacity)
	if err == sql.ErrNoRows {
		return db.defaultCapacity, nil
	}
	if err != nil {
		return 0, fmt.Errorf("capacity of %s/%d: %w", resourceType, resourceID, err)
	}
	return capacity, nil
}
