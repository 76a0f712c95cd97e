// Package database is the sqlite persistence layer. One DB serves rates,
// custom prices, bookings, recurring templates and resource capacities.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB represents the database connection.
type DB struct {
	*sql.DB
	defaultCapacity int
	logger          *zerolog.Logger
}

var (
	ErrRateNotFound    = errors.New("rate not found")
	ErrBookingNotFound = errors.New("booking not found")
)

// NewDB opens the database, tunes the connection pool and creates tables
// if they don't exist. defaultCapacity is used for resources without an
// explicit capacity row.
func NewDB(path string, defaultCapacity int, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode plus immediate transactions: writers take the lock at
	// BeginTx instead of at first write, so the capacity re-check inside
	// InsertBooking cannot race another writer.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if defaultCapacity < 1 {
		defaultCapacity = 1
	}

	instance := &DB{
		DB:              db,
		defaultCapacity: defaultCapacity,
		logger:          logger,
	}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Int("default_capacity", defaultCapacity).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			price REAL,
			unit TEXT NOT NULL,
			starts_at TEXT,
			ends_at TEXT,
			days_of_week TEXT NOT NULL DEFAULT '',
			minimum_units INTEGER NOT NULL DEFAULT 0,
			maximum_units INTEGER,
			resource_type TEXT NOT NULL,
			resource_id INTEGER NOT NULL,
			service_type TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS custom_prices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rate_id INTEGER NOT NULL,
			day_of_week INTEGER NOT NULL,
			starts_at TEXT NOT NULL,
			ends_at TEXT NOT NULL,
			price_modifier REAL NOT NULL,
			description TEXT,
			FOREIGN KEY (rate_id) REFERENCES rates(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT UNIQUE NOT NULL,
			bookable_type TEXT NOT NULL,
			bookable_id INTEGER NOT NULL,
			customer_type TEXT NOT NULL DEFAULT '',
			customer_id INTEGER NOT NULL DEFAULT 0,
			rate_id INTEGER NOT NULL,
			starts_at DATETIME NOT NULL,
			ends_at DATETIME NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL DEFAULT 1,
			total REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			service_type TEXT NOT NULL DEFAULT '',
			notes TEXT,
			recurring_booking_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY (rate_id) REFERENCES rates(id)
		)`,

		`CREATE TABLE IF NOT EXISTS recurring_bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rate_id INTEGER NOT NULL,
			bookable_type TEXT NOT NULL,
			bookable_id INTEGER NOT NULL,
			customer_type TEXT NOT NULL DEFAULT '',
			customer_id INTEGER NOT NULL DEFAULT 0,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			days_of_week TEXT NOT NULL,
			starts_from DATETIME NOT NULL,
			ends_at DATETIME,
			price REAL NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL DEFAULT 1,
			total REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (rate_id) REFERENCES rates(id)
		)`,

		`CREATE TABLE IF NOT EXISTS resource_capacities (
			resource_type TEXT NOT NULL,
			resource_id INTEGER NOT NULL,
			capacity INTEGER NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (resource_type, resource_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_rates_resource ON rates(resource_type, resource_id)`,
		`CREATE INDEX IF NOT EXISTS idx_custom_prices_rate ON custom_prices(rate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_resource_window ON bookings(bookable_type, bookable_id, starts_at, ends_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_rate ON bookings(rate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_recurring ON bookings(recurring_booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_recurring_resource ON recurring_bookings(bookable_type, bookable_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
