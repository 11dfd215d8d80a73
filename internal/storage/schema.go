package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createCarsTable(ctx, db); err != nil {
		return err
	}
	if err := createCustomersTable(ctx, db); err != nil {
		return err
	}
	return createBookingsTable(ctx, db)
}

func createCarsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS cars (
		id TEXT PRIMARY KEY,
		make TEXT NOT NULL,
		model TEXT NOT NULL,
		year INTEGER NOT NULL,
		category TEXT NOT NULL,
		seats INTEGER NOT NULL,
		transmission TEXT NOT NULL,
		daily_rate TEXT NOT NULL,
		photo_key TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cars_category ON cars(category, active);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create cars table: %w", err)
	}
	return nil
}

func createCustomersTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		telegram_id INTEGER NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create customers table: %w", err)
	}
	return nil
}

// Dates are stored as YYYY-MM-DD text so range checks compare lexically.
func createBookingsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		car_id TEXT NOT NULL REFERENCES cars(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total TEXT NOT NULL,
		status TEXT NOT NULL,
		reminded_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		CHECK (end_date >= start_date)
	);
	CREATE INDEX IF NOT EXISTS idx_bookings_car_dates ON bookings(car_id, status, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings(customer_id, start_date);
	CREATE INDEX IF NOT EXISTS idx_bookings_start ON bookings(start_date, status);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create bookings table: %w", err)
	}
	return nil
}
