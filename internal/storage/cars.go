package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/rental"
)

const carColumns = `c.id, c.make, c.model, c.year, c.category, c.seats, c.transmission, c.daily_rate, c.photo_key, c.active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCar(row rowScanner, dest *Car, extra ...any) error {
	var (
		category string
		rate     string
	)
	args := append([]any{
		&dest.ID, &dest.Make, &dest.Model, &dest.Year, &category,
		&dest.Seats, &dest.Transmission, &rate, &dest.PhotoKey, &dest.Active,
	}, extra...)
	if err := row.Scan(args...); err != nil {
		return err
	}
	dest.Category = rental.Category(category)
	r, err := parseRat(rate)
	if err != nil {
		return fmt.Errorf("car %s daily rate: %w", dest.ID, err)
	}
	dest.DailyRate = r
	return nil
}

// GetCar returns an active or retired car by id.
func (db *DB) GetCar(ctx context.Context, id uuid.UUID) (*Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars c WHERE c.id = ?`

	var car Car
	err := scanCar(db.reader.QueryRowContext(ctx, query, id), &car)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("car %s: %w", id, ErrNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query car", "car_id", id.String(), "error", err)
		return nil, fmt.Errorf("query car: %w", err)
	}
	return &car, nil
}

// ListCarsByCategory returns the active cars of a category, cheapest first.
// limit <= 0 means no limit.
func (db *DB) ListCarsByCategory(ctx context.Context, category rental.Category, limit int) ([]Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars c
		WHERE c.category = ? AND c.active = 1
		ORDER BY CAST(c.daily_rate AS REAL), c.make, c.model`
	args := []any{string(category)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := db.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cars []Car
	for rows.Next() {
		var car Car
		if err := scanCar(rows, &car); err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	logSlow(ctx, "ListCarsByCategory", start)
	return cars, nil
}

// SaveCars inserts or updates cars in one transaction.
func (db *DB) SaveCars(ctx context.Context, cars []Car) error {
	if len(cars) == 0 {
		return nil
	}
	query := `
		INSERT INTO cars (id, make, model, year, category, seats, transmission, daily_rate, photo_key, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			make = excluded.make,
			model = excluded.model,
			year = excluded.year,
			category = excluded.category,
			seats = excluded.seats,
			transmission = excluded.transmission,
			daily_rate = excluded.daily_rate,
			photo_key = excluded.photo_key,
			active = excluded.active
	`
	now := time.Now().Unix()
	return db.withTx(ctx, "SaveCars", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare save cars: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, c := range cars {
			if c.DailyRate == nil {
				return fmt.Errorf("car %s has no daily rate", c.ID)
			}
			if _, err := stmt.ExecContext(ctx, c.ID, c.Make, c.Model, c.Year, string(c.Category), c.Seats,
				c.Transmission, c.DailyRate.FloatString(2), c.PhotoKey, c.Active, now); err != nil {
				return fmt.Errorf("save car %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// CountCars returns the number of active cars.
func (db *DB) CountCars(ctx context.Context) (int, error) {
	var n int
	if err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars WHERE active = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cars: %w", err)
	}
	return n, nil
}
