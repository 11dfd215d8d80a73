package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	domerrors "github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/rental"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// overlapQuery matches confirmed bookings of a car whose inclusive range
// intersects [start, end], optionally ignoring one booking.
const overlapQuery = `
	SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE car_id = ? AND status = 'confirmed'
			AND start_date <= ? AND end_date >= ?
			AND id != ?
	)`

func hasOverlap(ctx context.Context, q querier, carID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, overlapQuery, carID, formatDate(end), formatDate(start), exclude).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("overlap check: %w", err)
	}
	return exists, nil
}

// HasOverlap reports whether the car already has a confirmed booking that
// shares a day with [start, end]. exclude may be uuid.Nil.
func (db *DB) HasOverlap(ctx context.Context, carID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error) {
	return hasOverlap(ctx, db.reader, carID, start, end, exclude)
}

// CreateBooking checks availability and inserts b as confirmed. It fills in
// b.ID when it is nil and returns ErrCarUnavailable on overlap.
func (db *DB) CreateBooking(ctx context.Context, b *Booking) error {
	if b.End.Before(b.Start) {
		return domerrors.NewValidationError("dates", "return date is before pickup date")
	}
	if b.Total == nil {
		return domerrors.NewValidationError("total", "missing")
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()

	err := db.withTx(ctx, "CreateBooking", func(tx *sql.Tx) error {
		taken, err := hasOverlap(ctx, tx, b.CarID, b.Start, b.End, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrCarUnavailable
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookings (id, customer_id, car_id, start_date, end_date, total, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.CustomerID, b.CarID, formatDate(b.Start), formatDate(b.End),
			b.Total.FloatString(2), string(StatusConfirmed), now.Unix(), now.Unix())
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrCarUnavailable) {
			slog.ErrorContext(ctx, "failed to create booking", "car_id", b.CarID.String(), "error", err)
		}
		return err
	}
	b.Status = StatusConfirmed
	b.CreatedAt = now
	return nil
}

// CancelBooking cancels a confirmed booking owned by customerID.
func (db *DB) CancelBooking(ctx context.Context, id, customerID uuid.UUID) error {
	return db.withTx(ctx, "CancelBooking", func(tx *sql.Tx) error {
		if err := checkOwnedConfirmed(ctx, tx, id, customerID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
			string(StatusCancelled), time.Now().Unix(), id)
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		return nil
	})
}

// UpdateBookingDates moves a confirmed booking to new dates and total. The
// booking's own days do not count as overlap.
func (db *DB) UpdateBookingDates(ctx context.Context, id, customerID uuid.UUID, start, end time.Time, total *big.Rat) error {
	if end.Before(start) {
		return domerrors.NewValidationError("dates", "return date is before pickup date")
	}
	return db.withTx(ctx, "UpdateBookingDates", func(tx *sql.Tx) error {
		if err := checkOwnedConfirmed(ctx, tx, id, customerID); err != nil {
			return err
		}
		var carID uuid.UUID
		if err := tx.QueryRowContext(ctx, `SELECT car_id FROM bookings WHERE id = ?`, id).Scan(&carID); err != nil {
			return fmt.Errorf("load booking car: %w", err)
		}
		taken, err := hasOverlap(ctx, tx, carID, start, end, id)
		if err != nil {
			return err
		}
		if taken {
			return ErrCarUnavailable
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE bookings SET start_date = ?, end_date = ?, total = ?, reminded_at = NULL, updated_at = ?
			WHERE id = ?`,
			formatDate(start), formatDate(end), total.FloatString(2), time.Now().Unix(), id)
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		return nil
	})
}

func checkOwnedConfirmed(ctx context.Context, tx *sql.Tx, id, customerID uuid.UUID) error {
	var (
		owner  uuid.UUID
		status string
	)
	err := tx.QueryRowContext(ctx, `SELECT customer_id, status FROM bookings WHERE id = ?`, id).Scan(&owner, &status)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != customerID) {
		return fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if BookingStatus(status) != StatusConfirmed {
		return fmt.Errorf("booking %s is %s: %w", id, status, domerrors.ErrInvalidState)
	}
	return nil
}

const detailQuery = `SELECT ` + carColumns + `,
		b.id, b.customer_id, b.car_id, b.start_date, b.end_date, b.total, b.status, b.reminded_at, b.created_at,
		u.id, u.telegram_id, u.name, u.username, u.phone, u.email
	FROM bookings b
	JOIN customers u ON u.id = b.customer_id
	JOIN cars c ON c.id = b.car_id`

func scanDetail(row rowScanner) (BookingDetail, error) {
	var (
		d          BookingDetail
		start, end string
		total      string
		status     string
		reminded   sql.NullInt64
		created    int64
	)
	err := scanCar(row, &d.Car,
		&d.ID, &d.CustomerID, &d.CarID, &start, &end, &total, &status, &reminded, &created,
		&d.Customer.ID, &d.Customer.TelegramID, &d.Customer.Name, &d.Customer.Username, &d.Customer.Phone, &d.Customer.Email,
	)
	if err != nil {
		return d, err
	}
	if d.Start, err = rental.ParseDate(start); err != nil {
		return d, err
	}
	if d.End, err = rental.ParseDate(end); err != nil {
		return d, err
	}
	if d.Total, err = parseRat(total); err != nil {
		return d, err
	}
	d.Status = BookingStatus(status)
	d.CreatedAt = time.Unix(created, 0)
	if reminded.Valid {
		t := time.Unix(reminded.Int64, 0)
		d.RemindedAt = &t
	}
	return d, nil
}

// GetBooking returns a booking owned by customerID.
func (db *DB) GetBooking(ctx context.Context, id, customerID uuid.UUID) (*BookingDetail, error) {
	d, err := scanDetail(db.reader.QueryRowContext(ctx, detailQuery+` WHERE b.id = ? AND b.customer_id = ?`, id, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query booking: %w", err)
	}
	return &d, nil
}

// ListCustomerBookings returns the customer's bookings, most recent pickup
// first. limit <= 0 means no limit.
func (db *DB) ListCustomerBookings(ctx context.Context, customerID uuid.UUID, limit int) ([]BookingDetail, error) {
	query := detailQuery + ` WHERE b.customer_id = ? ORDER BY b.start_date DESC, b.created_at DESC`
	args := []any{customerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return db.listDetails(ctx, "ListCustomerBookings", query, args...)
}

// ListBookingsStartingOn returns confirmed, not yet reminded bookings whose
// pickup is on day.
func (db *DB) ListBookingsStartingOn(ctx context.Context, day time.Time) ([]BookingDetail, error) {
	query := detailQuery + ` WHERE b.start_date = ? AND b.status = 'confirmed' AND b.reminded_at IS NULL ORDER BY b.created_at`
	return db.listDetails(ctx, "ListBookingsStartingOn", query, formatDate(day))
}

func (db *DB) listDetails(ctx context.Context, operation, query string, args ...any) ([]BookingDetail, error) {
	start := time.Now()
	rows, err := db.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer func() { _ = rows.Close() }()

	var out []BookingDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", operation, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	logSlow(ctx, operation, start)
	return out, nil
}

// MarkReminded records that the pickup reminder was sent.
func (db *DB) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := db.writer.ExecContext(ctx, `UPDATE bookings SET reminded_at = ? WHERE id = ?`, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}
