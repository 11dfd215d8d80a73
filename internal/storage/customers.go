package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// GetOrCreateCustomer returns the customer for a Telegram user, creating it
// on first contact. A non-empty name or username refreshes the stored one.
func (db *DB) GetOrCreateCustomer(ctx context.Context, telegramID int64, name, username string) (*Customer, error) {
	query := `
		INSERT INTO customers (id, telegram_id, name, username, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE customers.name END,
			username = CASE WHEN excluded.username != '' THEN excluded.username ELSE customers.username END,
			updated_at = excluded.updated_at
	`
	now := time.Now().Unix()
	if _, err := db.writer.ExecContext(ctx, query, uuid.New(), telegramID, name, username, now, now); err != nil {
		slog.ErrorContext(ctx, "failed to upsert customer", "telegram_id", telegramID, "error", err)
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	// Read from the writer so the row just written is visible.
	return db.customer(ctx, db.writer, `telegram_id = ?`, telegramID)
}

// GetCustomerByTelegramID returns the customer of a Telegram user.
func (db *DB) GetCustomerByTelegramID(ctx context.Context, telegramID int64) (*Customer, error) {
	return db.customer(ctx, db.reader, `telegram_id = ?`, telegramID)
}

func (db *DB) customer(ctx context.Context, conn *sql.DB, where string, arg any) (*Customer, error) {
	query := `SELECT id, telegram_id, name, username, phone, email FROM customers WHERE ` + where

	var c Customer
	err := conn.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.TelegramID, &c.Name, &c.Username, &c.Phone, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &c, nil
}

// UpdateContact stores the customer's phone and email.
func (db *DB) UpdateContact(ctx context.Context, customerID uuid.UUID, phone, email string) error {
	res, err := db.writer.ExecContext(ctx,
		`UPDATE customers SET phone = ?, email = ?, updated_at = ? WHERE id = ?`,
		phone, email, time.Now().Unix(), customerID)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	return nil
}
