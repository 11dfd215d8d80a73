package storage

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	domerrors "github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/rental"
)

// Common errors
var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = domerrors.ErrNotFound

	// ErrCarUnavailable is returned when a booking overlaps a confirmed one.
	ErrCarUnavailable = fmt.Errorf("car is already booked for those dates: %w", domerrors.ErrInvalidState)
)

// Car is a rentable vehicle.
type Car struct {
	ID           uuid.UUID
	Make         string
	Model        string
	Year         int
	Category     rental.Category
	Seats        int
	Transmission string
	DailyRate    *big.Rat
	PhotoKey     string // object key in the photo bucket, empty when none
	Active       bool
}

// Name is the display name, e.g. "Toyota Corolla (2024)".
func (c Car) Name() string {
	return fmt.Sprintf("%s %s (%d)", c.Make, c.Model, c.Year)
}

// Customer is a chat user who has started a booking.
type Customer struct {
	ID         uuid.UUID
	TelegramID int64
	Name       string
	Username   string
	Phone      string
	Email      string
}

// HasContact reports whether phone and email are both on file.
func (c Customer) HasContact() bool {
	return c.Phone != "" && c.Email != ""
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking reserves a car for an inclusive date range.
type Booking struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	CarID      uuid.UUID
	Start      time.Time
	End        time.Time
	Total      *big.Rat
	Status     BookingStatus
	RemindedAt *time.Time
	CreatedAt  time.Time
}

// Days is the number of rental days.
func (b Booking) Days() int {
	d, _ := rental.Days(b.Start, b.End)
	return d
}

// Editable reports whether the booking can still be changed or cancelled on
// the given day.
func (b Booking) Editable(today time.Time) bool {
	return b.Status == StatusConfirmed && !b.Start.Before(dateOnly(today))
}

// BookingDetail is a booking joined with its car and customer.
type BookingDetail struct {
	Booking
	Car      Car
	Customer Customer
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) string {
	return t.Format(rental.DateLayout)
}

func parseRat(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid decimal %q", s)
	}
	return r, nil
}
