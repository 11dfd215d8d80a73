// Package rental holds the car-rental vocabulary shared by the session store,
// storage and handler modules.
package rental

import (
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/garyellow/rentcar-bot/internal/errors"
)

// Category is a car class shown in the catalog.
type Category string

const (
	Economy Category = "economy"
	Compact Category = "compact"
	SUV     Category = "suv"
	Van     Category = "van"
	Luxury  Category = "luxury"
)

// Categories lists every category in display order.
var Categories = []Category{Economy, Compact, SUV, Van, Luxury}

var categoryLabels = map[Category]string{
	Economy: "Economy",
	Compact: "Compact",
	SUV:     "SUV",
	Van:     "Van",
	Luxury:  "Luxury",
}

// Label returns the display name.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Categories, c) {
		return "", fmt.Errorf("category %q: %w", s, errors.ErrInvalidData)
	}
	return c, nil
}

// BrowseMode controls how the catalog renders cars.
type BrowseMode string

const (
	// ModeList shows one text line per car.
	ModeList BrowseMode = "list"
	// ModeGallery sends one photo per car.
	ModeGallery BrowseMode = "gallery"
)

// ParseMode parses a browse mode.
func ParseMode(s string) (BrowseMode, error) {
	switch m := BrowseMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeList, ModeGallery:
		return m, nil
	default:
		return "", fmt.Errorf("browse mode %q: %w", s, errors.ErrInvalidData)
	}
}

// Toggle returns the other mode.
func (m BrowseMode) Toggle() BrowseMode {
	if m == ModeGallery {
		return ModeList
	}
	return ModeGallery
}

// DateLayout is the wire and display format of rental dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, errors.ErrInvalidData)
	}
	return d, nil
}

// Days returns the number of rental days between pickup and return.
// Same-day rentals count as one day.
func Days(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, errors.NewValidationError("dates", "return date is before pickup date")
	}
	days := int(end.Sub(start).Hours()/24) + 1
	return days, nil
}

// Quote returns days × dailyRate.
func Quote(start, end time.Time, dailyRate *big.Rat) (*big.Rat, error) {
	if dailyRate == nil || dailyRate.Sign() < 0 {
		return nil, errors.NewValidationError("daily_rate", "missing or negative")
	}
	days, err := Days(start, end)
	if err != nil {
		return nil, err
	}
	return new(big.Rat).Mul(dailyRate, new(big.Rat).SetInt64(int64(days))), nil
}

// FormatMoney renders an amount with two decimals.
func FormatMoney(r *big.Rat) string {
	if r == nil {
		return "0.00"
	}
	return r.FloatString(2)
}
