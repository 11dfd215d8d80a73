package storage

import (
	"context"
	"math/big"

	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/rental"
)

// fleetNamespace derives stable ids for the default fleet.
var fleetNamespace = uuid.MustParse("6b1f7a52-3f0e-4d8c-9d7e-2c4a1b9e5f10")

type fleetEntry struct {
	slug         string
	make, model  string
	year         int
	category     rental.Category
	seats        int
	transmission string
	rate         int64 // per day, whole units
}

var defaultFleet = []fleetEntry{
	{"toyota-yaris-2024", "Toyota", "Yaris", 2024, rental.Economy, 5, "automatic", 35},
	{"kia-picanto-2023", "Kia", "Picanto", 2023, rental.Economy, 4, "manual", 29},
	{"vw-golf-2024", "Volkswagen", "Golf", 2024, rental.Compact, 5, "automatic", 49},
	{"honda-civic-2023", "Honda", "Civic", 2023, rental.Compact, 5, "automatic", 52},
	{"toyota-rav4-2024", "Toyota", "RAV4", 2024, rental.SUV, 5, "automatic", 79},
	{"hyundai-tucson-2023", "Hyundai", "Tucson", 2023, rental.SUV, 5, "automatic", 72},
	{"ford-transit-2022", "Ford", "Transit Custom", 2022, rental.Van, 9, "manual", 95},
	{"bmw-5-2024", "BMW", "5 Series", 2024, rental.Luxury, 5, "automatic", 149},
}

// DefaultFleet returns the cars seeded into an empty database.
func DefaultFleet() []Car {
	cars := make([]Car, 0, len(defaultFleet))
	for _, e := range defaultFleet {
		cars = append(cars, Car{
			ID:           uuid.NewSHA1(fleetNamespace, []byte(e.slug)),
			Make:         e.make,
			Model:        e.model,
			Year:         e.year,
			Category:     e.category,
			Seats:        e.seats,
			Transmission: e.transmission,
			DailyRate:    new(big.Rat).SetInt64(e.rate),
			PhotoKey:     "cars/" + e.slug + ".jpg",
			Active:       true,
		})
	}
	return cars
}

// SeedIfEmpty stores the default fleet when no car exists yet and returns
// the number of cars inserted.
func (db *DB) SeedIfEmpty(ctx context.Context) (int, error) {
	n, err := db.CountCars(ctx)
	if err != nil || n > 0 {
		return 0, err
	}
	fleet := DefaultFleet()
	if err := db.SaveCars(ctx, fleet); err != nil {
		return 0, err
	}
	return len(fleet), nil
}
